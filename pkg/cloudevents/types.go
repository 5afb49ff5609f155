package cloudevents

import (
	"time"
)

// Event types emitted by the parts service
const (
	// Stock transfer request events
	TransferRequestCreated  = "warranty.stock-transfer.created"
	TransferRequestApproved = "warranty.stock-transfer.approved"
	TransferRequestShipped  = "warranty.stock-transfer.shipped"
	TransferRequestReceived = "warranty.stock-transfer.received"
	TransferRequestRejected = "warranty.stock-transfer.rejected"
	TransferRequestCanceled = "warranty.stock-transfer.cancelled"

	// Component reservation events
	CaselineAllocated  = "warranty.reservation.allocated"
	ComponentPickedUp  = "warranty.reservation.picked-up"
	ComponentInstalled = "warranty.reservation.installed"
	ComponentReturned  = "warranty.reservation.returned"

	// Fallback for names not in the table above
	Generic = "warranty.notification"
)

// SourcePartsService is the CloudEvents source of every event this service emits
const SourcePartsService = "/warranty/parts-service"

// Extension attribute names
const (
	ExtCorrelationID = "warrantycorrelationid"
	ExtRoom          = "warrantyroom"
	ExtEventName     = "warrantyeventname"
)

// WarrantyCloudEvent represents a CloudEvents v1.0 compliant event
type WarrantyCloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	// Extensions
	CorrelationID string `json:"warrantycorrelationid,omitempty"`
	Room          string `json:"warrantyroom,omitempty"`
	EventName     string `json:"warrantyeventname,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
	TraceState    string `json:"tracestate,omitempty"`
}
