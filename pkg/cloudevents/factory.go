package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/tracing"
)

// eventTypes maps notification event names onto CloudEvents types
var eventTypes = map[string]string{
	"stock_transfer_request:created":   TransferRequestCreated,
	"stock_transfer_request:approved":  TransferRequestApproved,
	"stock_transfer_request:shipped":   TransferRequestShipped,
	"stock_transfer_request:received":  TransferRequestReceived,
	"stock_transfer_request:rejected":  TransferRequestRejected,
	"stock_transfer_request:cancelled": TransferRequestCanceled,
	"caseline:allocated":               CaselineAllocated,
	"reservation:picked_up":            ComponentPickedUp,
	"reservation:installed":            ComponentInstalled,
	"reservation:returned":             ComponentReturned,
}

// TypeFor returns the CloudEvents type for a notification event name
func TypeFor(eventName string) string {
	if t, ok := eventTypes[eventName]; ok {
		return t
	}
	return Generic
}

// EventFactory creates CloudEvents for a fixed source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new event and copies correlation and trace context from ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data any) *WarrantyCloudEvent {
	event := &WarrantyCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = v
	}

	carrier := tracing.MapCarrier{}
	tracing.InjectTraceContext(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")

	return event
}

// CreateRoomEvent wraps a room notification. The room becomes the subject so
// consumers can partition on it.
func (f *EventFactory) CreateRoomEvent(ctx context.Context, room, eventName string, payload any) *WarrantyCloudEvent {
	event := f.CreateEvent(ctx, TypeFor(eventName), room, payload)
	event.Room = room
	event.EventName = eventName
	return event
}
