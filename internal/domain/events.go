package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Transfer request event names
const (
	EventTransferCreated   = "stock_transfer_request:created"
	EventTransferApproved  = "stock_transfer_request:approved"
	EventTransferShipped   = "stock_transfer_request:shipped"
	EventTransferReceived  = "stock_transfer_request:received"
	EventTransferRejected  = "stock_transfer_request:rejected"
	EventTransferCancelled = "stock_transfer_request:cancelled"
)

// Component reservation event names
const (
	EventCaselineAllocated  = "caseline:allocated"
	EventComponentPickedUp  = "reservation:picked_up"
	EventComponentInstalled = "reservation:installed"
	EventComponentReturned  = "reservation:returned"
)

// TransferRequestEvent is raised by every committed transfer transition
type TransferRequestEvent struct {
	Name      string
	Request   *StockTransferRequest
	ActorID   string
	Timestamp time.Time
}

func (e *TransferRequestEvent) EventType() string     { return e.Name }
func (e *TransferRequestEvent) OccurredAt() time.Time { return e.Timestamp }

// ReservationEvent is raised by every committed reservation step
type ReservationEvent struct {
	Name            string
	CaselineID      string
	ServiceCenterID string
	Reservations    []*Reservation
	Components      []*Component
	ActorID         string
	Timestamp       time.Time
}

func (e *ReservationEvent) EventType() string     { return e.Name }
func (e *ReservationEvent) OccurredAt() time.Time { return e.Timestamp }
