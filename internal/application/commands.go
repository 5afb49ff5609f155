package application

import "time"

// AllocateForCaselineCommand reserves local stock for a caseline
type AllocateForCaselineCommand struct {
	Actor      Actor
	CaselineID string
}

// PickupComponentCommand hands a reserved component to a technician
type PickupComponentCommand struct {
	Actor         Actor
	ReservationID string
	// TechnicianID defaults to the actor
	TechnicianID string
}

// InstallComponentCommand fits a picked-up component to the vehicle
type InstallComponentCommand struct {
	Actor         Actor
	ReservationID string
}

// ReturnComponentCommand records the old unit swapped out by a reservation
type ReturnComponentCommand struct {
	Actor         Actor
	ReservationID string
	SerialNumber  string
}

// TransferItemInput is one line of a new stock transfer request
type TransferItemInput struct {
	TypeComponentID   string
	QuantityRequested int
	CaselineID        string
}

// CreateTransferRequestCommand opens a stock transfer request
type CreateTransferRequestCommand struct {
	Actor                 Actor
	RequestingWarehouseID string
	Items                 []TransferItemInput
}

// ApproveTransferRequestCommand reserves OEM stock for a request
type ApproveTransferRequestCommand struct {
	Actor     Actor
	RequestID string
}

// ShipTransferRequestCommand dispatches the reserved components
type ShipTransferRequestCommand struct {
	Actor                 Actor
	RequestID             string
	EstimatedDeliveryDate *time.Time
}

// ReceiveTransferRequestCommand lands shipped components at the requesting warehouse
type ReceiveTransferRequestCommand struct {
	Actor     Actor
	RequestID string
}

// RejectTransferRequestCommand declines a pending request
type RejectTransferRequestCommand struct {
	Actor     Actor
	RequestID string
	Reason    string
}

// CancelTransferRequestCommand withdraws a pending or approved request
type CancelTransferRequestCommand struct {
	Actor     Actor
	RequestID string
	Reason    string
}

// GetTransferRequestQuery loads one request with its reservations and components
type GetTransferRequestQuery struct {
	Actor     Actor
	RequestID string
}

// ListTransferRequestsQuery pages through requests
type ListTransferRequestsQuery struct {
	Actor                 Actor
	Status                string
	RequestingWarehouseID string
	ServiceCenterID       string
	Page                  int
	PageSize              int
}
