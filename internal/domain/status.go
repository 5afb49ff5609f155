package domain

// ComponentStatus is the lifecycle state of a physical component
type ComponentStatus string

const (
	ComponentInWarehouse    ComponentStatus = "IN_WAREHOUSE"
	ComponentReserved       ComponentStatus = "RESERVED"
	ComponentWithTechnician ComponentStatus = "WITH_TECHNICIAN"
	ComponentInstalled      ComponentStatus = "INSTALLED"
	ComponentReturned       ComponentStatus = "RETURNED"
	ComponentInTransit      ComponentStatus = "IN_TRANSIT"
	ComponentDefective      ComponentStatus = "DEFECTIVE"
)

// ReservationStatus is the state of a component reservation bound to a caseline
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "RESERVED"
	ReservationPickedUp  ReservationStatus = "PICKED_UP"
	ReservationInstalled ReservationStatus = "INSTALLED"
	ReservationReturned  ReservationStatus = "RETURNED"
)

// StockReservationStatus is the state of quantity held for a transfer request
type StockReservationStatus string

const (
	StockReservationReserved  StockReservationStatus = "RESERVED"
	StockReservationShipped   StockReservationStatus = "SHIPPED"
	StockReservationCancelled StockReservationStatus = "CANCELLED"
)

// TransferStatus is the state of a stock transfer request
type TransferStatus string

const (
	TransferPendingApproval TransferStatus = "PENDING_APPROVAL"
	TransferApproved        TransferStatus = "APPROVED"
	TransferShipped         TransferStatus = "SHIPPED"
	TransferReceived        TransferStatus = "RECEIVED"
	TransferRejected        TransferStatus = "REJECTED"
	TransferCancelled       TransferStatus = "CANCELLED"
)

// IsValid reports whether s is a known transfer status
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferPendingApproval, TransferApproved, TransferShipped,
		TransferReceived, TransferRejected, TransferCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s TransferStatus) IsTerminal() bool {
	return s == TransferReceived || s == TransferRejected || s == TransferCancelled
}

// CaselineStatus is the repair state of a caseline
type CaselineStatus string

const (
	CaselinePendingApproval  CaselineStatus = "PENDING_APPROVAL"
	CaselineCustomerApproved CaselineStatus = "CUSTOMER_APPROVED"
	CaselineWaitingForParts  CaselineStatus = "WAITING_FOR_PARTS"
	CaselineReadyForRepair   CaselineStatus = "READY_FOR_REPAIR"
	CaselineInRepair         CaselineStatus = "IN_REPAIR"
	CaselineCompleted        CaselineStatus = "COMPLETED"
	CaselineCancelled        CaselineStatus = "CANCELLED"
)
