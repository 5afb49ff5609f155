package application

import "time"

// ComponentDTO represents a physical component in responses
type ComponentDTO struct {
	ID                string     `json:"id"`
	TypeComponentID   string     `json:"typeComponentId"`
	SerialNumber      *string    `json:"serialNumber,omitempty"`
	Status            string     `json:"status"`
	WarehouseID       *string    `json:"warehouseId,omitempty"`
	VehicleVIN        *string    `json:"vehicleVin,omitempty"`
	CurrentHolderID   *string    `json:"currentHolderId,omitempty"`
	TransferRequestID *string    `json:"transferRequestId,omitempty"`
	InstalledAt       *time.Time `json:"installedAt,omitempty"`
}

// ReservationDTO represents a component reservation
type ReservationDTO struct {
	ID                  string     `json:"id"`
	CaselineID          string     `json:"caselineId"`
	ComponentID         string     `json:"componentId"`
	WarehouseID         string     `json:"warehouseId"`
	Status              string     `json:"status"`
	PickedUpByID        *string    `json:"pickedUpById,omitempty"`
	PickedUpAt          *time.Time `json:"pickedUpAt,omitempty"`
	InstalledAt         *time.Time `json:"installedAt,omitempty"`
	ReturnedComponentID *string    `json:"returnedComponentId,omitempty"`
	ReturnedAt          *time.Time `json:"returnedAt,omitempty"`
}

// AllocationDTO is the quantity taken from one warehouse
type AllocationDTO struct {
	StockID     string `json:"stockId"`
	WarehouseID string `json:"warehouseId"`
	Quantity    int    `json:"quantity"`
}

// AllocationSummaryDTO is the result of allocating stock to a caseline
type AllocationSummaryDTO struct {
	CaselineID      string           `json:"caselineId"`
	CaselineStatus  string           `json:"caselineStatus"`
	TypeComponentID string           `json:"typeComponentId"`
	Quantity        int              `json:"quantity"`
	Allocations     []AllocationDTO  `json:"allocations"`
	Reservations    []ReservationDTO `json:"reservations"`
	Components      []ComponentDTO   `json:"components"`
}

// ReservationResultDTO is the result of a single reservation step
type ReservationResultDTO struct {
	Reservation    ReservationDTO `json:"reservation"`
	Component      ComponentDTO   `json:"component"`
	CaselineStatus string         `json:"caselineStatus"`
}

// ReturnResultDTO is the result of returning an old unit
type ReturnResultDTO struct {
	Reservation       ReservationDTO `json:"reservation"`
	ReturnedComponent ComponentDTO   `json:"returnedComponent"`
}

// TransferItemDTO represents one requested line
type TransferItemDTO struct {
	ID                string  `json:"id"`
	LineNo            int     `json:"lineNo"`
	TypeComponentID   string  `json:"typeComponentId"`
	QuantityRequested int     `json:"quantityRequested"`
	CaselineID        *string `json:"caselineId,omitempty"`
}

// TransferRequestDTO represents a stock transfer request
type TransferRequestDTO struct {
	ID                    string            `json:"id"`
	RequestingWarehouseID string            `json:"requestingWarehouseId"`
	ServiceCenterID       string            `json:"serviceCenterId"`
	CompanyID             string            `json:"companyId"`
	Status                string            `json:"status"`
	RequestedByID         string            `json:"requestedById"`
	ApprovedByID          *string           `json:"approvedById,omitempty"`
	ShippedByID           *string           `json:"shippedById,omitempty"`
	ReceivedByID          *string           `json:"receivedById,omitempty"`
	RejectedByID          *string           `json:"rejectedById,omitempty"`
	CancelledByID         *string           `json:"cancelledById,omitempty"`
	RejectionReason       *string           `json:"rejectionReason,omitempty"`
	CancellationReason    *string           `json:"cancellationReason,omitempty"`
	RequestedAt           time.Time         `json:"requestedAt"`
	ApprovedAt            *time.Time        `json:"approvedAt,omitempty"`
	ShippedAt             *time.Time        `json:"shippedAt,omitempty"`
	EstimatedDeliveryDate *time.Time        `json:"estimatedDeliveryDate,omitempty"`
	ReceivedAt            *time.Time        `json:"receivedAt,omitempty"`
	RejectedAt            *time.Time        `json:"rejectedAt,omitempty"`
	CancelledAt           *time.Time        `json:"cancelledAt,omitempty"`
	Items                 []TransferItemDTO `json:"items"`
}

// StockReservationDTO represents quantity held for a request
type StockReservationDTO struct {
	ID              string `json:"id"`
	ItemID          string `json:"itemId"`
	StockID         string `json:"stockId"`
	WarehouseID     string `json:"warehouseId"`
	TypeComponentID string `json:"typeComponentId"`
	Quantity        int    `json:"quantity"`
	Status          string `json:"status"`
}

// TransferResultDTO is the result of a transfer transition
type TransferResultDTO struct {
	Request           TransferRequestDTO    `json:"request"`
	StockReservations []StockReservationDTO `json:"stockReservations,omitempty"`
	Components        []ComponentDTO        `json:"components,omitempty"`
}

// TransferRequestSummaryDTO is one row of a request listing
type TransferRequestSummaryDTO struct {
	ID                    string     `json:"id"`
	Status                string     `json:"status"`
	RequestingWarehouseID string     `json:"requestingWarehouseId"`
	ServiceCenterID       string     `json:"serviceCenterId"`
	ItemCount             int        `json:"itemCount"`
	TotalQuantity         int        `json:"totalQuantity"`
	RequestedAt           time.Time  `json:"requestedAt"`
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate,omitempty"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// DriftDTO is one stock record whose counters disagree with the registry
type DriftDTO struct {
	StockID                  string `json:"stockId"`
	WarehouseID              string `json:"warehouseId"`
	TypeComponentID          string `json:"typeComponentId"`
	QuantityInStock          int    `json:"quantityInStock"`
	ComponentsInWarehouse    int    `json:"componentsInWarehouse"`
	QuantityReserved         int    `json:"quantityReserved"`
	ComponentsReserved       int    `json:"componentsReserved"`
	StockReservationQuantity int    `json:"stockReservationQuantity"`
}

// ReconciliationReportDTO is the outcome of one reconciliation run
type ReconciliationReportDTO struct {
	CheckedAt     time.Time  `json:"checkedAt"`
	StocksChecked int        `json:"stocksChecked"`
	Drift         []DriftDTO `json:"drift"`
}
