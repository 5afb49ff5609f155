package projections

import (
	"time"
)

// TransferRequestProjection is the denormalized listing row of a stock
// transfer request. It is rebuilt from the request on every transition.
type TransferRequestProjection struct {
	RequestID             string                   `bson:"_id" json:"requestId"`
	Status                string                   `bson:"status" json:"status"`
	RequestingWarehouseID string                   `bson:"requestingWarehouseId" json:"requestingWarehouseId"`
	ServiceCenterID       string                   `bson:"serviceCenterId" json:"serviceCenterId"`
	CompanyID             string                   `bson:"companyId" json:"companyId"`
	RequestedByID         string                   `bson:"requestedById" json:"requestedById"`
	Items                 []TransferItemProjection `bson:"items" json:"items"`
	TotalQuantity         int                      `bson:"totalQuantity" json:"totalQuantity"`
	TypeComponentIDs      []string                 `bson:"typeComponentIds" json:"typeComponentIds"`

	LastEvent   string `bson:"lastEvent" json:"lastEvent"`
	LastActorID string `bson:"lastActorId" json:"lastActorId"`

	RequestedAt           time.Time  `bson:"requestedAt" json:"requestedAt"`
	EstimatedDeliveryDate *time.Time `bson:"estimatedDeliveryDate,omitempty" json:"estimatedDeliveryDate,omitempty"`
	ClosedAt              *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
	UpdatedAt             time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// TransferItemProjection is one requested line
type TransferItemProjection struct {
	TypeComponentID   string  `bson:"typeComponentId" json:"typeComponentId"`
	QuantityRequested int     `bson:"quantityRequested" json:"quantityRequested"`
	CaselineID        *string `bson:"caselineId,omitempty" json:"caselineId,omitempty"`
}

// TransferRequestFilter narrows a listing. Empty fields match everything.
type TransferRequestFilter struct {
	Status                string
	RequestingWarehouseID string
	ServiceCenterID       string
	CompanyID             string
	TypeComponentID       string
}

// Pagination represents pagination parameters
type Pagination struct {
	Limit  int
	Offset int
}

// PagedResult represents a paginated result set
type PagedResult[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}
