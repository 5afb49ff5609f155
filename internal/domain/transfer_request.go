package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockTransferRequest moves components from the OEM company warehouse to a
// service center warehouse. Items never change after creation.
type StockTransferRequest struct {
	ID                    string         `gorm:"primaryKey;size:36"`
	RequestingWarehouseID string         `gorm:"size:36;not null;index"`
	ServiceCenterID       string         `gorm:"size:36;not null;index"`
	CompanyID             string         `gorm:"size:36;not null"`
	Status                TransferStatus `gorm:"size:32;not null;index"`
	RequestedByID         string         `gorm:"size:36;not null"`
	ApprovedByID          *string        `gorm:"size:36"`
	ShippedByID           *string        `gorm:"size:36"`
	ReceivedByID          *string        `gorm:"size:36"`
	RejectedByID          *string        `gorm:"size:36"`
	CancelledByID         *string        `gorm:"size:36"`
	RejectionReason       *string        `gorm:"size:1024"`
	CancellationReason    *string        `gorm:"size:1024"`
	RequestedAt           time.Time
	ApprovedAt            *time.Time
	ShippedAt             *time.Time
	EstimatedDeliveryDate *time.Time
	ReceivedAt            *time.Time
	RejectedAt            *time.Time
	CancelledAt           *time.Time
	Items                 []StockTransferRequestItem `gorm:"foreignKey:RequestID"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName pins the table name
func (StockTransferRequest) TableName() string { return "stock_transfer_requests" }

// StockTransferRequestItem is one requested component type
type StockTransferRequestItem struct {
	ID                string  `gorm:"primaryKey;size:36"`
	RequestID         string  `gorm:"size:36;not null;index"`
	LineNo            int     `gorm:"not null"`
	TypeComponentID   string  `gorm:"size:36;not null"`
	QuantityRequested int     `gorm:"not null"`
	CaselineID        *string `gorm:"size:36;index"`
	CreatedAt         time.Time
}

// TableName pins the table name
func (StockTransferRequestItem) TableName() string { return "stock_transfer_request_items" }

// NewItemSpec describes an item at creation time
type NewItemSpec struct {
	TypeComponentID   string
	QuantityRequested int
	CaselineID        *string
}

// NewStockTransferRequest creates a pending request
func NewStockTransferRequest(warehouse *Warehouse, requestedBy string, specs []NewItemSpec, at time.Time) *StockTransferRequest {
	id := uuid.New().String()
	serviceCenterID := ""
	if warehouse.ServiceCenterID != nil {
		serviceCenterID = *warehouse.ServiceCenterID
	}

	items := make([]StockTransferRequestItem, len(specs))
	for i, spec := range specs {
		items[i] = StockTransferRequestItem{
			ID:                uuid.New().String(),
			RequestID:         id,
			LineNo:            i + 1,
			TypeComponentID:   spec.TypeComponentID,
			QuantityRequested: spec.QuantityRequested,
			CaselineID:        spec.CaselineID,
		}
	}

	return &StockTransferRequest{
		ID:                    id,
		RequestingWarehouseID: warehouse.ID,
		ServiceCenterID:       serviceCenterID,
		CompanyID:             warehouse.CompanyID,
		Status:                TransferPendingApproval,
		RequestedByID:         requestedBy,
		RequestedAt:           at,
		Items:                 items,
	}
}

func (r *StockTransferRequest) require(done string, allowed ...TransferStatus) error {
	for _, s := range allowed {
		if r.Status == s {
			return nil
		}
	}
	required := make([]string, len(allowed))
	for i, s := range allowed {
		required[i] = string(s)
	}
	return NewInvalidTransition("request", r.ID, string(r.Status), done, required...)
}

// Approve moves a pending request to APPROVED
func (r *StockTransferRequest) Approve(by string, at time.Time) error {
	if err := r.require("approved", TransferPendingApproval); err != nil {
		return err
	}
	r.Status = TransferApproved
	r.ApprovedByID = &by
	r.ApprovedAt = &at
	return nil
}

// Ship moves an approved request to SHIPPED
func (r *StockTransferRequest) Ship(by string, estimatedDelivery *time.Time, at time.Time) error {
	if err := r.require("shipped", TransferApproved); err != nil {
		return err
	}
	r.Status = TransferShipped
	r.ShippedByID = &by
	r.ShippedAt = &at
	r.EstimatedDeliveryDate = estimatedDelivery
	return nil
}

// Receive moves a shipped request to RECEIVED
func (r *StockTransferRequest) Receive(by string, at time.Time) error {
	if err := r.require("received", TransferShipped); err != nil {
		return err
	}
	r.Status = TransferReceived
	r.ReceivedByID = &by
	r.ReceivedAt = &at
	return nil
}

// Reject closes a pending request
func (r *StockTransferRequest) Reject(by, reason string, at time.Time) error {
	if err := r.require("rejected", TransferPendingApproval); err != nil {
		return err
	}
	r.Status = TransferRejected
	r.RejectedByID = &by
	r.RejectionReason = &reason
	r.RejectedAt = &at
	return nil
}

// Cancel closes a pending or approved request; the reason is optional. It
// reports whether stock had been reserved and must be released. Who may cancel
// from APPROVED is decided by the role policy, not here.
func (r *StockTransferRequest) Cancel(by, reason string, at time.Time) (releaseStock bool, err error) {
	if err := r.require("cancelled", TransferPendingApproval, TransferApproved); err != nil {
		return false, err
	}
	releaseStock = r.Status == TransferApproved
	r.Status = TransferCancelled
	r.CancelledByID = &by
	if reason != "" {
		r.CancellationReason = &reason
	}
	r.CancelledAt = &at
	return releaseStock, nil
}

// CaselineIDs returns the originating caselines of the items, without duplicates
func (r *StockTransferRequest) CaselineIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, item := range r.Items {
		if item.CaselineID == nil || seen[*item.CaselineID] {
			continue
		}
		seen[*item.CaselineID] = true
		ids = append(ids, *item.CaselineID)
	}
	return ids
}

// TypeComponentIDs returns the distinct component types requested
func (r *StockTransferRequest) TypeComponentIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, item := range r.Items {
		if seen[item.TypeComponentID] {
			continue
		}
		seen[item.TypeComponentID] = true
		ids = append(ids, item.TypeComponentID)
	}
	return ids
}

// QuantityByType totals the requested quantity per component type
func (r *StockTransferRequest) QuantityByType() map[string]int {
	totals := make(map[string]int)
	for _, item := range r.Items {
		totals[item.TypeComponentID] += item.QuantityRequested
	}
	return totals
}
