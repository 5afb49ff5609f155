package persistence

import (
	"context"
	"fmt"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransferRequestRepository struct {
	db *gorm.DB
}

func (r *TransferRequestRepository) FindByID(ctx context.Context, id string) (*domain.StockTransferRequest, error) {
	var request domain.StockTransferRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "stock transfer request", id)
	}
	if err := r.loadItems(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// LockByID locks the request row. Items are immutable and read without a lock.
func (r *TransferRequestRepository) LockByID(ctx context.Context, id string) (*domain.StockTransferRequest, error) {
	var request domain.StockTransferRequest
	if err := forUpdate(r.db.WithContext(ctx)).First(&request, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "stock transfer request", id)
	}
	if err := r.loadItems(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *TransferRequestRepository) loadItems(ctx context.Context, request *domain.StockTransferRequest) error {
	err := r.db.WithContext(ctx).
		Where("request_id = ?", request.ID).
		Order("line_no").
		Find(&request.Items).Error
	if err != nil {
		return fmt.Errorf("failed to load request items: %w", err)
	}
	return nil
}

func (r *TransferRequestRepository) List(ctx context.Context, filter domain.TransferRequestFilter, offset, limit int) ([]*domain.StockTransferRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.StockTransferRequest{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequestingWarehouseID != "" {
		query = query.Where("requesting_warehouse_id = ?", filter.RequestingWarehouseID)
	}
	if filter.ServiceCenterID != "" {
		query = query.Where("service_center_id = ?", filter.ServiceCenterID)
	}
	if filter.CompanyID != "" {
		query = query.Where("company_id = ?", filter.CompanyID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	var requests []*domain.StockTransferRequest
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Order("requested_at DESC, id").
		Offset(offset).
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, total, nil
}

// Create inserts the request together with its items
func (r *TransferRequestRepository) Create(ctx context.Context, request *domain.StockTransferRequest) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// Save updates the request row only
func (r *TransferRequestRepository) Save(ctx context.Context, request *domain.StockTransferRequest) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(request).Error; err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}
