package persistence

import (
	"context"
	"fmt"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"gorm.io/gorm"
)

type CaselineRepository struct {
	db *gorm.DB
}

func (r *CaselineRepository) FindByID(ctx context.Context, id string) (*domain.Caseline, error) {
	var caseline domain.Caseline
	if err := r.db.WithContext(ctx).First(&caseline, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "caseline", id)
	}
	return &caseline, nil
}

func (r *CaselineRepository) LockByID(ctx context.Context, id string) (*domain.Caseline, error) {
	var caseline domain.Caseline
	if err := forUpdate(r.db.WithContext(ctx)).First(&caseline, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "caseline", id)
	}
	return &caseline, nil
}

func (r *CaselineRepository) LockByIDs(ctx context.Context, ids []string) ([]*domain.Caseline, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var caselines []*domain.Caseline
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id").
		Find(&caselines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock caselines: %w", err)
	}
	return caselines, nil
}

func (r *CaselineRepository) Save(ctx context.Context, caseline *domain.Caseline) error {
	if err := r.db.WithContext(ctx).Save(caseline).Error; err != nil {
		return fmt.Errorf("failed to save caseline: %w", err)
	}
	return nil
}

type WarehouseRepository struct {
	db *gorm.DB
}

func (r *WarehouseRepository) FindByID(ctx context.Context, id string) (*domain.Warehouse, error) {
	var warehouse domain.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "warehouse", id)
	}
	return &warehouse, nil
}

func (r *WarehouseRepository) FindByServiceCenter(ctx context.Context, serviceCenterID string) ([]*domain.Warehouse, error) {
	var warehouses []*domain.Warehouse
	err := r.db.WithContext(ctx).
		Where("service_center_id = ?", serviceCenterID).
		Order("priority, id").
		Find(&warehouses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find service center warehouses: %w", err)
	}
	return warehouses, nil
}

// FindCompanyWarehouses returns the OEM warehouses of a company
func (r *WarehouseRepository) FindCompanyWarehouses(ctx context.Context, companyID string) ([]*domain.Warehouse, error) {
	var warehouses []*domain.Warehouse
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND service_center_id IS NULL", companyID).
		Order("priority, id").
		Find(&warehouses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find company warehouses: %w", err)
	}
	return warehouses, nil
}
