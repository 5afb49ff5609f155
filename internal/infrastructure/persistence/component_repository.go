package persistence

import (
	"context"
	"fmt"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"gorm.io/gorm"
)

type ComponentRepository struct {
	db *gorm.DB
}

func (r *ComponentRepository) FindByID(ctx context.Context, id string) (*domain.Component, error) {
	var component domain.Component
	if err := r.db.WithContext(ctx).First(&component, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "component", id)
	}
	return &component, nil
}

func (r *ComponentRepository) FindBySerialNumber(ctx context.Context, serial string) (*domain.Component, error) {
	var component domain.Component
	if err := r.db.WithContext(ctx).First(&component, "serial_number = ?", serial).Error; err != nil {
		return nil, notFound(err, "component with serial number", serial)
	}
	return &component, nil
}

func (r *ComponentRepository) FindByTransferRequest(ctx context.Context, requestID string) ([]*domain.Component, error) {
	var components []*domain.Component
	err := r.db.WithContext(ctx).
		Where("transfer_request_id = ?", requestID).
		Order("id").
		Find(&components).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find components of request: %w", err)
	}
	return components, nil
}

func (r *ComponentRepository) LockByIDs(ctx context.Context, ids []string) ([]*domain.Component, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var components []*domain.Component
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id").
		Find(&components).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock components: %w", err)
	}
	return components, nil
}

func (r *ComponentRepository) LockAvailable(ctx context.Context, warehouseID, typeComponentID string, limit int) ([]*domain.Component, error) {
	var components []*domain.Component
	err := forUpdate(r.db.WithContext(ctx)).
		Where("warehouse_id = ? AND type_component_id = ? AND status = ?",
			warehouseID, typeComponentID, domain.ComponentInWarehouse).
		Order("id").
		Limit(limit).
		Find(&components).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock available components: %w", err)
	}
	return components, nil
}

func (r *ComponentRepository) LockInTransit(ctx context.Context, requestID string) ([]*domain.Component, error) {
	var components []*domain.Component
	err := forUpdate(r.db.WithContext(ctx)).
		Where("transfer_request_id = ? AND status = ?", requestID, domain.ComponentInTransit).
		Order("id").
		Find(&components).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock in-transit components: %w", err)
	}
	return components, nil
}

// CountByLocation groups warehouse-held components by (warehouse, type, status)
func (r *ComponentRepository) CountByLocation(ctx context.Context) ([]domain.ComponentCount, error) {
	var counts []domain.ComponentCount
	err := r.db.WithContext(ctx).
		Model(&domain.Component{}).
		Select("warehouse_id, type_component_id, status, COUNT(*) AS count").
		Where("warehouse_id IS NOT NULL").
		Group("warehouse_id, type_component_id, status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count components: %w", err)
	}
	return counts, nil
}

func (r *ComponentRepository) Save(ctx context.Context, component *domain.Component) error {
	if err := r.db.WithContext(ctx).Save(component).Error; err != nil {
		return fmt.Errorf("failed to save component: %w", err)
	}
	return nil
}
