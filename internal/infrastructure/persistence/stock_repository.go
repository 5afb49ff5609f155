package persistence

import (
	"context"
	"fmt"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepository struct {
	db *gorm.DB
}

func (r *StockRepository) FindByID(ctx context.Context, id string) (*domain.StockRecord, error) {
	var stock domain.StockRecord
	if err := r.db.WithContext(ctx).First(&stock, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "stock", id)
	}
	return &stock, nil
}

func (r *StockRepository) FindAll(ctx context.Context) ([]*domain.StockRecord, error) {
	var stocks []*domain.StockRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	return stocks, nil
}

func (r *StockRepository) LockCandidates(ctx context.Context, warehouseIDs, typeComponentIDs []string) ([]*domain.StockRecord, error) {
	if len(warehouseIDs) == 0 || len(typeComponentIDs) == 0 {
		return nil, nil
	}
	var stocks []*domain.StockRecord
	err := forUpdate(r.db.WithContext(ctx)).
		Where("warehouse_id IN ? AND type_component_id IN ?", warehouseIDs, typeComponentIDs).
		Order("id").
		Find(&stocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock candidate stocks: %w", err)
	}
	return stocks, nil
}

func (r *StockRepository) LockByIDs(ctx context.Context, ids []string) ([]*domain.StockRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var stocks []*domain.StockRecord
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id").
		Find(&stocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock stocks: %w", err)
	}
	return stocks, nil
}

// EnsureExists inserts empty stock records, skipping pairs the unique
// (warehouse, type) index already holds. Concurrent receivers of the same
// new type both succeed and then serialize on the row lock.
func (r *StockRepository) EnsureExists(ctx context.Context, warehouseID string, typeComponentIDs []string) error {
	for _, typeID := range typeComponentIDs {
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(domain.NewStockRecord(warehouseID, typeID)).Error
		if err != nil {
			return fmt.Errorf("failed to create stock for %s at %s: %w", typeID, warehouseID, err)
		}
	}
	return nil
}

func (r *StockRepository) Save(ctx context.Context, stock *domain.StockRecord) error {
	if err := r.db.WithContext(ctx).Save(stock).Error; err != nil {
		return fmt.Errorf("failed to save stock: %w", err)
	}
	return nil
}
