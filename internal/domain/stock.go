package domain

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is a stock location. Company warehouses have no service center
// and are the source of stock transfers.
type Warehouse struct {
	ID              string  `gorm:"primaryKey;size:36"`
	Name            string  `gorm:"size:255;not null"`
	CompanyID       string  `gorm:"size:36;not null;index"`
	ServiceCenterID *string `gorm:"size:36;index"`
	Priority        int     `gorm:"not null"`
	CreatedAt       time.Time
}

// TableName pins the table name
func (Warehouse) TableName() string { return "warehouses" }

// IsCompanyWarehouse reports whether w belongs to the OEM rather than a service center
func (w *Warehouse) IsCompanyWarehouse() bool {
	return w.ServiceCenterID == nil
}

// StockRecord holds the per (warehouse, component type) counters.
// QuantityReserved never exceeds QuantityInStock.
type StockRecord struct {
	ID               string `gorm:"primaryKey;size:36"`
	WarehouseID      string `gorm:"size:36;not null;uniqueIndex:ux_stocks_warehouse_type"`
	TypeComponentID  string `gorm:"size:36;not null;uniqueIndex:ux_stocks_warehouse_type"`
	QuantityInStock  int    `gorm:"not null"`
	QuantityReserved int    `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName pins the table name
func (StockRecord) TableName() string { return "stocks" }

// NewStockRecord creates an empty stock record
func NewStockRecord(warehouseID, typeComponentID string) *StockRecord {
	return &StockRecord{
		ID:              uuid.New().String(),
		WarehouseID:     warehouseID,
		TypeComponentID: typeComponentID,
	}
}

// Available is the quantity that can still be reserved
func (s *StockRecord) Available() int {
	return s.QuantityInStock - s.QuantityReserved
}

// Reserve holds n units. The caller must hold the row lock.
func (s *StockRecord) Reserve(n int) error {
	if n <= 0 {
		return NewValidation("quantity", "must be positive")
	}
	if n > s.Available() {
		return &InsufficientStockError{TypeComponentID: s.TypeComponentID, Requested: n, Available: s.Available()}
	}
	s.QuantityReserved += n
	return nil
}

// Release gives back n previously reserved units
func (s *StockRecord) Release(operation string, n int) error {
	if n > s.QuantityReserved {
		return NewConsistencyFault(operation, "stock %s releases %d units but only %d are reserved", s.ID, n, s.QuantityReserved)
	}
	s.QuantityReserved -= n
	return nil
}

// Withdraw removes n reserved units that physically leave the warehouse
func (s *StockRecord) Withdraw(operation string, n int) error {
	if n > s.QuantityReserved || n > s.QuantityInStock {
		return NewConsistencyFault(operation, "stock %s withdraws %d units but holds %d in stock and %d reserved",
			s.ID, n, s.QuantityInStock, s.QuantityReserved)
	}
	s.QuantityInStock -= n
	s.QuantityReserved -= n
	return nil
}

// Receive adds n unreserved units
func (s *StockRecord) Receive(n int) {
	s.QuantityInStock += n
}
