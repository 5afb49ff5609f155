package persistence

import (
	"errors"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models lists every table owned by the service, in dependency order
var Models = []any{
	&domain.Warehouse{},
	&domain.Caseline{},
	&domain.StockRecord{},
	&domain.Component{},
	&domain.StockTransferRequest{},
	&domain.StockTransferRequestItem{},
	&domain.StockReservation{},
	&domain.Reservation{},
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

// forUpdate adds SELECT ... FOR UPDATE. Dialects without row locks (SQLite)
// drop the clause and rely on the single-connection pool instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFound(entity, id)
	}
	return err
}

// Repositories binds every repository to one *gorm.DB, either the pool or a
// transaction handle
type Repositories struct {
	caselines         *CaselineRepository
	warehouses        *WarehouseRepository
	stocks            *StockRepository
	components        *ComponentRepository
	reservations      *ReservationRepository
	stockReservations *StockReservationRepository
	transferRequests  *TransferRequestRepository
}

// NewRepositories creates repositories over db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		caselines:         &CaselineRepository{db: db},
		warehouses:        &WarehouseRepository{db: db},
		stocks:            &StockRepository{db: db},
		components:        &ComponentRepository{db: db},
		reservations:      &ReservationRepository{db: db},
		stockReservations: &StockReservationRepository{db: db},
		transferRequests:  &TransferRequestRepository{db: db},
	}
}

func (r *Repositories) Caselines() domain.CaselineRepository {
	return r.caselines
}

func (r *Repositories) Warehouses() domain.WarehouseRepository {
	return r.warehouses
}

func (r *Repositories) Stocks() domain.StockRepository {
	return r.stocks
}

func (r *Repositories) Components() domain.ComponentRepository {
	return r.components
}

func (r *Repositories) Reservations() domain.ReservationRepository {
	return r.reservations
}

func (r *Repositories) StockReservations() domain.StockReservationRepository {
	return r.stockReservations
}

func (r *Repositories) TransferRequests() domain.TransferRequestRepository {
	return r.transferRequests
}

var _ domain.Repositories = (*Repositories)(nil)
