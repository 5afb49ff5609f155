package domain

import "context"

// Methods named Lock* take a write lock on the rows they return, held until
// the surrounding unit of work ends. Multi-row locks are taken in ascending id
// order. Lock* methods must only be called inside UnitOfWork.Execute.

// CaselineRepository persists the parts-relevant view of caselines
type CaselineRepository interface {
	FindByID(ctx context.Context, id string) (*Caseline, error)
	LockByID(ctx context.Context, id string) (*Caseline, error)
	LockByIDs(ctx context.Context, ids []string) ([]*Caseline, error)
	Save(ctx context.Context, caseline *Caseline) error
}

// WarehouseRepository reads warehouses
type WarehouseRepository interface {
	FindByID(ctx context.Context, id string) (*Warehouse, error)
	FindByServiceCenter(ctx context.Context, serviceCenterID string) ([]*Warehouse, error)
	FindCompanyWarehouses(ctx context.Context, companyID string) ([]*Warehouse, error)
}

// StockRepository persists the stock ledger
type StockRepository interface {
	FindByID(ctx context.Context, id string) (*StockRecord, error)
	FindAll(ctx context.Context) ([]*StockRecord, error)
	// LockCandidates locks every stock of the given types held at the given warehouses
	LockCandidates(ctx context.Context, warehouseIDs, typeComponentIDs []string) ([]*StockRecord, error)
	LockByIDs(ctx context.Context, ids []string) ([]*StockRecord, error)
	// EnsureExists creates empty records for missing (warehouse, type) pairs and
	// leaves existing ones untouched
	EnsureExists(ctx context.Context, warehouseID string, typeComponentIDs []string) error
	Save(ctx context.Context, stock *StockRecord) error
}

// ComponentCount is the number of components in one status at one warehouse
type ComponentCount struct {
	WarehouseID     string
	TypeComponentID string
	Status          ComponentStatus
	Count           int
}

// ComponentRepository persists the component registry
type ComponentRepository interface {
	FindByID(ctx context.Context, id string) (*Component, error)
	FindBySerialNumber(ctx context.Context, serial string) (*Component, error)
	FindByTransferRequest(ctx context.Context, requestID string) ([]*Component, error)
	LockByIDs(ctx context.Context, ids []string) ([]*Component, error)
	// LockAvailable locks up to limit IN_WAREHOUSE components of a type at a warehouse
	LockAvailable(ctx context.Context, warehouseID, typeComponentID string, limit int) ([]*Component, error)
	LockInTransit(ctx context.Context, requestID string) ([]*Component, error)
	CountByLocation(ctx context.Context) ([]ComponentCount, error)
	Save(ctx context.Context, component *Component) error
}

// ReservationRepository persists component reservations
type ReservationRepository interface {
	FindByID(ctx context.Context, id string) (*Reservation, error)
	FindByCaseline(ctx context.Context, caselineID string) ([]*Reservation, error)
	LockByIDs(ctx context.Context, ids []string) ([]*Reservation, error)
	Create(ctx context.Context, reservations []*Reservation) error
	Save(ctx context.Context, reservation *Reservation) error
}

// StockReservationRepository persists quantity held for transfer requests
type StockReservationRepository interface {
	FindByRequest(ctx context.Context, requestID string) ([]*StockReservation, error)
	LockByRequest(ctx context.Context, requestID string) ([]*StockReservation, error)
	// SumReserved totals RESERVED quantity per stock id
	SumReserved(ctx context.Context) (map[string]int, error)
	Create(ctx context.Context, reservations []*StockReservation) error
	Save(ctx context.Context, reservation *StockReservation) error
}

// TransferRequestFilter narrows request listings
type TransferRequestFilter struct {
	Status                TransferStatus
	RequestingWarehouseID string
	ServiceCenterID       string
	CompanyID             string
}

// TransferRequestRepository persists stock transfer requests with their items
type TransferRequestRepository interface {
	FindByID(ctx context.Context, id string) (*StockTransferRequest, error)
	LockByID(ctx context.Context, id string) (*StockTransferRequest, error)
	List(ctx context.Context, filter TransferRequestFilter, offset, limit int) ([]*StockTransferRequest, int64, error)
	Create(ctx context.Context, request *StockTransferRequest) error
	Save(ctx context.Context, request *StockTransferRequest) error
}

// Repositories exposes every repository bound to one transaction
type Repositories interface {
	Caselines() CaselineRepository
	Warehouses() WarehouseRepository
	Stocks() StockRepository
	Components() ComponentRepository
	Reservations() ReservationRepository
	StockReservations() StockReservationRepository
	TransferRequests() TransferRequestRepository
}

// UnitOfWork runs fn in one transaction. A nil return commits; any error
// rolls back every change made through repos. The context passed to fn
// carries the transaction deadline.
type UnitOfWork interface {
	Execute(ctx context.Context, operation string, fn func(ctx context.Context, repos Repositories) error) error
	// Snapshot runs fn read-only against one consistent snapshot. Lock*
	// methods must not be used inside it.
	Snapshot(ctx context.Context, operation string, fn func(ctx context.Context, repos Repositories) error) error
	// Reader returns repositories outside any transaction, for queries
	Reader() Repositories
}
