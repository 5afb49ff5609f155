package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reservation binds one component to one caseline during repair
type Reservation struct {
	ID                  string            `gorm:"primaryKey;size:36"`
	CaselineID          string            `gorm:"size:36;not null;index"`
	ComponentID         string            `gorm:"size:36;not null;index"`
	WarehouseID         string            `gorm:"size:36;not null"`
	Status              ReservationStatus `gorm:"size:32;not null"`
	PickedUpByID        *string           `gorm:"size:36"`
	PickedUpAt          *time.Time
	InstalledAt         *time.Time
	ReturnedComponentID *string `gorm:"size:36"`
	ReturnedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName pins the table name
func (Reservation) TableName() string { return "component_reservations" }

// NewReservation reserves component for caseline
func NewReservation(caselineID string, component *Component) *Reservation {
	warehouseID := ""
	if component.WarehouseID != nil {
		warehouseID = *component.WarehouseID
	}
	return &Reservation{
		ID:          uuid.New().String(),
		CaselineID:  caselineID,
		ComponentID: component.ID,
		WarehouseID: warehouseID,
		Status:      ReservationReserved,
	}
}

func (r *Reservation) require(action string, allowed ...ReservationStatus) error {
	for _, s := range allowed {
		if r.Status == s {
			return nil
		}
	}
	required := make([]string, len(allowed))
	for i, s := range allowed {
		required[i] = string(s)
	}
	return NewStatusRequired("reservation", r.ID, string(r.Status), action, required...)
}

// PickUp records the technician collecting the unit
func (r *Reservation) PickUp(technicianID string, at time.Time) error {
	if err := r.require("pick up the component", ReservationReserved); err != nil {
		return err
	}
	r.Status = ReservationPickedUp
	r.PickedUpByID = &technicianID
	r.PickedUpAt = &at
	return nil
}

// Install records the unit being fitted to the vehicle
func (r *Reservation) Install(at time.Time) error {
	if err := r.require("install the component", ReservationPickedUp); err != nil {
		return err
	}
	r.Status = ReservationInstalled
	r.InstalledAt = &at
	return nil
}

// CanReturn reports whether an old unit may still be returned against r
func (r *Reservation) CanReturn() error {
	return r.require("return a component", ReservationPickedUp, ReservationInstalled)
}

// Return records the swapped-out unit
func (r *Reservation) Return(returnedComponentID string, at time.Time) error {
	if err := r.CanReturn(); err != nil {
		return err
	}
	r.Status = ReservationReturned
	r.ReturnedComponentID = &returnedComponentID
	r.ReturnedAt = &at
	return nil
}

// StockReservation holds quantity at a stock record for a transfer request
type StockReservation struct {
	ID              string                 `gorm:"primaryKey;size:36"`
	RequestID       string                 `gorm:"size:36;not null;index"`
	ItemID          string                 `gorm:"size:36;not null"`
	StockID         string                 `gorm:"size:36;not null;index"`
	WarehouseID     string                 `gorm:"size:36;not null"`
	TypeComponentID string                 `gorm:"size:36;not null"`
	Quantity        int                    `gorm:"not null"`
	Status          StockReservationStatus `gorm:"size:32;not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName pins the table name
func (StockReservation) TableName() string { return "stock_reservations" }

// NewStockReservation builds a reservation for one allocation of item
func NewStockReservation(requestID string, item *StockTransferRequestItem, a Allocation) *StockReservation {
	return &StockReservation{
		ID:              uuid.New().String(),
		RequestID:       requestID,
		ItemID:          item.ID,
		StockID:         a.StockID,
		WarehouseID:     a.WarehouseID,
		TypeComponentID: item.TypeComponentID,
		Quantity:        a.Quantity,
		Status:          StockReservationReserved,
	}
}

func (s *StockReservation) mustBeReserved(operation string) error {
	if s.Status != StockReservationReserved {
		return NewConsistencyFault(operation, "stock reservation %s is %s, expected %s", s.ID, s.Status, StockReservationReserved)
	}
	return nil
}

// MarkShipped consumes the reservation
func (s *StockReservation) MarkShipped() error {
	if err := s.mustBeReserved("ship"); err != nil {
		return err
	}
	s.Status = StockReservationShipped
	return nil
}

// Cancel releases the reservation
func (s *StockReservation) Cancel() error {
	if err := s.mustBeReserved("cancel"); err != nil {
		return err
	}
	s.Status = StockReservationCancelled
	return nil
}
