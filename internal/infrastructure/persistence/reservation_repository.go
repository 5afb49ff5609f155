package persistence

import (
	"context"
	"fmt"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"gorm.io/gorm"
)

type ReservationRepository struct {
	db *gorm.DB
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	var reservation domain.Reservation
	if err := r.db.WithContext(ctx).First(&reservation, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "reservation", id)
	}
	return &reservation, nil
}

func (r *ReservationRepository) FindByCaseline(ctx context.Context, caselineID string) ([]*domain.Reservation, error) {
	var reservations []*domain.Reservation
	err := r.db.WithContext(ctx).
		Where("caseline_id = ?", caselineID).
		Order("id").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations of caseline: %w", err)
	}
	return reservations, nil
}

func (r *ReservationRepository) LockByIDs(ctx context.Context, ids []string) ([]*domain.Reservation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var reservations []*domain.Reservation
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock reservations: %w", err)
	}
	return reservations, nil
}

func (r *ReservationRepository) Create(ctx context.Context, reservations []*domain.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&reservations).Error; err != nil {
		return fmt.Errorf("failed to create reservations: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domain.Reservation) error {
	if err := r.db.WithContext(ctx).Save(reservation).Error; err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}
	return nil
}

type StockReservationRepository struct {
	db *gorm.DB
}

func (r *StockReservationRepository) FindByRequest(ctx context.Context, requestID string) ([]*domain.StockReservation, error) {
	var reservations []*domain.StockReservation
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stock reservations: %w", err)
	}
	return reservations, nil
}

func (r *StockReservationRepository) LockByRequest(ctx context.Context, requestID string) ([]*domain.StockReservation, error) {
	var reservations []*domain.StockReservation
	err := forUpdate(r.db.WithContext(ctx)).
		Where("request_id = ?", requestID).
		Order("id").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock reservations: %w", err)
	}
	return reservations, nil
}

func (r *StockReservationRepository) SumReserved(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		StockID string
		Total   int
	}
	err := r.db.WithContext(ctx).
		Model(&domain.StockReservation{}).
		Select("stock_id, SUM(quantity) AS total").
		Where("status = ?", domain.StockReservationReserved).
		Group("stock_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum stock reservations: %w", err)
	}

	totals := make(map[string]int, len(rows))
	for _, row := range rows {
		totals[row.StockID] = row.Total
	}
	return totals, nil
}

func (r *StockReservationRepository) Create(ctx context.Context, reservations []*domain.StockReservation) error {
	if len(reservations) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&reservations).Error; err != nil {
		return fmt.Errorf("failed to create stock reservations: %w", err)
	}
	return nil
}

func (r *StockReservationRepository) Save(ctx context.Context, reservation *domain.StockReservation) error {
	if err := r.db.WithContext(ctx).Save(reservation).Error; err != nil {
		return fmt.Errorf("failed to save stock reservation: %w", err)
	}
	return nil
}
