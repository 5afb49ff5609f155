package application

import (
	"context"
	"sort"
	"time"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
	"github.com/oem-ev-warranty/parts-service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// ReconciliationService compares the stock ledger with the component registry.
// It reports drift and never corrects it.
type ReconciliationService struct {
	uow     domain.UnitOfWork
	metrics *metrics.Metrics
	logger  *logging.Logger
	now     Clock
}

// NewReconciliationService creates a ReconciliationService
func NewReconciliationService(uow domain.UnitOfWork, m *metrics.Metrics, logger *logging.Logger) *ReconciliationService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReconciliationService{
		uow:     uow,
		metrics: m,
		logger:  logger.WithComponent("reconciliation"),
		now:     systemClock,
	}
}

type locationKey struct {
	warehouseID     string
	typeComponentID string
}

// Run checks every stock record. quantityInStock must equal the components
// IN_WAREHOUSE or RESERVED there, and quantityReserved must equal the RESERVED
// components plus the quantity held by RESERVED stock reservations.
func (s *ReconciliationService) Run(ctx context.Context) (_ *ReconciliationReportDTO, err error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.Run")
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	var (
		stocks []*domain.StockRecord
		counts []domain.ComponentCount
		held   map[string]int
	)
	err = s.uow.Snapshot(ctx, "reconcile", func(ctx context.Context, repos domain.Repositories) error {
		var err error
		if stocks, err = repos.Stocks().FindAll(ctx); err != nil {
			return err
		}
		if counts, err = repos.Components().CountByLocation(ctx); err != nil {
			return err
		}
		held, err = repos.StockReservations().SumReserved(ctx)
		return err
	})
	if err != nil {
		return nil, toAppError("reconcile", err)
	}

	inWarehouse := make(map[locationKey]int)
	reserved := make(map[locationKey]int)
	for _, c := range counts {
		key := locationKey{c.WarehouseID, c.TypeComponentID}
		switch c.Status {
		case domain.ComponentInWarehouse:
			inWarehouse[key] += c.Count
		case domain.ComponentReserved:
			inWarehouse[key] += c.Count
			reserved[key] += c.Count
		}
	}

	report := &ReconciliationReportDTO{
		CheckedAt:     s.now(),
		StocksChecked: len(stocks),
		Drift:         []DriftDTO{},
	}
	seen := make(map[locationKey]bool, len(stocks))
	for _, stock := range stocks {
		key := locationKey{stock.WarehouseID, stock.TypeComponentID}
		seen[key] = true
		row := DriftDTO{
			StockID:                  stock.ID,
			WarehouseID:              stock.WarehouseID,
			TypeComponentID:          stock.TypeComponentID,
			QuantityInStock:          stock.QuantityInStock,
			ComponentsInWarehouse:    inWarehouse[key],
			QuantityReserved:         stock.QuantityReserved,
			ComponentsReserved:       reserved[key],
			StockReservationQuantity: held[stock.ID],
		}
		if row.QuantityInStock != row.ComponentsInWarehouse ||
			row.QuantityReserved != row.ComponentsReserved+row.StockReservationQuantity {
			report.Drift = append(report.Drift, row)
		}
	}

	// components sitting at a location the ledger has no record for
	var orphans []locationKey
	for key, n := range inWarehouse {
		if !seen[key] && n > 0 {
			orphans = append(orphans, key)
		}
	}
	sort.Slice(orphans, func(i, j int) bool {
		if orphans[i].warehouseID != orphans[j].warehouseID {
			return orphans[i].warehouseID < orphans[j].warehouseID
		}
		return orphans[i].typeComponentID < orphans[j].typeComponentID
	})
	for _, key := range orphans {
		report.Drift = append(report.Drift, DriftDTO{
			WarehouseID:           key.warehouseID,
			TypeComponentID:       key.typeComponentID,
			ComponentsInWarehouse: inWarehouse[key],
			ComponentsReserved:    reserved[key],
		})
	}

	s.metrics.SetLedgerDrift(len(report.Drift))
	s.metrics.RecordReconciliation(time.Since(start))
	span.SetAttributes(attribute.Int("reconcile.drift", len(report.Drift)))

	log := s.logger.WithContext(ctx)
	for _, d := range report.Drift {
		log.Warn("Stock ledger drift",
			"stockId", d.StockID,
			"warehouseId", d.WarehouseID,
			"typeComponentId", d.TypeComponentID,
			"quantityInStock", d.QuantityInStock,
			"componentsInWarehouse", d.ComponentsInWarehouse,
			"quantityReserved", d.QuantityReserved,
			"componentsReserved", d.ComponentsReserved,
			"stockReservationQuantity", d.StockReservationQuantity,
		)
	}
	log.Info("Reconciliation finished",
		"stocksChecked", report.StocksChecked,
		"drift", len(report.Drift),
		"duration", time.Since(start).String(),
	)
	return report, nil
}
