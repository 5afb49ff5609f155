package application

import (
	"context"
	"sort"
	"strings"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
	"github.com/oem-ev-warranty/parts-service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	opAllocate = "allocate"
	opPickup   = "pickup"
	opInstall  = "install"
	opReturn   = "return"
)

// ReservationService reserves local stock for caselines and tracks each
// reserved unit through pick-up, installation and return of the old part
type ReservationService struct {
	uow           domain.UnitOfWork
	compatibility CompatibilityChecker
	dispatch      *dispatcher
	metrics       *metrics.Metrics
	logger        *logging.Logger
	now           Clock
}

// NewReservationService creates a ReservationService. compatibility and
// notifier may be nil.
func NewReservationService(
	uow domain.UnitOfWork,
	compatibility CompatibilityChecker,
	notifier Notifier,
	m *metrics.Metrics,
	logger *logging.Logger,
) *ReservationService {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("reservation-service")
	return &ReservationService{
		uow:           uow,
		compatibility: compatibility,
		dispatch:      &dispatcher{notifier: notifier, metrics: m, logger: logger},
		metrics:       m,
		logger:        logger,
		now:           systemClock,
	}
}

func (s *ReservationService) fail(ctx context.Context, operation string, err error) error {
	s.metrics.RecordReservation(operation, false)
	if domain.IsConsistencyFault(err) {
		s.metrics.RecordConsistencyFault(operation)
		s.logger.WithContext(ctx).WithOperation(operation).WithError(err).Error("Ledger and component registry disagree")
	}
	return toAppError(operation, err)
}

func (s *ReservationService) checkCompatible(ctx context.Context, caseline *domain.Caseline) error {
	if s.compatibility == nil {
		return nil
	}
	ok, err := s.compatibility.IsCompatible(ctx, caseline.VehicleModelID, caseline.TypeComponentID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewConflict("component type %s is not compatible with vehicle model %s",
			caseline.TypeComponentID, caseline.VehicleModelID)
	}
	return nil
}

// AllocateForCaseline reserves the caseline's quantity from its service
// center's warehouses in priority order. Either every unit is reserved and the
// caseline becomes READY_FOR_REPAIR, or nothing changes.
func (s *ReservationService) AllocateForCaseline(ctx context.Context, cmd AllocateForCaselineCommand) (_ *AllocationSummaryDTO, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.AllocateForCaseline",
		trace.WithAttributes(attribute.String("caseline.id", cmd.CaselineID)))
	defer func() { tracing.EndSpan(span, err) }()

	if cmd.CaselineID == "" {
		return nil, s.fail(ctx, opAllocate, domain.NewValidation("caselineId", "is required"))
	}

	// the compatibility lookup is remote, so it runs before any lock is taken
	pre, err := s.uow.Reader().Caselines().FindByID(ctx, cmd.CaselineID)
	if err != nil {
		return nil, s.fail(ctx, opAllocate, err)
	}
	if err := s.checkCompatible(ctx, pre); err != nil {
		return nil, s.fail(ctx, opAllocate, err)
	}

	var (
		caseline     *domain.Caseline
		allocations  []domain.Allocation
		reservations []*domain.Reservation
		components   []*domain.Component
	)
	err = s.uow.Execute(ctx, opAllocate, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		caseline, err = repos.Caselines().LockByID(ctx, cmd.CaselineID)
		if err != nil {
			return err
		}
		if caseline.TypeComponentID != pre.TypeComponentID || caseline.VehicleModelID != pre.VehicleModelID {
			return domain.NewConflict("caseline %s changed while allocating, retry", caseline.ID)
		}
		if err := requireServiceCenter(cmd.Actor, caseline.ServiceCenterID); err != nil {
			return err
		}
		if err := caseline.CanAllocate(); err != nil {
			return err
		}
		if caseline.Quantity <= 0 {
			return domain.NewValidation("quantity", "caseline quantity must be positive")
		}

		warehouses, err := repos.Warehouses().FindByServiceCenter(ctx, caseline.ServiceCenterID)
		if err != nil {
			return err
		}
		stocks, err := repos.Stocks().LockCandidates(ctx, warehouseIDs(warehouses), []string{caseline.TypeComponentID})
		if err != nil {
			return err
		}
		domain.SortByWarehousePriority(stocks, warehouses)

		if available := domain.TotalAvailable(stocks); available < caseline.Quantity {
			return &domain.InsufficientStockError{
				TypeComponentID: caseline.TypeComponentID,
				Requested:       caseline.Quantity,
				Available:       available,
			}
		}

		allocations = domain.Allocate(stocks, caseline.Quantity)
		if got := domain.Allocated(allocations); got != caseline.Quantity {
			return domain.NewConsistencyFault(opAllocate, "allocated %d of %d units after availability check", got, caseline.Quantity)
		}

		byID := indexStocks(stocks)
		for _, a := range allocations {
			units, err := repos.Components().LockAvailable(ctx, a.WarehouseID, caseline.TypeComponentID, a.Quantity)
			if err != nil {
				return err
			}
			if len(units) < a.Quantity {
				return domain.NewConsistencyFault(opAllocate,
					"warehouse %s holds %d available components of type %s but stock %s promises %d",
					a.WarehouseID, len(units), caseline.TypeComponentID, a.StockID, a.Quantity)
			}

			stock := byID[a.StockID]
			if err := stock.Reserve(a.Quantity); err != nil {
				return err
			}
			if err := repos.Stocks().Save(ctx, stock); err != nil {
				return err
			}

			for _, unit := range units {
				if err := unit.Reserve(); err != nil {
					return err
				}
				if err := repos.Components().Save(ctx, unit); err != nil {
					return err
				}
				reservations = append(reservations, domain.NewReservation(caseline.ID, unit))
			}
			components = append(components, units...)
		}

		if err := repos.Reservations().Create(ctx, reservations); err != nil {
			return err
		}
		if err := caseline.MarkReadyForRepair(); err != nil {
			return err
		}
		return repos.Caselines().Save(ctx, caseline)
	})
	if err != nil {
		return nil, s.fail(ctx, opAllocate, err)
	}
	s.metrics.RecordReservation(opAllocate, true)

	result := &AllocationSummaryDTO{
		CaselineID:      caseline.ID,
		CaselineStatus:  string(caseline.Status),
		TypeComponentID: caseline.TypeComponentID,
		Quantity:        caseline.Quantity,
		Allocations:     ToAllocationDTOs(allocations),
		Reservations:    ToReservationDTOs(reservations),
		Components:      ToComponentDTOs(components),
	}
	s.dispatch.reservation(ctx, &domain.ReservationEvent{
		Name:            domain.EventCaselineAllocated,
		CaselineID:      caseline.ID,
		ServiceCenterID: caseline.ServiceCenterID,
		Reservations:    reservations,
		Components:      components,
		ActorID:         cmd.Actor.UserID,
		Timestamp:       s.now(),
	}, result)

	s.logger.WithContext(ctx).Info("Allocated stock for caseline",
		"caselineId", caseline.ID,
		"quantity", caseline.Quantity,
		"warehouses", len(allocations),
	)
	return result, nil
}

// PickupReservedComponent hands one reserved unit to a technician. The unit
// leaves the warehouse, so the stock record loses it from both counters. Once
// every reservation of the caseline is picked up, the repair starts.
func (s *ReservationService) PickupReservedComponent(ctx context.Context, cmd PickupComponentCommand) (_ *ReservationResultDTO, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.PickupReservedComponent",
		trace.WithAttributes(attribute.String("reservation.id", cmd.ReservationID)))
	defer func() { tracing.EndSpan(span, err) }()

	technicianID := cmd.TechnicianID
	if technicianID == "" {
		technicianID = cmd.Actor.UserID
	}
	if technicianID == "" {
		return nil, s.fail(ctx, opPickup, domain.NewValidation("pickedUpBy", "is required"))
	}

	reader := s.uow.Reader()
	pre, err := reader.Reservations().FindByID(ctx, cmd.ReservationID)
	if err != nil {
		return nil, s.fail(ctx, opPickup, err)
	}
	preComponent, err := reader.Components().FindByID(ctx, pre.ComponentID)
	if err != nil {
		return nil, s.fail(ctx, opPickup, err)
	}

	var (
		caseline    *domain.Caseline
		reservation *domain.Reservation
		component   *domain.Component
	)
	now := s.now()
	err = s.uow.Execute(ctx, opPickup, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		caseline, err = repos.Caselines().LockByID(ctx, pre.CaselineID)
		if err != nil {
			return err
		}
		if err := requireServiceCenter(cmd.Actor, caseline.ServiceCenterID); err != nil {
			return err
		}

		stocks, err := repos.Stocks().LockCandidates(ctx, []string{pre.WarehouseID}, []string{preComponent.TypeComponentID})
		if err != nil {
			return err
		}
		if len(stocks) != 1 {
			return domain.NewConsistencyFault(opPickup, "no stock record for type %s at warehouse %s",
				preComponent.TypeComponentID, pre.WarehouseID)
		}
		stock := stocks[0]

		if component, err = lockComponent(ctx, repos, pre.ComponentID); err != nil {
			return err
		}
		if reservation, err = lockReservation(ctx, repos, cmd.ReservationID); err != nil {
			return err
		}

		if err := reservation.PickUp(technicianID, now); err != nil {
			return err
		}
		if component.Status == domain.ComponentReserved &&
			(component.WarehouseID == nil || *component.WarehouseID != reservation.WarehouseID) {
			return domain.NewConsistencyFault(opPickup, "component %s is not at reserved warehouse %s",
				component.ID, reservation.WarehouseID)
		}
		if err := component.HandTo(technicianID); err != nil {
			return err
		}
		if err := stock.Withdraw(opPickup, 1); err != nil {
			return err
		}

		if err := repos.Stocks().Save(ctx, stock); err != nil {
			return err
		}
		if err := repos.Components().Save(ctx, component); err != nil {
			return err
		}
		if err := repos.Reservations().Save(ctx, reservation); err != nil {
			return err
		}

		siblings, err := repos.Reservations().FindByCaseline(ctx, caseline.ID)
		if err != nil {
			return err
		}
		if caseline.Status == domain.CaselineReadyForRepair && allPickedUp(siblings) {
			if err := caseline.StartRepair(); err != nil {
				return err
			}
			return repos.Caselines().Save(ctx, caseline)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, opPickup, err)
	}
	s.metrics.RecordReservation(opPickup, true)

	result := &ReservationResultDTO{
		Reservation:    ToReservationDTO(reservation),
		Component:      ToComponentDTO(component),
		CaselineStatus: string(caseline.Status),
	}
	s.dispatch.reservation(ctx, &domain.ReservationEvent{
		Name:            domain.EventComponentPickedUp,
		CaselineID:      caseline.ID,
		ServiceCenterID: caseline.ServiceCenterID,
		Reservations:    []*domain.Reservation{reservation},
		Components:      []*domain.Component{component},
		ActorID:         cmd.Actor.UserID,
		Timestamp:       now,
	}, result)
	return result, nil
}

// InstallComponent fits a picked-up unit to the caseline's vehicle
func (s *ReservationService) InstallComponent(ctx context.Context, cmd InstallComponentCommand) (_ *ReservationResultDTO, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.InstallComponent",
		trace.WithAttributes(attribute.String("reservation.id", cmd.ReservationID)))
	defer func() { tracing.EndSpan(span, err) }()

	pre, err := s.uow.Reader().Reservations().FindByID(ctx, cmd.ReservationID)
	if err != nil {
		return nil, s.fail(ctx, opInstall, err)
	}

	var (
		caseline    *domain.Caseline
		reservation *domain.Reservation
		component   *domain.Component
	)
	now := s.now()
	err = s.uow.Execute(ctx, opInstall, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		caseline, err = repos.Caselines().LockByID(ctx, pre.CaselineID)
		if err != nil {
			return err
		}
		if err := requireServiceCenter(cmd.Actor, caseline.ServiceCenterID); err != nil {
			return err
		}
		if component, err = lockComponent(ctx, repos, pre.ComponentID); err != nil {
			return err
		}
		if reservation, err = lockReservation(ctx, repos, cmd.ReservationID); err != nil {
			return err
		}

		if err := reservation.Install(now); err != nil {
			return err
		}
		if err := component.InstallOn(caseline.VehicleVIN, now); err != nil {
			return err
		}
		if err := repos.Components().Save(ctx, component); err != nil {
			return err
		}
		return repos.Reservations().Save(ctx, reservation)
	})
	if err != nil {
		return nil, s.fail(ctx, opInstall, err)
	}
	s.metrics.RecordReservation(opInstall, true)

	result := &ReservationResultDTO{
		Reservation:    ToReservationDTO(reservation),
		Component:      ToComponentDTO(component),
		CaselineStatus: string(caseline.Status),
	}
	s.dispatch.reservation(ctx, &domain.ReservationEvent{
		Name:            domain.EventComponentInstalled,
		CaselineID:      caseline.ID,
		ServiceCenterID: caseline.ServiceCenterID,
		Reservations:    []*domain.Reservation{reservation},
		Components:      []*domain.Component{component},
		ActorID:         cmd.Actor.UserID,
		Timestamp:       now,
	}, result)
	return result, nil
}

// ReturnReservedComponent records the old unit taken off the vehicle when the
// reserved one replaced it. The old unit must be a different, installed
// component of the same type on the same vehicle.
func (s *ReservationService) ReturnReservedComponent(ctx context.Context, cmd ReturnComponentCommand) (_ *ReturnResultDTO, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.ReturnReservedComponent",
		trace.WithAttributes(attribute.String("reservation.id", cmd.ReservationID)))
	defer func() { tracing.EndSpan(span, err) }()

	serial := strings.TrimSpace(cmd.SerialNumber)
	if serial == "" {
		return nil, s.fail(ctx, opReturn, domain.NewValidation("serialNumber", "is required"))
	}

	reader := s.uow.Reader()
	pre, err := reader.Reservations().FindByID(ctx, cmd.ReservationID)
	if err != nil {
		return nil, s.fail(ctx, opReturn, err)
	}
	preInstalled, err := reader.Components().FindByID(ctx, pre.ComponentID)
	if err != nil {
		return nil, s.fail(ctx, opReturn, err)
	}
	if serial == preInstalled.Serial() {
		return nil, s.fail(ctx, opReturn, errSameSerial())
	}
	preReturning, err := reader.Components().FindBySerialNumber(ctx, serial)
	if err != nil {
		return nil, s.fail(ctx, opReturn, err)
	}

	var (
		reservation *domain.Reservation
		returning   *domain.Component
		caseline    *domain.Caseline
	)
	now := s.now()
	err = s.uow.Execute(ctx, opReturn, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		caseline, err = repos.Caselines().LockByID(ctx, pre.CaselineID)
		if err != nil {
			return err
		}
		if err := requireServiceCenter(cmd.Actor, caseline.ServiceCenterID); err != nil {
			return err
		}

		locked, err := repos.Components().LockByIDs(ctx, []string{pre.ComponentID, preReturning.ID})
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.Component, len(locked))
		for _, c := range locked {
			byID[c.ID] = c
		}
		installed, ok := byID[pre.ComponentID]
		if !ok {
			return domain.NewNotFound("component", pre.ComponentID)
		}
		if returning, ok = byID[preReturning.ID]; !ok {
			return domain.NewNotFound("component with serial number", serial)
		}

		if reservation, err = lockReservation(ctx, repos, cmd.ReservationID); err != nil {
			return err
		}
		if err := reservation.CanReturn(); err != nil {
			return err
		}
		if returning.Serial() == installed.Serial() {
			return errSameSerial()
		}
		if returning.Status != domain.ComponentInstalled {
			return domain.NewStatusRequired("component", returning.ID, string(returning.Status), "be returned",
				string(domain.ComponentInstalled))
		}
		if returning.TypeComponentID != installed.TypeComponentID {
			return domain.NewConflict("returned component type %s does not match installed component type %s",
				returning.TypeComponentID, installed.TypeComponentID)
		}
		if returning.VehicleVIN == nil || *returning.VehicleVIN != caseline.VehicleVIN {
			return domain.NewConflict("component %s is not installed on vehicle %s", serial, caseline.VehicleVIN)
		}

		if err := reservation.Return(returning.ID, now); err != nil {
			return err
		}
		if err := returning.MarkReturned(); err != nil {
			return err
		}
		if err := repos.Components().Save(ctx, returning); err != nil {
			return err
		}
		return repos.Reservations().Save(ctx, reservation)
	})
	if err != nil {
		return nil, s.fail(ctx, opReturn, err)
	}
	s.metrics.RecordReservation(opReturn, true)

	result := &ReturnResultDTO{
		Reservation:       ToReservationDTO(reservation),
		ReturnedComponent: ToComponentDTO(returning),
	}
	s.dispatch.reservation(ctx, &domain.ReservationEvent{
		Name:            domain.EventComponentReturned,
		CaselineID:      caseline.ID,
		ServiceCenterID: caseline.ServiceCenterID,
		Reservations:    []*domain.Reservation{reservation},
		Components:      []*domain.Component{returning},
		ActorID:         cmd.Actor.UserID,
		Timestamp:       now,
	}, result)
	return result, nil
}

func errSameSerial() error {
	return domain.NewValidation("serialNumber", "must be different from the installed one")
}

func lockComponent(ctx context.Context, repos domain.Repositories, id string) (*domain.Component, error) {
	components, err := repos.Components().LockByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, domain.NewNotFound("component", id)
	}
	return components[0], nil
}

func lockReservation(ctx context.Context, repos domain.Repositories, id string) (*domain.Reservation, error) {
	reservations, err := repos.Reservations().LockByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return nil, domain.NewNotFound("reservation", id)
	}
	return reservations[0], nil
}

func allPickedUp(reservations []*domain.Reservation) bool {
	for _, r := range reservations {
		if r.Status == domain.ReservationReserved {
			return false
		}
	}
	return len(reservations) > 0
}

func warehouseIDs(warehouses []*domain.Warehouse) []string {
	ids := make([]string, len(warehouses))
	for i, w := range warehouses {
		ids[i] = w.ID
	}
	return ids
}

func indexStocks(stocks []*domain.StockRecord) map[string]*domain.StockRecord {
	byID := make(map[string]*domain.StockRecord, len(stocks))
	for _, s := range stocks {
		byID[s.ID] = s
	}
	return byID
}

// distinctSorted returns ids without duplicates in ascending order, the order
// multi-row locks are taken in
func distinctSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// requireServiceCenter lets company staff act anywhere and service center
// staff only within their own service center
func requireServiceCenter(actor Actor, serviceCenterID string) error {
	if actor.Role.IsCompanyRole() {
		return nil
	}
	if actor.ServiceCenterID != serviceCenterID {
		return &domain.ForbiddenError{Message: "caller does not belong to service center " + serviceCenterID}
	}
	return nil
}
