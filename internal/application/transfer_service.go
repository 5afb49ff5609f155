package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
	"github.com/oem-ev-warranty/parts-service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TransferService drives stock transfer requests from a service center
// shortage through OEM approval, shipment and receipt
type TransferService struct {
	uow      domain.UnitOfWork
	policy   *domain.Policy
	dispatch *dispatcher
	metrics  *metrics.Metrics
	logger   *logging.Logger
	now      Clock
}

// NewTransferService creates a TransferService. notifier and projector may be nil.
func NewTransferService(
	uow domain.UnitOfWork,
	policy *domain.Policy,
	notifier Notifier,
	projector TransferRequestProjector,
	m *metrics.Metrics,
	logger *logging.Logger,
) *TransferService {
	if logger == nil {
		logger = logging.NewNop()
	}
	if policy == nil {
		policy = domain.DefaultPolicy()
	}
	logger = logger.WithComponent("transfer-service")
	return &TransferService{
		uow:      uow,
		policy:   policy,
		dispatch: &dispatcher{notifier: notifier, projector: projector, metrics: m, logger: logger},
		metrics:  m,
		logger:   logger,
		now:      systemClock,
	}
}

func txName(op domain.Operation) string {
	return "transfer." + string(op)
}

func (s *TransferService) fail(ctx context.Context, op domain.Operation, err error) error {
	s.metrics.RecordTransferTransition(string(op), false)
	if domain.IsConsistencyFault(err) {
		s.metrics.RecordConsistencyFault(txName(op))
		s.logger.WithContext(ctx).WithOperation(txName(op)).WithError(err).Error("Ledger and component registry disagree")
	}
	return toAppError(txName(op), err)
}

func (s *TransferService) succeed(ctx context.Context, op domain.Operation, eventName string, request *domain.StockTransferRequest, actor Actor, result *TransferResultDTO) {
	s.metrics.RecordTransferTransition(string(op), true)
	s.dispatch.transfer(ctx, &domain.TransferRequestEvent{
		Name:      eventName,
		Request:   request,
		ActorID:   actor.UserID,
		Timestamp: s.now(),
	}, *result)
	s.logger.WithContext(ctx).Info("Stock transfer request "+string(request.Status),
		"requestId", request.ID,
		"operation", string(op),
		"userId", actor.UserID,
	)
}

// transition locks the request, checks the caller against the role policy and
// the request's scope, runs fn and saves the request, all in one transaction
func (s *TransferService) transition(
	ctx context.Context,
	op domain.Operation,
	actor Actor,
	requestID string,
	fn func(ctx context.Context, repos domain.Repositories, request *domain.StockTransferRequest) error,
) (*domain.StockTransferRequest, error) {
	if requestID == "" {
		return nil, domain.NewValidation("requestId", "is required")
	}

	var request *domain.StockTransferRequest
	err := s.uow.Execute(ctx, txName(op), func(ctx context.Context, repos domain.Repositories) error {
		var err error
		request, err = repos.TransferRequests().LockByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(op, actor.Role, request.ID, request.Status); err != nil {
			return err
		}
		if err := requireRequestScope(actor, request); err != nil {
			return err
		}
		if err := fn(ctx, repos, request); err != nil {
			return err
		}
		return repos.TransferRequests().Save(ctx, request)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func startSpan(ctx context.Context, name, requestID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("transfer_request.id", requestID)))
}

// CreateStockTransferRequest opens a request for the caller's service center
// warehouse. Originating caselines wait for the parts.
func (s *TransferService) CreateStockTransferRequest(ctx context.Context, cmd CreateTransferRequestCommand) (_ *TransferResultDTO, err error) {
	ctx, span := tracer.Start(ctx, "TransferService.CreateStockTransferRequest",
		trace.WithAttributes(attribute.String("warehouse.id", cmd.RequestingWarehouseID)))
	defer func() { tracing.EndSpan(span, err) }()

	if err := validateItems(cmd); err != nil {
		return nil, s.fail(ctx, domain.OpCreate, err)
	}
	if err := s.policy.Authorize(domain.OpCreate, cmd.Actor.Role, "", ""); err != nil {
		return nil, s.fail(ctx, domain.OpCreate, err)
	}

	var request *domain.StockTransferRequest
	now := s.now()
	err = s.uow.Execute(ctx, txName(domain.OpCreate), func(ctx context.Context, repos domain.Repositories) error {
		warehouse, err := repos.Warehouses().FindByID(ctx, cmd.RequestingWarehouseID)
		if err != nil {
			return err
		}
		if warehouse.IsCompanyWarehouse() {
			return domain.NewValidation("requestingWarehouseId", "must be a service center warehouse")
		}
		serviceCenterID := *warehouse.ServiceCenterID
		if cmd.Actor.ServiceCenterID != serviceCenterID {
			return &domain.ForbiddenError{Message: "caller does not belong to service center " + serviceCenterID}
		}

		specs := make([]domain.NewItemSpec, len(cmd.Items))
		var ids []string
		for i, item := range cmd.Items {
			specs[i] = domain.NewItemSpec{
				TypeComponentID:   item.TypeComponentID,
				QuantityRequested: item.QuantityRequested,
			}
			if item.CaselineID != "" {
				caselineID := item.CaselineID
				specs[i].CaselineID = &caselineID
				ids = append(ids, caselineID)
			}
		}

		caselines, err := repos.Caselines().LockByIDs(ctx, distinctSorted(ids))
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.Caseline, len(caselines))
		for _, c := range caselines {
			byID[c.ID] = c
		}
		for _, item := range cmd.Items {
			if item.CaselineID == "" {
				continue
			}
			c, ok := byID[item.CaselineID]
			if !ok {
				return domain.NewNotFound("caseline", item.CaselineID)
			}
			if c.ServiceCenterID != serviceCenterID {
				return domain.NewConflict("caseline %s belongs to another service center", c.ID)
			}
			if c.TypeComponentID != item.TypeComponentID {
				return domain.NewConflict("caseline %s needs component type %s, not %s", c.ID, c.TypeComponentID, item.TypeComponentID)
			}
		}
		for _, c := range caselines {
			if err := c.MarkWaitingForParts(); err != nil {
				return err
			}
			if err := repos.Caselines().Save(ctx, c); err != nil {
				return err
			}
		}

		request = domain.NewStockTransferRequest(warehouse, cmd.Actor.UserID, specs, now)
		return repos.TransferRequests().Create(ctx, request)
	})
	if err != nil {
		return nil, s.fail(ctx, domain.OpCreate, err)
	}

	result := &TransferResultDTO{Request: ToTransferRequestDTO(request)}
	s.succeed(ctx, domain.OpCreate, domain.EventTransferCreated, request, cmd.Actor, result)
	return result, nil
}

func validateItems(cmd CreateTransferRequestCommand) error {
	if cmd.RequestingWarehouseID == "" {
		return domain.NewValidation("requestingWarehouseId", "is required")
	}
	if len(cmd.Items) == 0 {
		return domain.NewValidation("items", "at least one item is required")
	}
	for _, item := range cmd.Items {
		if strings.TrimSpace(item.TypeComponentID) == "" {
			return domain.NewValidation("items.typeComponentId", "is required")
		}
		if item.QuantityRequested <= 0 {
			return domain.NewValidation("items.quantityRequested", "must be greater than zero")
		}
	}
	return nil
}

// ApproveStockTransferRequest reserves the requested quantities at the OEM
// warehouses in priority order. Every item is reserved or none is.
func (s *TransferService) ApproveStockTransferRequest(ctx context.Context, cmd ApproveTransferRequestCommand) (_ *TransferResultDTO, err error) {
	ctx, span := startSpan(ctx, "TransferService.ApproveStockTransferRequest", cmd.RequestID)
	defer func() { tracing.EndSpan(span, err) }()

	var reservations []*domain.StockReservation
	now := s.now()
	request, err := s.transition(ctx, domain.OpApprove, cmd.Actor, cmd.RequestID, func(ctx context.Context, repos domain.Repositories, request *domain.StockTransferRequest) error {
		warehouses, err := repos.Warehouses().FindCompanyWarehouses(ctx, request.CompanyID)
		if err != nil {
			return err
		}
		types := request.TypeComponentIDs()
		stocks, err := repos.Stocks().LockCandidates(ctx, warehouseIDs(warehouses), types)
		if err != nil {
			return err
		}
		domain.SortByWarehousePriority(stocks, warehouses)
		byType := domain.GroupByType(stocks)

		needed := request.QuantityByType()
		for _, typeID := range types {
			if available := domain.TotalAvailable(byType[typeID]); available < needed[typeID] {
				return &domain.InsufficientStockError{
					TypeComponentID: typeID,
					Requested:       needed[typeID],
					Available:       available,
				}
			}
		}

		byID := indexStocks(stocks)
		for i := range request.Items {
			item := &request.Items[i]
			allocations := domain.Allocate(byType[item.TypeComponentID], item.QuantityRequested)
			if got := domain.Allocated(allocations); got != item.QuantityRequested {
				return domain.NewConsistencyFault(txName(domain.OpApprove),
					"allocated %d of %d units for item %s after availability check", got, item.QuantityRequested, item.ID)
			}
			for _, a := range allocations {
				if err := byID[a.StockID].Reserve(a.Quantity); err != nil {
					return err
				}
				reservations = append(reservations, domain.NewStockReservation(request.ID, item, a))
			}
		}

		for _, stock := range stocks {
			if err := repos.Stocks().Save(ctx, stock); err != nil {
				return err
			}
		}
		if err := repos.StockReservations().Create(ctx, reservations); err != nil {
			return err
		}
		return request.Approve(cmd.Actor.UserID, now)
	})
	if err != nil {
		return nil, s.fail(ctx, domain.OpApprove, err)
	}

	result := &TransferResultDTO{
		Request:           ToTransferRequestDTO(request),
		StockReservations: ToStockReservationDTOs(reservations),
	}
	s.succeed(ctx, domain.OpApprove, domain.EventTransferApproved, request, cmd.Actor, result)
	return result, nil
}

// ShipStockTransferRequest puts the reserved quantity in transit. Each stock
// reservation is fulfilled by that many available components at its warehouse.
func (s *TransferService) ShipStockTransferRequest(ctx context.Context, cmd ShipTransferRequestCommand) (_ *TransferResultDTO, err error) {
	ctx, span := startSpan(ctx, "TransferService.ShipStockTransferRequest", cmd.RequestID)
	defer func() { tracing.EndSpan(span, err) }()

	now := s.now()
	if cmd.EstimatedDeliveryDate == nil {
		return nil, s.fail(ctx, domain.OpShip, domain.NewValidation("estimatedDeliveryDate", "is required"))
	}
	if cmd.EstimatedDeliveryDate.Before(now.Truncate(24 * time.Hour)) {
		return nil, s.fail(ctx, domain.OpShip, domain.NewValidation("estimatedDeliveryDate", "must not be in the past"))
	}

	var (
		shipped      []*domain.Component
		reservations []*domain.StockReservation
	)
	request, err := s.transition(ctx, domain.OpShip, cmd.Actor, cmd.RequestID, func(ctx context.Context, repos domain.Repositories, request *domain.StockTransferRequest) error {
		op := txName(domain.OpShip)
		held, err := repos.StockReservations().FindByRequest(ctx, request.ID)
		if err != nil {
			return err
		}
		if len(held) == 0 {
			return domain.NewConsistencyFault(op, "approved request %s holds no stock reservations", request.ID)
		}

		stockIDs := make([]string, len(held))
		for i, sr := range held {
			stockIDs[i] = sr.StockID
		}
		stocks, err := repos.Stocks().LockByIDs(ctx, distinctSorted(stockIDs))
		if err != nil {
			return err
		}
		byID := indexStocks(stocks)

		for _, sr := range held {
			stock, ok := byID[sr.StockID]
			if !ok {
				return domain.NewConsistencyFault(op, "stock %s of reservation %s does not exist", sr.StockID, sr.ID)
			}
			if sr.Status != domain.StockReservationReserved {
				return domain.NewConsistencyFault(op, "stock reservation %s is %s", sr.ID, sr.Status)
			}

			units, err := repos.Components().LockAvailable(ctx, sr.WarehouseID, sr.TypeComponentID, sr.Quantity)
			if err != nil {
				return err
			}
			if len(units) < sr.Quantity {
				return domain.NewConsistencyFault(op,
					"warehouse %s holds %d available components of type %s but %d are reserved for request %s",
					sr.WarehouseID, len(units), sr.TypeComponentID, sr.Quantity, request.ID)
			}
			for _, unit := range units {
				if err := unit.Ship(request.ID); err != nil {
					return err
				}
				if err := repos.Components().Save(ctx, unit); err != nil {
					return err
				}
			}
			shipped = append(shipped, units...)

			if err := stock.Withdraw(op, sr.Quantity); err != nil {
				return err
			}
		}
		for _, stock := range stocks {
			if err := repos.Stocks().Save(ctx, stock); err != nil {
				return err
			}
		}

		reservations, err = repos.StockReservations().LockByRequest(ctx, request.ID)
		if err != nil {
			return err
		}
		for _, sr := range reservations {
			if err := sr.MarkShipped(); err != nil {
				return err
			}
			if err := repos.StockReservations().Save(ctx, sr); err != nil {
				return err
			}
		}
		return request.Ship(cmd.Actor.UserID, cmd.EstimatedDeliveryDate, now)
	})
	if err != nil {
		return nil, s.fail(ctx, domain.OpShip, err)
	}

	result := &TransferResultDTO{
		Request:           ToTransferRequestDTO(request),
		StockReservations: ToStockReservationDTOs(reservations),
		Components:        ToComponentDTOs(shipped),
	}
	s.succeed(ctx, domain.OpShip, domain.EventTransferShipped, request, cmd.Actor, result)
	return result, nil
}

// ReceiveStockTransferRequest lands every in-transit component of the request
// at the requesting warehouse as unreserved stock
func (s *TransferService) ReceiveStockTransferRequest(ctx context.Context, cmd ReceiveTransferRequestCommand) (_ *TransferResultDTO, err error) {
	ctx, span := startSpan(ctx, "TransferService.ReceiveStockTransferRequest", cmd.RequestID)
	defer func() { tracing.EndSpan(span, err) }()

	var received []*domain.Component
	now := s.now()
	request, err := s.transition(ctx, domain.OpReceive, cmd.Actor, cmd.RequestID, func(ctx context.Context, repos domain.Repositories, request *domain.StockTransferRequest) error {
		op := txName(domain.OpReceive)
		destination := request.RequestingWarehouseID

		caselines, err := repos.Caselines().LockByIDs(ctx, distinctSorted(request.CaselineIDs()))
		if err != nil {
			return err
		}

		types := request.TypeComponentIDs()
		sort.Strings(types)
		if err := repos.Stocks().EnsureExists(ctx, destination, types); err != nil {
			return err
		}
		stocks, err := repos.Stocks().LockCandidates(ctx, []string{destination}, types)
		if err != nil {
			return err
		}
		byType := make(map[string]*domain.StockRecord, len(stocks))
		for _, stock := range stocks {
			byType[stock.TypeComponentID] = stock
		}

		received, err = repos.Components().LockInTransit(ctx, request.ID)
		if err != nil {
			return err
		}
		arrived := make(map[string]int)
		for _, unit := range received {
			arrived[unit.TypeComponentID]++
		}
		for typeID, want := range request.QuantityByType() {
			if arrived[typeID] != want {
				return domain.NewConsistencyFault(op, "request %s shipped %d components of type %s but %d are in transit",
					request.ID, want, typeID, arrived[typeID])
			}
		}

		for _, unit := range received {
			if err := unit.ReceiveAt(destination); err != nil {
				return err
			}
			if err := repos.Components().Save(ctx, unit); err != nil {
				return err
			}
		}
		for _, typeID := range types {
			stock, ok := byType[typeID]
			if !ok {
				return domain.NewConsistencyFault(op, "no stock record for type %s at warehouse %s", typeID, destination)
			}
			stock.Receive(arrived[typeID])
			if err := repos.Stocks().Save(ctx, stock); err != nil {
				return err
			}
		}

		for _, c := range caselines {
			if c.Status != domain.CaselineWaitingForParts {
				s.logger.WithContext(ctx).Warn("Caseline no longer waiting for parts, status left unchanged",
					"caselineId", c.ID,
					"status", string(c.Status),
					"requestId", request.ID,
				)
				continue
			}
			if err := c.MarkReadyForRepair(); err != nil {
				return err
			}
			if err := repos.Caselines().Save(ctx, c); err != nil {
				return err
			}
		}
		return request.Receive(cmd.Actor.UserID, now)
	})
	if err != nil {
		return nil, s.fail(ctx, domain.OpReceive, err)
	}

	result := &TransferResultDTO{
		Request:    ToTransferRequestDTO(request),
		Components: ToComponentDTOs(received),
	}
	s.succeed(ctx, domain.OpReceive, domain.EventTransferReceived, request, cmd.Actor, result)
	return result, nil
}

// RejectStockTransferRequest declines a pending request. Nothing was reserved
// yet; originating caselines go back to CUSTOMER_APPROVED.
func (s *TransferService) RejectStockTransferRequest(ctx context.Context, cmd RejectTransferRequestCommand) (_ *TransferResultDTO, err error) {
	ctx, span := startSpan(ctx, "TransferService.RejectStockTransferRequest", cmd.RequestID)
	defer func() { tracing.EndSpan(span, err) }()

	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return nil, s.fail(ctx, domain.OpReject, domain.NewValidation("reason", "is required"))
	}

	now := s.now()
	request, err := s.transition(ctx, domain.OpReject, cmd.Actor, cmd.RequestID, func(ctx context.Context, repos domain.Repositories, request *domain.StockTransferRequest) error {
		if err := request.Reject(cmd.Actor.UserID, reason, now); err != nil {
			return err
		}
		return releaseCaselines(ctx, repos, request)
	})
	if err != nil {
		return nil, s.fail(ctx, domain.OpReject, err)
	}

	result := &TransferResultDTO{Request: ToTransferRequestDTO(request)}
	s.succeed(ctx, domain.OpReject, domain.EventTransferRejected, request, cmd.Actor, result)
	return result, nil
}

// CancelStockTransferRequest withdraws a request. Cancelling an approved
// request gives the reserved OEM quantity back.
func (s *TransferService) CancelStockTransferRequest(ctx context.Context, cmd CancelTransferRequestCommand) (_ *TransferResultDTO, err error) {
	ctx, span := startSpan(ctx, "TransferService.CancelStockTransferRequest", cmd.RequestID)
	defer func() { tracing.EndSpan(span, err) }()

	var released []*domain.StockReservation
	now := s.now()
	request, err := s.transition(ctx, domain.OpCancel, cmd.Actor, cmd.RequestID, func(ctx context.Context, repos domain.Repositories, request *domain.StockTransferRequest) error {
		op := txName(domain.OpCancel)

		releaseStock, err := request.Cancel(cmd.Actor.UserID, strings.TrimSpace(cmd.Reason), now)
		if err != nil {
			return err
		}
		if releaseStock {
			held, err := repos.StockReservations().FindByRequest(ctx, request.ID)
			if err != nil {
				return err
			}
			stockIDs := make([]string, 0, len(held))
			for _, sr := range held {
				stockIDs = append(stockIDs, sr.StockID)
			}
			stocks, err := repos.Stocks().LockByIDs(ctx, distinctSorted(stockIDs))
			if err != nil {
				return err
			}
			byID := indexStocks(stocks)
			for _, sr := range held {
				stock, ok := byID[sr.StockID]
				if !ok {
					return domain.NewConsistencyFault(op, "stock %s of reservation %s does not exist", sr.StockID, sr.ID)
				}
				if err := stock.Release(op, sr.Quantity); err != nil {
					return err
				}
			}
			for _, stock := range stocks {
				if err := repos.Stocks().Save(ctx, stock); err != nil {
					return err
				}
			}

			released, err = repos.StockReservations().LockByRequest(ctx, request.ID)
			if err != nil {
				return err
			}
			for _, sr := range released {
				if err := sr.Cancel(); err != nil {
					return err
				}
				if err := repos.StockReservations().Save(ctx, sr); err != nil {
					return err
				}
			}
		}
		return releaseCaselines(ctx, repos, request)
	})
	if err != nil {
		return nil, s.fail(ctx, domain.OpCancel, err)
	}

	result := &TransferResultDTO{
		Request:           ToTransferRequestDTO(request),
		StockReservations: ToStockReservationDTOs(released),
	}
	s.succeed(ctx, domain.OpCancel, domain.EventTransferCancelled, request, cmd.Actor, result)
	return result, nil
}

// releaseCaselines lets the originating caselines of a closed request source
// their parts again
func releaseCaselines(ctx context.Context, repos domain.Repositories, request *domain.StockTransferRequest) error {
	caselines, err := repos.Caselines().LockByIDs(ctx, distinctSorted(request.CaselineIDs()))
	if err != nil {
		return err
	}
	for _, c := range caselines {
		if !c.ReleaseWaitingForParts() {
			continue
		}
		if err := repos.Caselines().Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// requireRequestScope keeps company staff to their company's requests and
// service center staff to their own service center's requests
func requireRequestScope(actor Actor, request *domain.StockTransferRequest) error {
	if actor.Role.IsCompanyRole() {
		if actor.CompanyID != "" && actor.CompanyID != request.CompanyID {
			return &domain.ForbiddenError{Message: "request belongs to another company"}
		}
		return nil
	}
	return requireServiceCenter(actor, request.ServiceCenterID)
}
