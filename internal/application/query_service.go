package application

import (
	"context"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/projections"
	"github.com/oem-ev-warranty/parts-service/pkg/api"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TransferQueryService answers reads about stock transfer requests. Single
// requests come from the relational store; listings come from the read model
// when one is configured.
type TransferQueryService struct {
	uow       domain.UnitOfWork
	readModel TransferRequestReadModel
	logger    *logging.Logger
}

// NewTransferQueryService creates a TransferQueryService. readModel may be nil.
func NewTransferQueryService(uow domain.UnitOfWork, readModel TransferRequestReadModel, logger *logging.Logger) *TransferQueryService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TransferQueryService{
		uow:       uow,
		readModel: readModel,
		logger:    logger.WithComponent("transfer-query-service"),
	}
}

// GetStockTransferRequest returns a request with its stock reservations and
// the components shipped for it
func (s *TransferQueryService) GetStockTransferRequest(ctx context.Context, query GetTransferRequestQuery) (_ *TransferResultDTO, err error) {
	ctx, span := tracer.Start(ctx, "TransferQueryService.GetStockTransferRequest",
		trace.WithAttributes(attribute.String("transfer_request.id", query.RequestID)))
	defer func() { tracing.EndSpan(span, err) }()

	repos := s.uow.Reader()
	request, err := repos.TransferRequests().FindByID(ctx, query.RequestID)
	if err != nil {
		return nil, toAppError("transfer.get", err)
	}
	if err := requireRequestScope(query.Actor, request); err != nil {
		return nil, toAppError("transfer.get", err)
	}

	reservations, err := repos.StockReservations().FindByRequest(ctx, request.ID)
	if err != nil {
		return nil, toAppError("transfer.get", err)
	}
	components, err := repos.Components().FindByTransferRequest(ctx, request.ID)
	if err != nil {
		return nil, toAppError("transfer.get", err)
	}

	return &TransferResultDTO{
		Request:           ToTransferRequestDTO(request),
		StockReservations: ToStockReservationDTOs(reservations),
		Components:        ToComponentDTOs(components),
	}, nil
}

// ListStockTransferRequests pages through requests newest first. Service
// center staff only ever see their own service center.
func (s *TransferQueryService) ListStockTransferRequests(ctx context.Context, query ListTransferRequestsQuery) (_ *api.PageResponse[TransferRequestSummaryDTO], err error) {
	ctx, span := tracer.Start(ctx, "TransferQueryService.ListStockTransferRequests")
	defer func() { tracing.EndSpan(span, err) }()

	if query.Status != "" && !domain.TransferStatus(query.Status).IsValid() {
		return nil, toAppError("transfer.list", domain.NewValidation("status", "unknown transfer status "+query.Status))
	}

	serviceCenterID := query.ServiceCenterID
	companyID := ""
	if query.Actor.Role.IsCompanyRole() {
		companyID = query.Actor.CompanyID
	} else {
		if serviceCenterID != "" && serviceCenterID != query.Actor.ServiceCenterID {
			return nil, toAppError("transfer.list", &domain.ForbiddenError{Message: "caller does not belong to service center " + serviceCenterID})
		}
		serviceCenterID = query.Actor.ServiceCenterID
	}

	page := api.PageRequest{Page: int64(query.Page), PageSize: int64(query.PageSize)}.Normalize()

	var (
		rows  []TransferRequestSummaryDTO
		total int64
	)
	if s.readModel != nil {
		result, err := s.readModel.FindWithFilter(ctx, projections.TransferRequestFilter{
			Status:                query.Status,
			RequestingWarehouseID: query.RequestingWarehouseID,
			ServiceCenterID:       serviceCenterID,
			CompanyID:             companyID,
		}, projections.Pagination{Limit: int(page.PageSize), Offset: int(page.Offset())})
		if err != nil {
			return nil, toAppError("transfer.list", err)
		}
		rows = make([]TransferRequestSummaryDTO, len(result.Items))
		for i := range result.Items {
			rows[i] = ToTransferSummaryFromProjection(&result.Items[i])
		}
		total = result.Total
	} else {
		requests, count, err := s.uow.Reader().TransferRequests().List(ctx, domain.TransferRequestFilter{
			Status:                domain.TransferStatus(query.Status),
			RequestingWarehouseID: query.RequestingWarehouseID,
			ServiceCenterID:       serviceCenterID,
			CompanyID:             companyID,
		}, int(page.Offset()), int(page.PageSize))
		if err != nil {
			return nil, toAppError("transfer.list", err)
		}
		rows = make([]TransferRequestSummaryDTO, len(requests))
		for i, r := range requests {
			rows[i] = ToTransferSummaryFromRequest(r)
		}
		total = count
	}

	response := api.NewPageResponse(rows, page, total)
	return &response, nil
}
