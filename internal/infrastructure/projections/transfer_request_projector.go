package projections

import (
	"context"
	"sort"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
)

// TransferRequestProjector keeps the read model in step with committed
// transfer request transitions
type TransferRequestProjector struct {
	projectionRepo TransferRequestProjectionRepository
	logger         *logging.Logger
}

// NewTransferRequestProjector creates a projector
func NewTransferRequestProjector(projectionRepo TransferRequestProjectionRepository, logger *logging.Logger) *TransferRequestProjector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TransferRequestProjector{
		projectionRepo: projectionRepo,
		logger:         logger.WithComponent("transfer-request-projector"),
	}
}

// OnTransferRequestEvent rebuilds the projection from the request carried by the event
func (p *TransferRequestProjector) OnTransferRequestEvent(ctx context.Context, event *domain.TransferRequestEvent) error {
	projection := Project(event)
	if err := p.projectionRepo.Upsert(ctx, projection); err != nil {
		p.logger.Error("Failed to upsert transfer request projection", "requestId", projection.RequestID, "error", err)
		return err
	}
	p.logger.Debug("Transfer request projection updated",
		"requestId", projection.RequestID,
		"status", projection.Status,
	)
	return nil
}

// Project builds the listing row of the request after the event
func Project(event *domain.TransferRequestEvent) *TransferRequestProjection {
	r := event.Request

	items := make([]TransferItemProjection, len(r.Items))
	types := make(map[string]bool)
	total := 0
	for i, item := range r.Items {
		items[i] = TransferItemProjection{
			TypeComponentID:   item.TypeComponentID,
			QuantityRequested: item.QuantityRequested,
			CaselineID:        item.CaselineID,
		}
		types[item.TypeComponentID] = true
		total += item.QuantityRequested
	}
	typeIDs := make([]string, 0, len(types))
	for id := range types {
		typeIDs = append(typeIDs, id)
	}
	sort.Strings(typeIDs)

	closedAt := r.ReceivedAt
	switch r.Status {
	case domain.TransferRejected:
		closedAt = r.RejectedAt
	case domain.TransferCancelled:
		closedAt = r.CancelledAt
	}

	return &TransferRequestProjection{
		RequestID:             r.ID,
		Status:                string(r.Status),
		RequestingWarehouseID: r.RequestingWarehouseID,
		ServiceCenterID:       r.ServiceCenterID,
		CompanyID:             r.CompanyID,
		RequestedByID:         r.RequestedByID,
		Items:                 items,
		TotalQuantity:         total,
		TypeComponentIDs:      typeIDs,
		LastEvent:             event.Name,
		LastActorID:           event.ActorID,
		RequestedAt:           r.RequestedAt,
		EstimatedDeliveryDate: r.EstimatedDeliveryDate,
		ClosedAt:              closedAt,
		UpdatedAt:             event.Timestamp,
	}
}
