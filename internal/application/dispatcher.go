package application

import (
	"context"
	"time"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
)

// TransferNotification is the payload sent for transfer request events
type TransferNotification struct {
	Event      string            `json:"event"`
	ActorID    string            `json:"actorId"`
	OccurredAt time.Time         `json:"occurredAt"`
	Result     TransferResultDTO `json:"result"`
}

// ReservationNotification is the payload sent for reservation events
type ReservationNotification struct {
	Event      string    `json:"event"`
	CaselineID string    `json:"caselineId"`
	ActorID    string    `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
	Snapshot   any       `json:"snapshot"`
}

// dispatcher runs the post-commit side effects of an operation. None of them
// can fail the operation: errors are logged and counted only.
type dispatcher struct {
	notifier  Notifier
	projector TransferRequestProjector
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

func (d *dispatcher) send(ctx context.Context, room, event string, payload any) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.SendToRoom(ctx, room, event, payload); err != nil {
		d.metrics.RecordNotificationDropped(event)
		d.logger.WithContext(ctx).WithError(err).Warn("Failed to send notification",
			"room", room,
			"event", event,
		)
	}
}

// transferRooms routes each transition to the party that acts next
func transferRooms(event string, r *domain.StockTransferRequest) []string {
	switch event {
	case domain.EventTransferCreated, domain.EventTransferReceived:
		return []string{CompanyRoom(r.CompanyID)}
	case domain.EventTransferApproved, domain.EventTransferRejected, domain.EventTransferShipped:
		return []string{ServiceCenterRoom(r.ServiceCenterID)}
	case domain.EventTransferCancelled:
		return []string{CompanyRoom(r.CompanyID), ServiceCenterRoom(r.ServiceCenterID)}
	}
	return nil
}

func (d *dispatcher) transfer(ctx context.Context, event *domain.TransferRequestEvent, result TransferResultDTO) {
	payload := TransferNotification{
		Event:      event.Name,
		ActorID:    event.ActorID,
		OccurredAt: event.Timestamp,
		Result:     result,
	}
	for _, room := range transferRooms(event.Name, event.Request) {
		d.send(ctx, room, event.Name, payload)
	}

	if d.projector != nil {
		if err := d.projector.OnTransferRequestEvent(ctx, event); err != nil {
			d.logger.WithContext(ctx).WithError(err).Warn("Failed to update transfer request projection",
				"requestId", event.Request.ID,
				"event", event.Name,
			)
		}
	}

	d.logger.Audit(ctx, event.Name, "stock_transfer_request", event.Request.ID, event.ActorID, map[string]any{
		"status": string(event.Request.Status),
	})
}

func (d *dispatcher) reservation(ctx context.Context, event *domain.ReservationEvent, snapshot any) {
	payload := ReservationNotification{
		Event:      event.Name,
		CaselineID: event.CaselineID,
		ActorID:    event.ActorID,
		OccurredAt: event.Timestamp,
		Snapshot:   snapshot,
	}
	d.send(ctx, ServiceCenterRoom(event.ServiceCenterID), event.Name, payload)

	d.logger.Audit(ctx, event.Name, "caseline", event.CaselineID, event.ActorID, map[string]any{
		"reservations": len(event.Reservations),
	})
}
