package application

import (
	"context"
	"time"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/projections"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/oem-ev-warranty/parts-service/internal/application")

// Actor is the authenticated caller. It is trusted as given.
type Actor struct {
	UserID          string
	Role            domain.Role
	ServiceCenterID string
	CompanyID       string
}

// Notifier delivers a workflow event to a room. Delivery is best effort.
type Notifier interface {
	SendToRoom(ctx context.Context, room, event string, payload any) error
}

// CompatibilityChecker answers whether a component type fits a vehicle model
type CompatibilityChecker interface {
	IsCompatible(ctx context.Context, vehicleModelID, typeComponentID string) (bool, error)
}

// TransferRequestReadModel is the listing side of the transfer request projection
type TransferRequestReadModel interface {
	FindWithFilter(ctx context.Context, filter projections.TransferRequestFilter, page projections.Pagination) (*projections.PagedResult[projections.TransferRequestProjection], error)
}

// TransferRequestProjector keeps the read model in step with committed transitions
type TransferRequestProjector interface {
	OnTransferRequestEvent(ctx context.Context, event *domain.TransferRequestEvent) error
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// ServiceCenterRoom is the notification room of one service center
func ServiceCenterRoom(serviceCenterID string) string {
	return "service_center:" + serviceCenterID
}

// CompanyRoom is the notification room of the OEM company staff
func CompanyRoom(companyID string) string {
	return "company:" + companyID
}
