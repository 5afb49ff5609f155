package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oem-ev-warranty/parts-service/internal/application"
	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/errors"
	"github.com/oem-ev-warranty/parts-service/pkg/middleware"
)

// actorFrom turns the identity set by middleware.RequireIdentity into the
// application's Actor
func actorFrom(c *gin.Context) (application.Actor, error) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return application.Actor{}, errors.ErrUnauthorized("missing caller identity")
	}

	role := domain.Role(id.Role)
	if !role.IsValid() {
		return application.Actor{}, errors.ErrForbidden("unknown role " + id.Role)
	}

	trace.SpanFromContext(c.Request.Context()).SetAttributes(
		attribute.String("actor.id", id.UserID),
		attribute.String("actor.role", id.Role),
	)

	return application.Actor{
		UserID:          id.UserID,
		Role:            role,
		ServiceCenterID: id.ServiceCenterID,
		CompanyID:       id.CompanyID,
	}, nil
}
