package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oem-ev-warranty/parts-service/internal/application"
	"github.com/oem-ev-warranty/parts-service/pkg/errors"
	"github.com/oem-ev-warranty/parts-service/pkg/middleware"
)

// Reconciler produces a ledger/registry drift report
type Reconciler interface {
	Run(ctx context.Context) (*application.ReconciliationReportDTO, error)
}

// ReconciliationHandlers exposes an on-demand reconciliation run to OEM staff
type ReconciliationHandlers struct {
	reconciler Reconciler
}

// NewReconciliationHandlers creates a new ReconciliationHandlers
func NewReconciliationHandlers(reconciler Reconciler) *ReconciliationHandlers {
	return &ReconciliationHandlers{reconciler: reconciler}
}

// RegisterRoutes registers the reconciliation route
func (h *ReconciliationHandlers) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/reconciliation", middleware.WrapHandler(h.Run))
}

// Run reconciles and returns the drift report. Only company roles may call it.
func (h *ReconciliationHandlers) Run(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if !actor.Role.IsCompanyRole() {
		return errors.ErrForbidden("reconciliation is restricted to company staff")
	}

	report, err := h.reconciler.Run(c.Request.Context())
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, report)
	return nil
}
