package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
	"github.com/oem-ev-warranty/parts-service/pkg/middleware"
)

// RouterConfig collects what the HTTP surface needs
type RouterConfig struct {
	ServiceName   string
	Logger        *logging.Logger
	Metrics       *metrics.Metrics
	EnableTracing bool
	Ready         func(ctx context.Context) error

	Reservations ReservationService
	Transfers    TransferService
	Queries      TransferQueries
	Reconciler   Reconciler
}

// NewRouter builds the gin engine with the standard middleware chain, the
// probes and the /api/v1 routes. Every /api/v1 route requires the caller
// identity headers.
func NewRouter(config RouterConfig) *gin.Engine {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}

	router := gin.New()
	middleware.Setup(router, &middleware.Config{
		Logger:        config.Logger,
		Metrics:       config.Metrics,
		ServiceName:   config.ServiceName,
		EnableTracing: config.EnableTracing,
	})

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	ready := config.Ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, ready))
	if config.Metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(config.Metrics))
	}

	v1 := router.Group("/api/v1", middleware.RequireIdentity())
	NewReservationHandlers(config.Reservations).RegisterRoutes(v1)
	NewTransferHandlers(config.Transfers, config.Queries).RegisterRoutes(v1)
	if config.Reconciler != nil {
		NewReconciliationHandlers(config.Reconciler).RegisterRoutes(v1)
	}

	return router
}
