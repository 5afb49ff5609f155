package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oem-ev-warranty/parts-service/internal/application"
	"github.com/oem-ev-warranty/parts-service/pkg/api"
	"github.com/oem-ev-warranty/parts-service/pkg/middleware"
)

// TransferService is the stock transfer workflow as seen by HTTP
type TransferService interface {
	CreateStockTransferRequest(ctx context.Context, cmd application.CreateTransferRequestCommand) (*application.TransferResultDTO, error)
	ApproveStockTransferRequest(ctx context.Context, cmd application.ApproveTransferRequestCommand) (*application.TransferResultDTO, error)
	ShipStockTransferRequest(ctx context.Context, cmd application.ShipTransferRequestCommand) (*application.TransferResultDTO, error)
	ReceiveStockTransferRequest(ctx context.Context, cmd application.ReceiveTransferRequestCommand) (*application.TransferResultDTO, error)
	RejectStockTransferRequest(ctx context.Context, cmd application.RejectTransferRequestCommand) (*application.TransferResultDTO, error)
	CancelStockTransferRequest(ctx context.Context, cmd application.CancelTransferRequestCommand) (*application.TransferResultDTO, error)
}

// TransferQueries reads stock transfer requests
type TransferQueries interface {
	GetStockTransferRequest(ctx context.Context, query application.GetTransferRequestQuery) (*application.TransferResultDTO, error)
	ListStockTransferRequests(ctx context.Context, query application.ListTransferRequestsQuery) (*api.PageResponse[application.TransferRequestSummaryDTO], error)
}

// TransferHandlers serves the stock transfer request workflow
type TransferHandlers struct {
	service TransferService
	queries TransferQueries
}

// NewTransferHandlers creates a new TransferHandlers
func NewTransferHandlers(service TransferService, queries TransferQueries) *TransferHandlers {
	return &TransferHandlers{service: service, queries: queries}
}

// RegisterRoutes registers stock transfer routes on the router
func (h *TransferHandlers) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/stock-transfer-requests")
	{
		requests.POST("", middleware.WrapHandler(h.Create))
		requests.GET("", middleware.WrapHandler(h.List))
		requests.GET("/:requestId", middleware.WrapHandler(h.Get))
		requests.POST("/:requestId/approve", middleware.WrapHandler(h.Approve))
		requests.POST("/:requestId/ship", middleware.WrapHandler(h.Ship))
		requests.POST("/:requestId/receive", middleware.WrapHandler(h.Receive))
		requests.POST("/:requestId/reject", middleware.WrapHandler(h.Reject))
		requests.POST("/:requestId/cancel", middleware.WrapHandler(h.Cancel))
	}
}

// TransferItemRequest is one requested line
type TransferItemRequest struct {
	TypeComponentID   string `json:"typeComponentId" binding:"required"`
	QuantityRequested int    `json:"quantityRequested" binding:"required,gt=0"`
	CaselineID        string `json:"caselineId"`
}

// CreateTransferRequest is the body of a new stock transfer request
type CreateTransferRequest struct {
	RequestingWarehouseID string                `json:"requestingWarehouseId" binding:"required"`
	Items                 []TransferItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Create opens a stock transfer request
func (h *TransferHandlers) Create(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req CreateTransferRequest
	if appErr := middleware.BindAndValidate(c, &req, false); appErr != nil {
		return appErr
	}

	items := make([]application.TransferItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = application.TransferItemInput{
			TypeComponentID:   item.TypeComponentID,
			QuantityRequested: item.QuantityRequested,
			CaselineID:        item.CaselineID,
		}
	}

	result, err := h.service.CreateStockTransferRequest(c.Request.Context(), application.CreateTransferRequestCommand{
		Actor:                 actor,
		RequestingWarehouseID: req.RequestingWarehouseID,
		Items:                 items,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusCreated, result)
	return nil
}

// List pages through stock transfer requests visible to the caller
func (h *TransferHandlers) List(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	page := api.ParsePagination(c)
	result, err := h.queries.ListStockTransferRequests(c.Request.Context(), application.ListTransferRequestsQuery{
		Actor:                 actor,
		Status:                c.Query("status"),
		RequestingWarehouseID: c.Query("requestingWarehouseId"),
		ServiceCenterID:       c.Query("serviceCenterId"),
		Page:                  int(page.Page),
		PageSize:              int(page.PageSize),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// Get returns one request with its reservations and components
func (h *TransferHandlers) Get(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	result, err := h.queries.GetStockTransferRequest(c.Request.Context(), application.GetTransferRequestQuery{
		Actor:     actor,
		RequestID: c.Param("requestId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// Approve reserves company stock for a pending request
func (h *TransferHandlers) Approve(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	result, err := h.service.ApproveStockTransferRequest(c.Request.Context(), application.ApproveTransferRequestCommand{
		Actor:     actor,
		RequestID: c.Param("requestId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// ShipRequest carries the expected delivery date
type ShipRequest struct {
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate" binding:"required"`
}

// Ship dispatches the reserved components
func (h *TransferHandlers) Ship(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req ShipRequest
	if appErr := middleware.BindAndValidate(c, &req, false); appErr != nil {
		return appErr
	}

	result, err := h.service.ShipStockTransferRequest(c.Request.Context(), application.ShipTransferRequestCommand{
		Actor:                 actor,
		RequestID:             c.Param("requestId"),
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// Receive lands the shipped components at the requesting warehouse
func (h *TransferHandlers) Receive(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	result, err := h.service.ReceiveStockTransferRequest(c.Request.Context(), application.ReceiveTransferRequestCommand{
		Actor:     actor,
		RequestID: c.Param("requestId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// ReasonRequest carries a rejection or cancellation reason
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// Reject declines a pending request. The service requires the reason.
func (h *TransferHandlers) Reject(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req ReasonRequest
	if appErr := middleware.BindAndValidate(c, &req, true); appErr != nil {
		return appErr
	}

	result, err := h.service.RejectStockTransferRequest(c.Request.Context(), application.RejectTransferRequestCommand{
		Actor:     actor,
		RequestID: c.Param("requestId"),
		Reason:    req.Reason,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// Cancel withdraws a pending or approved request
func (h *TransferHandlers) Cancel(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req ReasonRequest
	if appErr := middleware.BindAndValidate(c, &req, true); appErr != nil {
		return appErr
	}

	result, err := h.service.CancelStockTransferRequest(c.Request.Context(), application.CancelTransferRequestCommand{
		Actor:     actor,
		RequestID: c.Param("requestId"),
		Reason:    req.Reason,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}
