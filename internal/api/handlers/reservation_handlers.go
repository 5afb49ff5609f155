package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oem-ev-warranty/parts-service/internal/application"
	"github.com/oem-ev-warranty/parts-service/pkg/middleware"
)

// ReservationService is the Reservation Manager as seen by HTTP
type ReservationService interface {
	AllocateForCaseline(ctx context.Context, cmd application.AllocateForCaselineCommand) (*application.AllocationSummaryDTO, error)
	PickupReservedComponent(ctx context.Context, cmd application.PickupComponentCommand) (*application.ReservationResultDTO, error)
	InstallComponent(ctx context.Context, cmd application.InstallComponentCommand) (*application.ReservationResultDTO, error)
	ReturnReservedComponent(ctx context.Context, cmd application.ReturnComponentCommand) (*application.ReturnResultDTO, error)
}

// ReservationHandlers serves caseline allocation and the reservation lifecycle
type ReservationHandlers struct {
	service ReservationService
}

// NewReservationHandlers creates a new ReservationHandlers
func NewReservationHandlers(service ReservationService) *ReservationHandlers {
	return &ReservationHandlers{service: service}
}

// RegisterRoutes registers reservation routes on the router
func (h *ReservationHandlers) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/caselines/:caselineId/allocate", middleware.WrapHandler(h.Allocate))

	reservations := router.Group("/reservations")
	{
		reservations.POST("/:reservationId/pickup", middleware.WrapHandler(h.Pickup))
		reservations.POST("/:reservationId/install", middleware.WrapHandler(h.Install))
		reservations.POST("/:reservationId/return", middleware.WrapHandler(h.Return))
	}
}

// Allocate reserves local stock for a caseline
func (h *ReservationHandlers) Allocate(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	result, err := h.service.AllocateForCaseline(c.Request.Context(), application.AllocateForCaselineCommand{
		Actor:      actor,
		CaselineID: c.Param("caselineId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// PickupRequest optionally names the technician taking the part
type PickupRequest struct {
	TechnicianID string `json:"technicianId"`
}

// Pickup hands a reserved component to a technician
func (h *ReservationHandlers) Pickup(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req PickupRequest
	if appErr := middleware.BindAndValidate(c, &req, true); appErr != nil {
		return appErr
	}

	result, err := h.service.PickupReservedComponent(c.Request.Context(), application.PickupComponentCommand{
		Actor:         actor,
		ReservationID: c.Param("reservationId"),
		TechnicianID:  req.TechnicianID,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// Install marks a picked-up component as fitted to the vehicle
func (h *ReservationHandlers) Install(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	result, err := h.service.InstallComponent(c.Request.Context(), application.InstallComponentCommand{
		Actor:         actor,
		ReservationID: c.Param("reservationId"),
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}

// ReturnRequest identifies the old unit removed from the vehicle
type ReturnRequest struct {
	SerialNumber string `json:"serialNumber" binding:"required,serial"`
}

// Return records the swapped-out component
func (h *ReservationHandlers) Return(c *gin.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req ReturnRequest
	if appErr := middleware.BindAndValidate(c, &req, false); appErr != nil {
		return appErr
	}

	result, err := h.service.ReturnReservedComponent(c.Request.Context(), application.ReturnComponentCommand{
		Actor:         actor,
		ReservationID: c.Param("reservationId"),
		SerialNumber:  req.SerialNumber,
	})
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, result)
	return nil
}
