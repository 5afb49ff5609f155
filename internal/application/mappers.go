package application

import (
	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/projections"
)

// ToComponentDTO converts a domain component to a DTO
func ToComponentDTO(c *domain.Component) ComponentDTO {
	return ComponentDTO{
		ID:                c.ID,
		TypeComponentID:   c.TypeComponentID,
		SerialNumber:      c.SerialNumber,
		Status:            string(c.Status),
		WarehouseID:       c.WarehouseID,
		VehicleVIN:        c.VehicleVIN,
		CurrentHolderID:   c.CurrentHolderID,
		TransferRequestID: c.TransferRequestID,
		InstalledAt:       c.InstalledAt,
	}
}

// ToComponentDTOs converts a slice of components
func ToComponentDTOs(components []*domain.Component) []ComponentDTO {
	dtos := make([]ComponentDTO, len(components))
	for i, c := range components {
		dtos[i] = ToComponentDTO(c)
	}
	return dtos
}

// ToReservationDTO converts a domain reservation to a DTO
func ToReservationDTO(r *domain.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:                  r.ID,
		CaselineID:          r.CaselineID,
		ComponentID:         r.ComponentID,
		WarehouseID:         r.WarehouseID,
		Status:              string(r.Status),
		PickedUpByID:        r.PickedUpByID,
		PickedUpAt:          r.PickedUpAt,
		InstalledAt:         r.InstalledAt,
		ReturnedComponentID: r.ReturnedComponentID,
		ReturnedAt:          r.ReturnedAt,
	}
}

// ToReservationDTOs converts a slice of reservations
func ToReservationDTOs(reservations []*domain.Reservation) []ReservationDTO {
	dtos := make([]ReservationDTO, len(reservations))
	for i, r := range reservations {
		dtos[i] = ToReservationDTO(r)
	}
	return dtos
}

// ToAllocationDTOs converts allocations
func ToAllocationDTOs(allocations []domain.Allocation) []AllocationDTO {
	dtos := make([]AllocationDTO, len(allocations))
	for i, a := range allocations {
		dtos[i] = AllocationDTO{StockID: a.StockID, WarehouseID: a.WarehouseID, Quantity: a.Quantity}
	}
	return dtos
}

// ToTransferRequestDTO converts a request and its items
func ToTransferRequestDTO(r *domain.StockTransferRequest) TransferRequestDTO {
	items := make([]TransferItemDTO, len(r.Items))
	for i, item := range r.Items {
		items[i] = TransferItemDTO{
			ID:                item.ID,
			LineNo:            item.LineNo,
			TypeComponentID:   item.TypeComponentID,
			QuantityRequested: item.QuantityRequested,
			CaselineID:        item.CaselineID,
		}
	}

	return TransferRequestDTO{
		ID:                    r.ID,
		RequestingWarehouseID: r.RequestingWarehouseID,
		ServiceCenterID:       r.ServiceCenterID,
		CompanyID:             r.CompanyID,
		Status:                string(r.Status),
		RequestedByID:         r.RequestedByID,
		ApprovedByID:          r.ApprovedByID,
		ShippedByID:           r.ShippedByID,
		ReceivedByID:          r.ReceivedByID,
		RejectedByID:          r.RejectedByID,
		CancelledByID:         r.CancelledByID,
		RejectionReason:       r.RejectionReason,
		CancellationReason:    r.CancellationReason,
		RequestedAt:           r.RequestedAt,
		ApprovedAt:            r.ApprovedAt,
		ShippedAt:             r.ShippedAt,
		EstimatedDeliveryDate: r.EstimatedDeliveryDate,
		ReceivedAt:            r.ReceivedAt,
		RejectedAt:            r.RejectedAt,
		CancelledAt:           r.CancelledAt,
		Items:                 items,
	}
}

// ToStockReservationDTOs converts stock reservations
func ToStockReservationDTOs(reservations []*domain.StockReservation) []StockReservationDTO {
	dtos := make([]StockReservationDTO, len(reservations))
	for i, r := range reservations {
		dtos[i] = StockReservationDTO{
			ID:              r.ID,
			ItemID:          r.ItemID,
			StockID:         r.StockID,
			WarehouseID:     r.WarehouseID,
			TypeComponentID: r.TypeComponentID,
			Quantity:        r.Quantity,
			Status:          string(r.Status),
		}
	}
	return dtos
}

// ToTransferSummaryFromRequest builds a listing row from the relational store
func ToTransferSummaryFromRequest(r *domain.StockTransferRequest) TransferRequestSummaryDTO {
	total := 0
	for _, item := range r.Items {
		total += item.QuantityRequested
	}
	return TransferRequestSummaryDTO{
		ID:                    r.ID,
		Status:                string(r.Status),
		RequestingWarehouseID: r.RequestingWarehouseID,
		ServiceCenterID:       r.ServiceCenterID,
		ItemCount:             len(r.Items),
		TotalQuantity:         total,
		RequestedAt:           r.RequestedAt,
		EstimatedDeliveryDate: r.EstimatedDeliveryDate,
		UpdatedAt:             r.UpdatedAt,
	}
}

// ToTransferSummaryFromProjection builds a listing row from the read model
func ToTransferSummaryFromProjection(p *projections.TransferRequestProjection) TransferRequestSummaryDTO {
	return TransferRequestSummaryDTO{
		ID:                    p.RequestID,
		Status:                p.Status,
		RequestingWarehouseID: p.RequestingWarehouseID,
		ServiceCenterID:       p.ServiceCenterID,
		ItemCount:             len(p.Items),
		TotalQuantity:         p.TotalQuantity,
		RequestedAt:           p.RequestedAt,
		EstimatedDeliveryDate: p.EstimatedDeliveryDate,
		UpdatedAt:             p.UpdatedAt,
	}
}
