package domain

import (
	"time"
)

// Component is one physical, individually tracked part. At most one of
// WarehouseID, VehicleVIN and CurrentHolderID is set; a component in transit
// has none and carries the transfer request id instead.
type Component struct {
	ID                string          `gorm:"primaryKey;size:36"`
	TypeComponentID   string          `gorm:"size:36;not null;index:ix_components_location"`
	SerialNumber      *string         `gorm:"size:128;uniqueIndex"`
	Status            ComponentStatus `gorm:"size:32;not null;index:ix_components_location"`
	WarehouseID       *string         `gorm:"size:36;index:ix_components_location"`
	VehicleVIN        *string         `gorm:"size:32;index"`
	CurrentHolderID   *string         `gorm:"size:36"`
	TransferRequestID *string         `gorm:"size:36;index"`
	InstalledAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName pins the table name
func (Component) TableName() string { return "components" }

// Serial returns the serial number or "" for anonymous units
func (c *Component) Serial() string {
	if c.SerialNumber == nil {
		return ""
	}
	return *c.SerialNumber
}

func (c *Component) require(action string, allowed ...ComponentStatus) error {
	for _, s := range allowed {
		if c.Status == s {
			return nil
		}
	}
	required := make([]string, len(allowed))
	for i, s := range allowed {
		required[i] = string(s)
	}
	return NewStatusRequired("component", c.ID, string(c.Status), action, required...)
}

// Reserve binds an available unit to a caseline; it stays in its warehouse
func (c *Component) Reserve() error {
	if err := c.require("be reserved", ComponentInWarehouse); err != nil {
		return err
	}
	c.Status = ComponentReserved
	return nil
}

// HandTo moves a reserved unit out of the warehouse into a technician's hands
func (c *Component) HandTo(technicianID string) error {
	if err := c.require("be picked up", ComponentReserved); err != nil {
		return err
	}
	c.Status = ComponentWithTechnician
	c.WarehouseID = nil
	c.CurrentHolderID = &technicianID
	return nil
}

// InstallOn attaches the unit to a vehicle
func (c *Component) InstallOn(vin string, at time.Time) error {
	if err := c.require("be installed", ComponentWithTechnician); err != nil {
		return err
	}
	c.Status = ComponentInstalled
	c.VehicleVIN = &vin
	c.InstalledAt = &at
	c.CurrentHolderID = nil
	return nil
}

// MarkReturned records that an installed unit was swapped out
func (c *Component) MarkReturned() error {
	if err := c.require("be returned", ComponentInstalled); err != nil {
		return err
	}
	c.Status = ComponentReturned
	c.VehicleVIN = nil
	c.InstalledAt = nil
	c.CurrentHolderID = nil
	return nil
}

// Ship puts an available unit in transit for a transfer request
func (c *Component) Ship(requestID string) error {
	if err := c.require("be shipped", ComponentInWarehouse); err != nil {
		return err
	}
	c.Status = ComponentInTransit
	c.WarehouseID = nil
	c.TransferRequestID = &requestID
	return nil
}

// ReceiveAt lands an in-transit unit in warehouseID. The transfer request id
// is kept as provenance.
func (c *Component) ReceiveAt(warehouseID string) error {
	if err := c.require("be received", ComponentInTransit); err != nil {
		return err
	}
	c.Status = ComponentInWarehouse
	c.WarehouseID = &warehouseID
	return nil
}
