package domain

import (
	"time"
)

// Caseline is one diagnosed repair line of a warranty case. Only the fields
// the parts engine reads or writes are mapped.
type Caseline struct {
	ID              string         `gorm:"primaryKey;size:36"`
	GuaranteeCaseID string         `gorm:"size:36;not null;index"`
	TypeComponentID string         `gorm:"size:36;not null"`
	Quantity        int            `gorm:"not null"`
	Status          CaselineStatus `gorm:"size:32;not null"`
	ServiceCenterID string         `gorm:"size:36;not null;index"`
	VehicleVIN      string         `gorm:"size:32;not null"`
	VehicleModelID  string         `gorm:"size:36;not null"`
	UpdatedAt       time.Time
}

// TableName pins the table name
func (Caseline) TableName() string { return "caselines" }

// CanAllocate reports whether stock may be allocated to c
func (c *Caseline) CanAllocate() error {
	if c.Status != CaselineCustomerApproved {
		return NewStatusRequired("caseline", c.ID, string(c.Status), "allocate stock", string(CaselineCustomerApproved))
	}
	return nil
}

// MarkReadyForRepair is set once parts are reserved or have arrived
func (c *Caseline) MarkReadyForRepair() error {
	if c.Status != CaselineCustomerApproved && c.Status != CaselineWaitingForParts {
		return NewStatusRequired("caseline", c.ID, string(c.Status), "become ready for repair",
			string(CaselineCustomerApproved), string(CaselineWaitingForParts))
	}
	c.Status = CaselineReadyForRepair
	return nil
}

// MarkWaitingForParts is set when a transfer request sources the shortage
func (c *Caseline) MarkWaitingForParts() error {
	if c.Status != CaselinePendingApproval && c.Status != CaselineCustomerApproved {
		return NewStatusRequired("caseline", c.ID, string(c.Status), "wait for parts",
			string(CaselinePendingApproval), string(CaselineCustomerApproved))
	}
	c.Status = CaselineWaitingForParts
	return nil
}

// ReleaseWaitingForParts undoes MarkWaitingForParts after the transfer was
// rejected or cancelled. It reports whether anything changed.
func (c *Caseline) ReleaseWaitingForParts() bool {
	if c.Status != CaselineWaitingForParts {
		return false
	}
	c.Status = CaselineCustomerApproved
	return true
}

// StartRepair is set when every reserved unit has been picked up
func (c *Caseline) StartRepair() error {
	if c.Status != CaselineReadyForRepair {
		return NewStatusRequired("caseline", c.ID, string(c.Status), "start repair", string(CaselineReadyForRepair))
	}
	c.Status = CaselineInRepair
	return nil
}
