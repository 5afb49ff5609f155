package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceCenterWarehouse() *Warehouse {
	sc := "SC-1"
	return &Warehouse{ID: "WH-SC", Name: "Service center", CompanyID: "CO-1", ServiceCenterID: &sc, Priority: 1}
}

func newPendingRequest(t *testing.T) *StockTransferRequest {
	t.Helper()
	caselineID := "CL-1"
	r := NewStockTransferRequest(serviceCenterWarehouse(), "user-1", []NewItemSpec{
		{TypeComponentID: "TYPE-A", QuantityRequested: 2, CaselineID: &caselineID},
		{TypeComponentID: "TYPE-B", QuantityRequested: 1},
		{TypeComponentID: "TYPE-A", QuantityRequested: 3, CaselineID: &caselineID},
	}, time.Now())
	require.Equal(t, TransferPendingApproval, r.Status)
	return r
}

func TestNewStockTransferRequest(t *testing.T) {
	r := newPendingRequest(t)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "WH-SC", r.RequestingWarehouseID)
	assert.Equal(t, "SC-1", r.ServiceCenterID)
	assert.Equal(t, "CO-1", r.CompanyID)
	require.Len(t, r.Items, 3)
	for _, item := range r.Items {
		assert.Equal(t, r.ID, item.RequestID)
		assert.NotEmpty(t, item.ID)
	}
	assert.Equal(t, []string{"CL-1"}, r.CaselineIDs())
	assert.Equal(t, []string{"TYPE-A", "TYPE-B"}, r.TypeComponentIDs())
	assert.Equal(t, map[string]int{"TYPE-A": 5, "TYPE-B": 1}, r.QuantityByType())
}

func TestStockTransferRequestHappyPath(t *testing.T) {
	r := newPendingRequest(t)
	now := time.Now()
	eta := now.Add(48 * time.Hour)

	require.NoError(t, r.Approve("approver", now))
	assert.Equal(t, TransferApproved, r.Status)
	assert.Equal(t, "approver", *r.ApprovedByID)

	require.NoError(t, r.Ship("shipper", &eta, now))
	assert.Equal(t, TransferShipped, r.Status)
	assert.Equal(t, eta, *r.EstimatedDeliveryDate)

	require.NoError(t, r.Receive("receiver", now))
	assert.Equal(t, TransferReceived, r.Status)
	assert.True(t, r.Status.IsTerminal())
}

func TestStockTransferRequestRejectsOutOfOrderTransitions(t *testing.T) {
	now := time.Now()

	r := newPendingRequest(t)
	err := r.Ship("shipper", nil, now)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Only requests with status APPROVED can be shipped", err.Error())

	require.NoError(t, r.Approve("approver", now))
	err = r.Approve("approver", now)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Only requests with status PENDING_APPROVAL can be approved", err.Error())

	assert.Error(t, r.Reject("approver", "late", now))
	assert.Error(t, r.Receive("receiver", now))
}

func TestStockTransferRequestCancel(t *testing.T) {
	now := time.Now()

	pending := newPendingRequest(t)
	release, err := pending.Cancel("user-1", "not needed", now)
	require.NoError(t, err)
	assert.False(t, release)
	assert.Equal(t, TransferCancelled, pending.Status)
	assert.Equal(t, "not needed", *pending.CancellationReason)

	approved := newPendingRequest(t)
	require.NoError(t, approved.Approve("approver", now))
	release, err = approved.Cancel("company", "reallocated", now)
	require.NoError(t, err)
	assert.True(t, release)

	eta := now
	shipped := newPendingRequest(t)
	require.NoError(t, shipped.Approve("approver", now))
	require.NoError(t, shipped.Ship("shipper", &eta, now))
	_, err = shipped.Cancel("company", "too late", now)
	assert.Error(t, err)
	assert.Equal(t, TransferShipped, shipped.Status)
}

func TestComponentLifecycle(t *testing.T) {
	wh := "WH-SC"
	c := &Component{ID: "C-1", TypeComponentID: "TYPE-A", Status: ComponentInWarehouse, WarehouseID: &wh}
	now := time.Now()

	require.NoError(t, c.Reserve())
	assert.Equal(t, ComponentReserved, c.Status)
	assert.Equal(t, "WH-SC", *c.WarehouseID)

	require.NoError(t, c.HandTo("tech-1"))
	assert.Equal(t, ComponentWithTechnician, c.Status)
	assert.Nil(t, c.WarehouseID)
	assert.Equal(t, "tech-1", *c.CurrentHolderID)

	require.NoError(t, c.InstallOn("VIN123", now))
	assert.Equal(t, ComponentInstalled, c.Status)
	assert.Equal(t, "VIN123", *c.VehicleVIN)
	assert.Nil(t, c.CurrentHolderID)

	require.NoError(t, c.MarkReturned())
	assert.Equal(t, ComponentReturned, c.Status)
	assert.Nil(t, c.VehicleVIN)
	assert.Nil(t, c.InstalledAt)

	err := c.Reserve()
	require.Error(t, err)
	assert.Equal(t, "component must be IN_WAREHOUSE to be reserved", err.Error())
}

func TestComponentTransit(t *testing.T) {
	wh := "WH-CO"
	c := &Component{ID: "C-1", TypeComponentID: "TYPE-A", Status: ComponentInWarehouse, WarehouseID: &wh}

	require.NoError(t, c.Ship("REQ-1"))
	assert.Equal(t, ComponentInTransit, c.Status)
	assert.Nil(t, c.WarehouseID)
	assert.Equal(t, "REQ-1", *c.TransferRequestID)

	require.NoError(t, c.ReceiveAt("WH-SC"))
	assert.Equal(t, ComponentInWarehouse, c.Status)
	assert.Equal(t, "WH-SC", *c.WarehouseID)
	assert.Equal(t, "REQ-1", *c.TransferRequestID)

	assert.Error(t, c.ReceiveAt("WH-SC"))
}

func TestReservationLifecycle(t *testing.T) {
	wh := "WH-SC"
	r := NewReservation("CL-1", &Component{ID: "C-1", WarehouseID: &wh})
	now := time.Now()

	assert.Equal(t, ReservationReserved, r.Status)
	assert.Equal(t, "WH-SC", r.WarehouseID)
	assert.Error(t, r.Install(now))
	assert.Error(t, r.CanReturn())

	require.NoError(t, r.PickUp("tech-1", now))
	assert.NoError(t, r.CanReturn())
	require.NoError(t, r.Install(now))
	require.NoError(t, r.Return("C-OLD", now))
	assert.Equal(t, ReservationReturned, r.Status)
	assert.Equal(t, "C-OLD", *r.ReturnedComponentID)

	err := r.Return("C-OLD", now)
	require.Error(t, err)
	assert.Equal(t, "reservation must be PICKED_UP or INSTALLED to return a component", err.Error())
}

func TestStockReservationTransitions(t *testing.T) {
	item := &StockTransferRequestItem{ID: "ITEM-1", TypeComponentID: "TYPE-A"}
	sr := NewStockReservation("REQ-1", item, Allocation{StockID: "S-1", WarehouseID: "WH-CO", Quantity: 4})

	assert.Equal(t, 4, sr.Quantity)
	require.NoError(t, sr.MarkShipped())
	assert.True(t, IsConsistencyFault(sr.Cancel()))
	assert.True(t, IsConsistencyFault(sr.MarkShipped()))
}

func TestCaselineTransitions(t *testing.T) {
	c := &Caseline{ID: "CL-1", Status: CaselinePendingApproval}

	err := c.CanAllocate()
	require.Error(t, err)
	assert.Equal(t, "caseline must be CUSTOMER_APPROVED to allocate stock", err.Error())

	require.NoError(t, c.MarkWaitingForParts())
	assert.True(t, c.ReleaseWaitingForParts())
	assert.Equal(t, CaselineCustomerApproved, c.Status)
	assert.False(t, c.ReleaseWaitingForParts())

	require.NoError(t, c.CanAllocate())
	assert.Error(t, c.StartRepair())
	require.NoError(t, c.MarkReadyForRepair())
	require.NoError(t, c.StartRepair())
	assert.Equal(t, CaselineInRepair, c.Status)
}
