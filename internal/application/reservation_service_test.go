package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/errors"
)

func TestAllocateForCaseline_SplitsAcrossWarehousesByPriority(t *testing.T) {
	f := newFixture(t)
	first := f.stock(whSC1, typeBattery, 2)
	second := f.stock(whSC2, typeBattery, 3)
	f.caseline("CL-1", typeBattery, 4, domain.CaselineCustomerApproved)

	result, err := f.reservations.AllocateForCaseline(context.Background(), AllocateForCaselineCommand{Actor: scManager, CaselineID: "CL-1"})
	require.NoError(t, err)

	assert.Equal(t, []AllocationDTO{
		{StockID: first.ID, WarehouseID: whSC1, Quantity: 2},
		{StockID: second.ID, WarehouseID: whSC2, Quantity: 2},
	}, result.Allocations)
	assert.Len(t, result.Reservations, 4)
	assert.Len(t, result.Components, 4)
	assert.Equal(t, string(domain.CaselineReadyForRepair), result.CaselineStatus)
	for _, c := range result.Components {
		assert.Equal(t, string(domain.ComponentReserved), c.Status)
	}

	assert.Equal(t, 2, f.stockAt(whSC1, typeBattery).QuantityReserved)
	assert.Equal(t, 2, f.stockAt(whSC2, typeBattery).QuantityReserved)
	assert.Equal(t, 3, f.stockAt(whSC2, typeBattery).QuantityInStock)
	assert.Equal(t, 1, f.countComponents(whSC2, typeBattery, domain.ComponentInWarehouse))
	assert.Equal(t, domain.CaselineReadyForRepair, f.caselineStatus("CL-1"))
	assert.Equal(t, []string{ServiceCenterRoom(serviceCenterID)}, f.notifier.rooms(domain.EventCaselineAllocated))
	f.requireNoDrift()
}

func TestAllocateForCaseline_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.stock(whSC1, typeBattery, 1)
	f.caseline("CL-1", typeBattery, 2, domain.CaselineCustomerApproved)

	_, err := f.reservations.AllocateForCaseline(context.Background(), AllocateForCaselineCommand{Actor: scManager, CaselineID: "CL-1"})

	require.Equal(t, errors.CodeConflict, errorCode(t, err))
	appErr, _ := errors.AsAppError(err)
	assert.Equal(t, "2", appErr.Details["requested"])
	assert.Equal(t, "1", appErr.Details["available"])
	assert.Equal(t, typeBattery, appErr.Details["typeComponentId"])

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	assert.Equal(t, 0, f.stockAt(whSC1, typeBattery).QuantityReserved)
	assert.Equal(t, domain.CaselineCustomerApproved, f.caselineStatus("CL-1"))
	assert.Empty(t, f.notifier.rooms(domain.EventCaselineAllocated))
}

func TestAllocateForCaseline_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		actor    Actor
		caseline string
		code     string
		message  string
	}{
		{
			name:     "caseline not approved by customer",
			setup:    func(f *fixture) { f.caseline("CL-1", typeBattery, 1, domain.CaselinePendingApproval) },
			actor:    scManager,
			caseline: "CL-1",
			code:     errors.CodeConflict,
			message:  "caseline must be CUSTOMER_APPROVED to allocate stock",
		},
		{
			name:     "unknown caseline",
			setup:    func(f *fixture) {},
			actor:    scManager,
			caseline: "CL-404",
			code:     errors.CodeNotFound,
		},
		{
			name:     "missing caseline id",
			setup:    func(f *fixture) {},
			actor:    scManager,
			caseline: "",
			code:     errors.CodeBadRequest,
		},
		{
			name:     "caller from another service center",
			setup:    func(f *fixture) { f.caseline("CL-1", typeBattery, 1, domain.CaselineCustomerApproved) },
			actor:    otherCenter,
			caseline: "CL-1",
			code:     errors.CodeForbidden,
		},
		{
			name: "component type does not fit the vehicle",
			setup: func(f *fixture) {
				c := f.caseline("CL-1", typeBattery, 1, domain.CaselineCustomerApproved)
				require.NoError(f.t, f.db.Model(c).Update("vehicle_model_id", "MODEL-LEGACY").Error)
			},
			actor:    scManager,
			caseline: "CL-1",
			code:     errors.CodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.stock(whSC1, typeBattery, 3)
			tt.setup(f)

			_, err := f.reservations.AllocateForCaseline(context.Background(), AllocateForCaselineCommand{Actor: tt.actor, CaselineID: tt.caseline})

			assert.Equal(t, tt.code, errorCode(t, err))
			if tt.message != "" {
				appErr, _ := errors.AsAppError(err)
				assert.Equal(t, tt.message, appErr.Message)
			}
			assert.Equal(t, 0, f.stockAt(whSC1, typeBattery).QuantityReserved)
		})
	}
}

func TestAllocateForCaseline_TwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	f.stock(whSC1, typeBattery, 4)
	f.caseline("CL-1", typeBattery, 1, domain.CaselineCustomerApproved)
	cmd := AllocateForCaselineCommand{Actor: scManager, CaselineID: "CL-1"}

	_, err := f.reservations.AllocateForCaseline(context.Background(), cmd)
	require.NoError(t, err)
	_, err = f.reservations.AllocateForCaseline(context.Background(), cmd)

	assert.Equal(t, errors.CodeConflict, errorCode(t, err))
	assert.Equal(t, 1, f.stockAt(whSC1, typeBattery).QuantityReserved)
}

func TestAllocateForCaseline_ConcurrentCallersNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.stock(whSC1, typeBattery, 1)
	f.caseline("CL-1", typeBattery, 1, domain.CaselineCustomerApproved)
	f.caseline("CL-2", typeBattery, 1, domain.CaselineCustomerApproved)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, id := range []string{"CL-1", "CL-2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.reservations.AllocateForCaseline(context.Background(), AllocateForCaselineCommand{Actor: scManager, CaselineID: id})
		}(i, id)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, errors.CodeConflict, errorCode(t, err))
	}
	assert.Equal(t, 1, successes)

	stock := f.stockAt(whSC1, typeBattery)
	assert.Equal(t, 1, stock.QuantityInStock)
	assert.Equal(t, 1, stock.QuantityReserved)
	f.requireNoDrift()
}

func TestReservationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(whSC1, typeBattery, 3)
	f.caseline("CL-1", typeBattery, 2, domain.CaselineCustomerApproved)

	oldSerial := "SN-OLD-BATTERY"
	vin := vehicleVIN
	require.NoError(t, f.db.Create(&domain.Component{
		ID:              "C-OLD",
		TypeComponentID: typeBattery,
		SerialNumber:    &oldSerial,
		Status:          domain.ComponentInstalled,
		VehicleVIN:      &vin,
	}).Error)

	allocated, err := f.reservations.AllocateForCaseline(ctx, AllocateForCaselineCommand{Actor: scManager, CaselineID: "CL-1"})
	require.NoError(t, err)
	first, second := allocated.Reservations[0], allocated.Reservations[1]

	picked, err := f.reservations.PickupReservedComponent(ctx, PickupComponentCommand{Actor: scManager, ReservationID: first.ID, TechnicianID: "tech-7"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ReservationPickedUp), picked.Reservation.Status)
	assert.Equal(t, string(domain.ComponentWithTechnician), picked.Component.Status)
	require.NotNil(t, picked.Component.CurrentHolderID)
	assert.Equal(t, "tech-7", *picked.Component.CurrentHolderID)
	assert.Nil(t, picked.Component.WarehouseID)
	assert.Equal(t, string(domain.CaselineReadyForRepair), picked.CaselineStatus)

	stock := f.stockAt(whSC1, typeBattery)
	assert.Equal(t, 2, stock.QuantityInStock)
	assert.Equal(t, 1, stock.QuantityReserved)
	f.requireNoDrift()

	_, err = f.reservations.PickupReservedComponent(ctx, PickupComponentCommand{Actor: scManager, ReservationID: first.ID})
	assert.Equal(t, errors.CodeConflict, errorCode(t, err))

	picked, err = f.reservations.PickupReservedComponent(ctx, PickupComponentCommand{Actor: scManager, ReservationID: second.ID})
	require.NoError(t, err)
	assert.Equal(t, string(domain.CaselineInRepair), picked.CaselineStatus)
	assert.Equal(t, domain.CaselineInRepair, f.caselineStatus("CL-1"))

	installed, err := f.reservations.InstallComponent(ctx, InstallComponentCommand{Actor: scManager, ReservationID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ReservationInstalled), installed.Reservation.Status)
	assert.Equal(t, string(domain.ComponentInstalled), installed.Component.Status)
	require.NotNil(t, installed.Component.VehicleVIN)
	assert.Equal(t, vehicleVIN, *installed.Component.VehicleVIN)
	assert.NotNil(t, installed.Component.InstalledAt)

	_, err = f.reservations.InstallComponent(ctx, InstallComponentCommand{Actor: scManager, ReservationID: first.ID})
	assert.Equal(t, errors.CodeConflict, errorCode(t, err))

	returned, err := f.reservations.ReturnReservedComponent(ctx, ReturnComponentCommand{Actor: scManager, ReservationID: first.ID, SerialNumber: oldSerial})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ReservationReturned), returned.Reservation.Status)
	require.NotNil(t, returned.Reservation.ReturnedComponentID)
	assert.Equal(t, "C-OLD", *returned.Reservation.ReturnedComponentID)
	assert.Equal(t, string(domain.ComponentReturned), returned.ReturnedComponent.Status)
	assert.Nil(t, f.component("C-OLD").VehicleVIN)

	assert.Len(t, f.notifier.rooms(domain.EventComponentPickedUp), 2)
	assert.Len(t, f.notifier.rooms(domain.EventComponentInstalled), 1)
	assert.Len(t, f.notifier.rooms(domain.EventComponentReturned), 1)
	f.requireNoDrift()
}

func TestReturnReservedComponent_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(whSC1, typeBattery, 1)
	f.caseline("CL-1", typeBattery, 1, domain.CaselineCustomerApproved)

	vin := vehicleVIN
	otherVIN := "VIN-9999"
	seed := func(id, serial, typeID string, status domain.ComponentStatus, vin *string) {
		s := serial
		require.NoError(t, f.db.Create(&domain.Component{
			ID: id, TypeComponentID: typeID, SerialNumber: &s, Status: status, VehicleVIN: vin,
		}).Error)
	}
	seed("C-MOTOR", "SN-MOTOR", typeMotor, domain.ComponentInstalled, &vin)
	seed("C-OTHER-CAR", "SN-OTHER-CAR", typeBattery, domain.ComponentInstalled, &otherVIN)
	seed("C-SHELF", "SN-SHELF", typeBattery, domain.ComponentDefective, nil)

	allocated, err := f.reservations.AllocateForCaseline(ctx, AllocateForCaselineCommand{Actor: scManager, CaselineID: "CL-1"})
	require.NoError(t, err)
	reservationID := allocated.Reservations[0].ID
	installedSerial := *allocated.Components[0].SerialNumber

	returnWith := func(serial string) error {
		_, err := f.reservations.ReturnReservedComponent(ctx, ReturnComponentCommand{Actor: scManager, ReservationID: reservationID, SerialNumber: serial})
		return err
	}

	// not picked up yet
	assert.Equal(t, errors.CodeConflict, errorCode(t, returnWith("SN-OTHER-CAR")))

	_, err = f.reservations.PickupReservedComponent(ctx, PickupComponentCommand{Actor: scManager, ReservationID: reservationID})
	require.NoError(t, err)
	_, err = f.reservations.InstallComponent(ctx, InstallComponentCommand{Actor: scManager, ReservationID: reservationID})
	require.NoError(t, err)

	tests := []struct {
		name   string
		serial string
		code   string
	}{
		{"empty serial", "  ", errors.CodeBadRequest},
		{"same serial as the new unit", installedSerial, errors.CodeBadRequest},
		{"unknown serial", "SN-NOPE", errors.CodeNotFound},
		{"different component type", "SN-MOTOR", errors.CodeConflict},
		{"installed on another vehicle", "SN-OTHER-CAR", errors.CodeConflict},
		{"not installed anywhere", "SN-SHELF", errors.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, errorCode(t, returnWith(tt.serial)))
		})
	}

	var r domain.Reservation
	require.NoError(t, f.db.First(&r, "id = ?", reservationID).Error)
	assert.Equal(t, domain.ReservationInstalled, r.Status)
}
