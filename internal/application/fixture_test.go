package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/persistence"
	"github.com/oem-ev-warranty/parts-service/pkg/errors"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	pkgtesting "github.com/oem-ev-warranty/parts-service/pkg/testing"
)

const (
	companyID       = "CO-1"
	serviceCenterID = "SC-1"
	whOEM1          = "WH-OEM-1"
	whOEM2          = "WH-OEM-2"
	whSC1           = "WH-SC-1"
	whSC2           = "WH-SC-2"
	whOtherSC       = "WH-SC-OTHER"
	typeBattery     = "TYPE-BATTERY"
	typeMotor       = "TYPE-MOTOR"
	vehicleModel    = "MODEL-E1"
	vehicleVIN      = "VIN-0001"
)

var (
	scManager      = Actor{UserID: "u-sc-manager", Role: domain.RoleServiceCenterManager, ServiceCenterID: serviceCenterID}
	scCoordinator  = Actor{UserID: "u-sc-coordinator", Role: domain.RolePartsCoordinatorServiceCenter, ServiceCenterID: serviceCenterID}
	oemCoordinator = Actor{UserID: "u-oem-coordinator", Role: domain.RolePartsCoordinatorCompany, CompanyID: companyID}
	emvStaff       = Actor{UserID: "u-emv", Role: domain.RoleEMVStaff, CompanyID: companyID}
	otherCenter    = Actor{UserID: "u-other", Role: domain.RoleServiceCenterManager, ServiceCenterID: "SC-2"}
)

type sentNotification struct {
	Room    string
	Event   string
	Payload any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) SendToRoom(ctx context.Context, room, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{Room: room, Event: event, Payload: payload})
	return n.err
}

func (n *recordingNotifier) rooms(event string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var rooms []string
	for _, s := range n.sent {
		if s.Event == event {
			rooms = append(rooms, s.Room)
		}
	}
	return rooms
}

type staticCompatibility map[string]bool

func (c staticCompatibility) IsCompatible(ctx context.Context, vehicleModelID, typeComponentID string) (bool, error) {
	return c[vehicleModelID+"/"+typeComponentID], nil
}

type fixture struct {
	t            *testing.T
	db           *gorm.DB
	uow          *persistence.UnitOfWork
	notifier     *recordingNotifier
	reservations *ReservationService
	transfers    *TransferService
	queries      *TransferQueryService
	reconciler   *ReconciliationService
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := pkgtesting.OpenSQLite(t)
	require.NoError(t, persistence.Migrate(db))

	logger := logging.NewNop()
	uow := persistence.NewUnitOfWork(db, 0, nil, logger)
	notifier := &recordingNotifier{}
	f := &fixture{
		t:        t,
		db:       db,
		uow:      uow,
		notifier: notifier,
		now:      time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	compatibility := staticCompatibility{
		vehicleModel + "/" + typeBattery: true,
		vehicleModel + "/" + typeMotor:   true,
	}
	f.reservations = NewReservationService(uow, compatibility, notifier, nil, logger)
	f.reservations.now = clock
	f.transfers = NewTransferService(uow, nil, notifier, nil, nil, logger)
	f.transfers.now = clock
	f.queries = NewTransferQueryService(uow, nil, logger)
	f.reconciler = NewReconciliationService(uow, nil, logger)
	f.reconciler.now = clock

	sc := serviceCenterID
	other := "SC-2"
	require.NoError(t, db.Create([]*domain.Warehouse{
		{ID: whOEM1, Name: "OEM central", CompanyID: companyID, Priority: 1},
		{ID: whOEM2, Name: "OEM overflow", CompanyID: companyID, Priority: 2},
		{ID: whSC1, Name: "SC-1 main", CompanyID: companyID, ServiceCenterID: &sc, Priority: 1},
		{ID: whSC2, Name: "SC-1 annex", CompanyID: companyID, ServiceCenterID: &sc, Priority: 2},
		{ID: whOtherSC, Name: "SC-2 main", CompanyID: companyID, ServiceCenterID: &other, Priority: 1},
	}).Error)
	return f
}

// stock records n units at a warehouse along with the matching components
func (f *fixture) stock(warehouseID, typeID string, n int) *domain.StockRecord {
	f.t.Helper()
	record := domain.NewStockRecord(warehouseID, typeID)
	record.QuantityInStock = n
	require.NoError(f.t, f.db.Create(record).Error)
	for i := 0; i < n; i++ {
		serial := fmt.Sprintf("SN-%s-%s-%02d", warehouseID, typeID, i)
		wh := warehouseID
		require.NoError(f.t, f.db.Create(&domain.Component{
			ID:              fmt.Sprintf("C-%s-%s-%02d", warehouseID, typeID, i),
			TypeComponentID: typeID,
			SerialNumber:    &serial,
			Status:          domain.ComponentInWarehouse,
			WarehouseID:     &wh,
		}).Error)
	}
	return record
}

func (f *fixture) caseline(id, typeID string, quantity int, status domain.CaselineStatus) *domain.Caseline {
	f.t.Helper()
	c := &domain.Caseline{
		ID:              id,
		GuaranteeCaseID: "CASE-" + id,
		TypeComponentID: typeID,
		Quantity:        quantity,
		Status:          status,
		ServiceCenterID: serviceCenterID,
		VehicleVIN:      vehicleVIN,
		VehicleModelID:  vehicleModel,
	}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

func (f *fixture) stockAt(warehouseID, typeID string) *domain.StockRecord {
	f.t.Helper()
	var record domain.StockRecord
	require.NoError(f.t, f.db.Where("warehouse_id = ? AND type_component_id = ?", warehouseID, typeID).First(&record).Error)
	return &record
}

func (f *fixture) caselineStatus(id string) domain.CaselineStatus {
	f.t.Helper()
	var c domain.Caseline
	require.NoError(f.t, f.db.First(&c, "id = ?", id).Error)
	return c.Status
}

func (f *fixture) component(id string) *domain.Component {
	f.t.Helper()
	var c domain.Component
	require.NoError(f.t, f.db.First(&c, "id = ?", id).Error)
	return &c
}

func (f *fixture) countComponents(warehouseID, typeID string, status domain.ComponentStatus) int {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&domain.Component{}).
		Where("warehouse_id = ? AND type_component_id = ? AND status = ?", warehouseID, typeID, status).
		Count(&n).Error)
	return int(n)
}

// eta is a delivery date three days out
func (f *fixture) eta() *time.Time {
	eta := f.now.Add(72 * time.Hour)
	return &eta
}

func (f *fixture) requireNoDrift() {
	f.t.Helper()
	report, err := f.reconciler.Run(context.Background())
	require.NoError(f.t, err)
	require.Empty(f.t, report.Drift)
}

func (f *fixture) createRequest(actor Actor, items ...TransferItemInput) *TransferResultDTO {
	f.t.Helper()
	result, err := f.transfers.CreateStockTransferRequest(context.Background(), CreateTransferRequestCommand{
		Actor:                 actor,
		RequestingWarehouseID: whSC1,
		Items:                 items,
	})
	require.NoError(f.t, err)
	return result
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok, "expected an AppError, got %T: %v", err, err)
	return appErr.Code
}
