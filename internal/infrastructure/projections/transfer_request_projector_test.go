package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
)

type fakeProjectionRepo struct {
	byID map[string]*TransferRequestProjection
	err  error
}

func (f *fakeProjectionRepo) Upsert(ctx context.Context, projection *TransferRequestProjection) error {
	if f.err != nil {
		return f.err
	}
	if f.byID == nil {
		f.byID = make(map[string]*TransferRequestProjection)
	}
	f.byID[projection.RequestID] = projection
	return nil
}

func (f *fakeProjectionRepo) FindByID(ctx context.Context, requestID string) (*TransferRequestProjection, error) {
	return f.byID[requestID], nil
}

func (f *fakeProjectionRepo) FindWithFilter(ctx context.Context, filter TransferRequestFilter, page Pagination) (*PagedResult[TransferRequestProjection], error) {
	return nil, nil
}

func newRequest(t *testing.T) *domain.StockTransferRequest {
	t.Helper()
	sc := "SC-1"
	caseline := "CL-1"
	warehouse := &domain.Warehouse{ID: "WH-SC-1", CompanyID: "OEM", ServiceCenterID: &sc}
	return domain.NewStockTransferRequest(warehouse, "user-1", []domain.NewItemSpec{
		{TypeComponentID: "TYPE-BATTERY", QuantityRequested: 2, CaselineID: &caseline},
		{TypeComponentID: "TYPE-MOTOR", QuantityRequested: 1},
		{TypeComponentID: "TYPE-BATTERY", QuantityRequested: 3},
	}, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

func TestProject(t *testing.T) {
	request := newRequest(t)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	p := Project(&domain.TransferRequestEvent{Name: domain.EventTransferCreated, Request: request, ActorID: "user-1", Timestamp: at})

	assert.Equal(t, request.ID, p.RequestID)
	assert.Equal(t, "PENDING_APPROVAL", p.Status)
	assert.Equal(t, "SC-1", p.ServiceCenterID)
	assert.Equal(t, "OEM", p.CompanyID)
	assert.Equal(t, 6, p.TotalQuantity)
	assert.Len(t, p.Items, 3)
	assert.Equal(t, []string{"TYPE-BATTERY", "TYPE-MOTOR"}, p.TypeComponentIDs)
	assert.Equal(t, domain.EventTransferCreated, p.LastEvent)
	assert.Equal(t, at, p.UpdatedAt)
	assert.Nil(t, p.ClosedAt)
}

func TestProject_ClosedAt(t *testing.T) {
	request := newRequest(t)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, request.Reject("oem-1", "no budget", at))

	p := Project(&domain.TransferRequestEvent{Name: domain.EventTransferRejected, Request: request, ActorID: "oem-1", Timestamp: at})

	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, at, *p.ClosedAt)
	assert.Equal(t, "REJECTED", p.Status)
}

func TestTransferRequestProjector_OnTransferRequestEvent(t *testing.T) {
	repo := &fakeProjectionRepo{}
	projector := NewTransferRequestProjector(repo, logging.New(logging.DefaultConfig("test")))
	request := newRequest(t)

	err := projector.OnTransferRequestEvent(context.Background(), &domain.TransferRequestEvent{
		Name:      domain.EventTransferCreated,
		Request:   request,
		ActorID:   "user-1",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	require.Contains(t, repo.byID, request.ID)
	assert.Equal(t, "PENDING_APPROVAL", repo.byID[request.ID].Status)
}

func TestTransferRequestProjector_PropagatesRepositoryErrors(t *testing.T) {
	repo := &fakeProjectionRepo{err: errors.New("mongo down")}
	projector := NewTransferRequestProjector(repo, nil)

	err := projector.OnTransferRequestEvent(context.Background(), &domain.TransferRequestEvent{
		Name:      domain.EventTransferCreated,
		Request:   newRequest(t),
		Timestamp: time.Now(),
	})
	assert.EqualError(t, err, "mongo down")
}

func TestBuildFilterQuery(t *testing.T) {
	assert.Empty(t, buildFilterQuery(TransferRequestFilter{}))

	query := buildFilterQuery(TransferRequestFilter{Status: "SHIPPED", ServiceCenterID: "SC-1", TypeComponentID: "TYPE-MOTOR"})
	assert.Equal(t, "SHIPPED", query["status"])
	assert.Equal(t, "SC-1", query["serviceCenterId"])
	assert.Equal(t, "TYPE-MOTOR", query["typeComponentIds"])
	assert.NotContains(t, query, "companyId")
}
