//go:build integration

package projections

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/mongodb"
	pkgtesting "github.com/oem-ev-warranty/parts-service/pkg/testing"
)

func setupMongoRepository(t *testing.T) *MongoTransferRequestProjectionRepository {
	t.Helper()
	ctx := context.Background()

	container, err := pkgtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(ctx) })

	config := mongodb.DefaultConfig()
	config.URI = container.URI
	config.Database = "projections_test"
	client, err := mongodb.NewClient(ctx, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(ctx) })

	repo, err := NewMongoTransferRequestProjectionRepository(ctx, client.Database())
	require.NoError(t, err)
	return repo
}

func TestMongoTransferRequestProjectionRepository(t *testing.T) {
	repo := setupMongoRepository(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	request := newRequest(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	approved := created.Add(time.Hour)

	t.Run("Upsert and find", func(t *testing.T) {
		p := Project(&domain.TransferRequestEvent{Name: domain.EventTransferCreated, Request: request, Timestamp: created})
		require.NoError(t, repo.Upsert(ctx, p))

		found, err := repo.FindByID(ctx, request.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "PENDING_APPROVAL", found.Status)
		assert.Equal(t, 6, found.TotalQuantity)
	})

	t.Run("Newer projection wins over a late one", func(t *testing.T) {
		require.NoError(t, request.Approve("oem-1", approved))
		newer := Project(&domain.TransferRequestEvent{Name: domain.EventTransferApproved, Request: request, Timestamp: approved})
		require.NoError(t, repo.Upsert(ctx, newer))

		stale := *newer
		stale.Status = "PENDING_APPROVAL"
		stale.UpdatedAt = created
		require.NoError(t, repo.Upsert(ctx, &stale))

		found, err := repo.FindByID(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", found.Status)
	})

	t.Run("Missing projection", func(t *testing.T) {
		found, err := repo.FindByID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("Filter and paginate", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			other := newRequest(t)
			p := Project(&domain.TransferRequestEvent{Name: domain.EventTransferCreated, Request: other, Timestamp: created})
			p.RequestedAt = created.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repo.Upsert(ctx, p))
		}

		page, err := repo.FindWithFilter(ctx, TransferRequestFilter{Status: "PENDING_APPROVAL", ServiceCenterID: "SC-1"}, Pagination{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)
		assert.True(t, page.Items[0].RequestedAt.After(page.Items[1].RequestedAt))

		approvedPage, err := repo.FindWithFilter(ctx, TransferRequestFilter{Status: "APPROVED"}, Pagination{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), approvedPage.Total)
		assert.False(t, approvedPage.HasMore)
	})
}
