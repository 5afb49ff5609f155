package vehicle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oem-ev-warranty/parts-service/pkg/resilience"
)

func fastRetry() *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{BaseURL: server.URL + "/", Timeout: time.Second, Retry: fastRetry()}, nil, nil), &calls
}

func TestClient_IsCompatible(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/vehicle-models/MODEL-E1/compatible-components/TC-BATTERY", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(compatibilityResponse{
			VehicleModelID:  "MODEL-E1",
			TypeComponentID: "TC-BATTERY",
			Compatible:      true,
		})
	})

	ok, err := client.IsCompatible(context.Background(), "MODEL-E1", "TC-BATTERY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_NotFoundMeansIncompatible(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ok, err := client.IsCompatible(context.Background(), "MODEL-X", "TC-BATTERY")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempt int32
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&attempt, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"compatible":true}`))
	})

	ok, err := client.IsCompatible(context.Background(), "MODEL-E1", "TC-MOTOR")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad model id"))
	})

	_, err := client.IsCompatible(context.Background(), "??", "TC-MOTOR")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "bad model id", statusErr.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client.retry = &resilience.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1, RetryableErrors: isRetryable}

	ctx := context.Background()
	for i := 0; i < int(resilience.DefaultFailureThreshold); i++ {
		_, err := client.IsCompatible(ctx, "MODEL-E1", "TC-MOTOR")
		require.Error(t, err)
	}
	before := atomic.LoadInt32(calls)

	_, err := client.IsCompatible(ctx, "MODEL-E1", "TC-MOTOR")
	require.Error(t, err)
	assert.True(t, resilience.IsUnavailable(err))
	assert.Equal(t, before, atomic.LoadInt32(calls))
}

func TestStaticTable(t *testing.T) {
	table := NewStaticTable().
		Allow("MODEL-E1", "TC-BATTERY", "TC-MOTOR").
		Allow(Wildcard, "TC-WIPER")

	cases := []struct {
		model, typ string
		want       bool
	}{
		{"MODEL-E1", "TC-BATTERY", true},
		{"MODEL-E1", "TC-MOTOR", true},
		{"MODEL-E2", "TC-BATTERY", false},
		{"MODEL-E2", "TC-WIPER", true},
		{"MODEL-E1", "TC-SEAT", false},
	}
	for _, tc := range cases {
		got, err := table.IsCompatible(context.Background(), tc.model, tc.typ)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s/%s", tc.model, tc.typ)
	}

	ok, err := NewPermissiveTable().IsCompatible(context.Background(), "ANY", "ANY")
	require.NoError(t, err)
	assert.True(t, ok)
}
