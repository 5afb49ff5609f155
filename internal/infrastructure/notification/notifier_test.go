package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oem-ev-warranty/parts-service/pkg/cloudevents"
	"github.com/oem-ev-warranty/parts-service/pkg/kafka"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/resilience"
)

type published struct {
	topic string
	event *cloudevents.WarrantyCloudEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
	closed bool
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic string, event *cloudevents.WarrantyCloudEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{topic: topic, event: event})
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestKafkaNotifier_SendToRoom(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, "parts.notifications", nil)

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-42")
	payload := map[string]any{"requestId": "STR-1"}
	require.NoError(t, n.SendToRoom(ctx, "company:CO-1", "stock_transfer_request:created", payload))

	require.Len(t, pub.events, 1)
	got := pub.events[0]
	assert.Equal(t, "parts.notifications", got.topic)
	assert.Equal(t, cloudevents.TransferRequestCreated, got.event.Type)
	assert.Equal(t, cloudevents.SourcePartsService, got.event.Source)
	assert.Equal(t, "company:CO-1", got.event.Subject)
	assert.Equal(t, "company:CO-1", got.event.Room)
	assert.Equal(t, "stock_transfer_request:created", got.event.EventName)
	assert.Equal(t, "corr-42", got.event.CorrelationID)
	assert.Equal(t, payload, got.event.Data)
	assert.NotEmpty(t, got.event.ID)
}

func TestKafkaNotifier_DefaultTopicAndUnknownEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, "", nil)

	require.NoError(t, n.SendToRoom(context.Background(), "service_center:SC-1", "something:else", nil))

	require.Len(t, pub.events, 1)
	assert.Equal(t, kafka.Topics.Notifications, pub.events[0].topic)
	assert.Equal(t, cloudevents.Generic, pub.events[0].event.Type)
}

func TestKafkaNotifier_Errors(t *testing.T) {
	t.Run("missing room", func(t *testing.T) {
		pub := &fakePublisher{}
		n := NewKafkaNotifier(pub, "", nil)

		err := n.SendToRoom(context.Background(), "", "caseline:allocated", nil)
		require.Error(t, err)
		assert.Empty(t, pub.events)
	})

	t.Run("publisher failure is wrapped", func(t *testing.T) {
		boom := errors.New("broker down")
		n := NewKafkaNotifier(&fakePublisher{err: boom}, "", nil)

		err := n.SendToRoom(context.Background(), "company:CO-1", "caseline:allocated", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})
}

func TestKafkaNotifier_CircuitBreakerOpens(t *testing.T) {
	inner := &fakePublisher{err: errors.New("broker down")}
	guarded := kafka.NewCircuitBreakerProducer(inner, nil, nil)
	n := NewKafkaNotifier(guarded, "", nil)

	ctx := context.Background()
	for i := 0; i < int(resilience.DefaultFailureThreshold); i++ {
		require.Error(t, n.SendToRoom(ctx, "company:CO-1", "caseline:allocated", nil))
	}

	err := n.SendToRoom(ctx, "company:CO-1", "caseline:allocated", nil)
	require.Error(t, err)
	assert.True(t, resilience.IsUnavailable(err))
}

func TestKafkaNotifier_Close(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewKafkaNotifier(pub, "", nil).Close())
	assert.True(t, pub.closed)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.NoError(t, n.SendToRoom(context.Background(), "company:CO-1", "stock_transfer_request:received", map[string]string{"id": "STR-1"}))
}
