package notification

import (
	"context"
	"fmt"

	"github.com/oem-ev-warranty/parts-service/pkg/cloudevents"
	"github.com/oem-ev-warranty/parts-service/pkg/kafka"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
)

// KafkaNotifier publishes room notifications as CloudEvents on a single topic.
// The room is the message key, so one room's events stay ordered.
type KafkaNotifier struct {
	publisher kafka.EventPublisher
	factory   *cloudevents.EventFactory
	topic     string
	logger    *logging.Logger
}

// NewKafkaNotifier creates a notifier over an existing publisher
func NewKafkaNotifier(publisher kafka.EventPublisher, topic string, logger *logging.Logger) *KafkaNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if topic == "" {
		topic = kafka.Topics.Notifications
	}
	return &KafkaNotifier{
		publisher: publisher,
		factory:   cloudevents.NewEventFactory(cloudevents.SourcePartsService),
		topic:     topic,
		logger:    logger.WithComponent("kafka-notifier"),
	}
}

// NewKafkaNotifierFromConfig builds the producer chain: raw writer, then
// metrics and tracing, then the circuit breaker.
func NewKafkaNotifierFromConfig(config *kafka.Config, topic string, m *metrics.Metrics, logger *logging.Logger) *KafkaNotifier {
	producer := kafka.NewProducer(config)
	instrumented := kafka.NewInstrumentedProducer(producer, m, logger)
	guarded := kafka.NewCircuitBreakerProducer(instrumented, m, logger)
	return NewKafkaNotifier(guarded, topic, logger)
}

// SendToRoom publishes one event for one room
func (n *KafkaNotifier) SendToRoom(ctx context.Context, room, event string, payload any) error {
	if room == "" {
		return fmt.Errorf("notification %s has no room", event)
	}

	ce := n.factory.CreateRoomEvent(ctx, room, event, payload)
	if err := n.publisher.PublishEvent(ctx, n.topic, ce); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, room, err)
	}

	n.logger.WithContext(ctx).Debug("Notification published",
		"room", room,
		"event", event,
		"eventId", ce.ID,
	)
	return nil
}

// Close flushes and closes the underlying producer
func (n *KafkaNotifier) Close() error {
	return n.publisher.Close()
}
