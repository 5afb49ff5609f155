package notification

import (
	"context"

	"github.com/oem-ev-warranty/parts-service/pkg/logging"
)

// LogNotifier writes notifications to the log only. Used when
// NOTIFICATIONS_ENABLED is false and by the reconcile CLI.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogNotifier{logger: logger.WithComponent("log-notifier")}
}

// SendToRoom logs the event and never fails
func (n *LogNotifier) SendToRoom(ctx context.Context, room, event string, payload any) error {
	n.logger.Event(ctx, event, map[string]any{
		"room":    room,
		"payload": payload,
	})
	return nil
}
