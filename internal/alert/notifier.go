package alert

import (
	"context"
	"strings"
)

// LogNotifier writes notifications to the structured log.
//
// This is the default delivery backend: outbound email/SMS transports are
// deployment concerns, and every delivered notification also reaches
// connected clients over WebSocket regardless of backend.
type LogNotifier struct {
	recipients []string
	logger     Logger
}

// NewLogNotifier creates a log-backed notifier.
//
// Parameters:
//   - recipients: Configured recipients, recorded with each delivery
//   - logger: Destination log
func NewLogNotifier(recipients []string, logger Logger) *LogNotifier {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogNotifier{recipients: recipients, logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	n.logger.Warn("ALERT "+notification.Subject,
		"id", notification.ID,
		"severity", string(notification.Severity),
		"count", notification.Count,
		"message", notification.Message,
		"recipients", strings.Join(n.recipients, ","))
	return nil
}
