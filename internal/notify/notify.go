// Package notify delivers outcome messages to users by SMS. Background
// chain operations finish after the USSD session has ended, so this gateway
// is the only channel for their results.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends a text message to a phone number.
type Notifier interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// LoggerNotifier writes notifications to the structured logger. Used in
// development and tests when no SMS gateway is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, phoneNumber, message string) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("sms", "to", phoneNumber, "body", message)
	return nil
}
