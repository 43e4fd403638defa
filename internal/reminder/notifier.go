package reminder

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Notifier delivers a reminder out of band. Implementations return a message
// id usable for delivery tracking.
type Notifier interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

// LogNotifier stands in for an SMS/WhatsApp gateway: it assigns a message id
// and writes the delivery to the log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, phone, message string) (string, error) {
	id := uuid.NewString()
	n.log.Info("reminder send: delivered",
		slog.String("message_id", id),
		slog.String("phone", phone),
		slog.String("message", message),
	)
	return id, nil
}
