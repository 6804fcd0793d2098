package notify

import (
	"context"
	"log/slog"

	"challengehub/pkg/domain"
)

// Sink receives committed notification events. Delivery is
// best-effort; a failing sink must never affect the business
// transaction that produced the event.
type Sink interface {
	Publish(ctx context.Context, event domain.OutboxEvent) error
}

// LogSink writes events to the structured log. Used when no message
// broker is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a log-backed sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event domain.OutboxEvent) error {
	s.logger.InfoContext(ctx, "notification event",
		"event_id", event.ID,
		"entity_type", event.EntityType,
		"action", event.Action,
		"actor_id", event.ActorID,
		"recipients", len(event.RecipientIDs),
	)
	return nil
}
