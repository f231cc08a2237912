package events

import (
	"context"
	"log/slog"
)

// AuditLogger writes every domain event it receives to the structured log.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger.With("component", "audit")}
}

func (a *AuditLogger) Handle(ctx context.Context, event Event) error {
	a.logger.InfoContext(ctx, "domain event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"occurred_at", event.OccurredAt(),
		"payload", event.Payload())
	return nil
}

// Register subscribes the audit logger to every known domain event type.
func (a *AuditLogger) Register(bus *EventBus) {
	for _, t := range AllTypes {
		bus.Subscribe(t, a.Handle)
	}
}
