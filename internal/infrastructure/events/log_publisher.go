package events

import (
	"context"
	"log/slog"

	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/ports"
)

// LogPublisher records lifecycle events in the structured log when no broker is configured.
type LogPublisher struct{}

var _ ports.EventPublisher = LogPublisher{}

func (LogPublisher) Publish(ctx context.Context, event ports.ClaimEvent) error {
	logging.Info(
		logging.WithComponent(ctx, "events.log"),
		"claim event",
		slog.String("event_id", event.EventID),
		slog.String("type", string(event.Type)),
		slog.String("claim_id", event.ClaimID),
		slog.String("customer_id", event.CustomerID),
		slog.String("status", event.Status),
		slog.String("actor_id", event.ActorID),
	)
	return nil
}
