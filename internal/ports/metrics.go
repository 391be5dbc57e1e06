package ports

import (
	"context"
	"time"
)

// WorkflowMetrics receives one observation per engine operation.
type WorkflowMetrics interface {
	Observe(ctx context.Context, op string, start time.Time, err error)
	PolicyNumberAttempts(ctx context.Context, attempts int, exhausted bool)
}
