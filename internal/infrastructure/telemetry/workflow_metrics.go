package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WorkflowMetrics counts engine operations and implements ports.WorkflowMetrics.
// A nil *WorkflowMetrics records nothing.
type WorkflowMetrics struct {
	ops         metric.Int64Counter
	dur         metric.Float64Histogram
	failures    metric.Int64Counter
	genAttempts metric.Int64Histogram
}

func NewWorkflowMetrics(meter metric.Meter) (*WorkflowMetrics, error) {
	ops, err := meter.Int64Counter("claimflow.operations",
		metric.WithDescription("Workflow engine operations executed"),
	)
	if err != nil {
		return nil, err
	}
	dur, err := meter.Float64Histogram("claimflow.operation.duration",
		metric.WithDescription("Workflow engine operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("claimflow.operation.errors",
		metric.WithDescription("Workflow engine operations that returned an error"),
	)
	if err != nil {
		return nil, err
	}
	genAttempts, err := meter.Int64Histogram("claimflow.policy_number.attempts",
		metric.WithDescription("Candidates drawn per policy number issued"),
	)
	if err != nil {
		return nil, err
	}
	return &WorkflowMetrics{
		ops:         ops,
		dur:         dur,
		failures:    failures,
		genAttempts: genAttempts,
	}, nil
}

// Observe records one finished operation.
func (m *WorkflowMetrics) Observe(ctx context.Context, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", op))
	m.ops.Add(ctx, 1, attrs)
	m.dur.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}

func (m *WorkflowMetrics) PolicyNumberAttempts(ctx context.Context, attempts int, exhausted bool) {
	if m == nil {
		return
	}
	m.genAttempts.Record(ctx, int64(attempts), metric.WithAttributes(attribute.Bool("exhausted", exhausted)))
}
