package pipeline

import (
	"context"
	"errors"
	"time"

	"autotube/internal/metrics"
	"autotube/internal/stage"
)

// StageReport describes one finished stage call.
type StageReport struct {
	JobID      string
	Stage      stage.Name
	Elapsed    time.Duration
	Err        error
	Skipped    bool
	SkipReason string
}

// Outcome classifies the report for metrics and logs.
func (r StageReport) Outcome() string {
	switch {
	case r.Err != nil && (errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, errCanceledBeforeStage)):
		return metrics.OutcomeCanceled
	case r.Err != nil:
		return metrics.OutcomeFailed
	case r.Skipped:
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeSuccess
	}
}

// Hooks observe stage progress. Nil fields are ignored. Hooks run on the
// job's goroutine and must not block.
type Hooks struct {
	StageStarted  func(ctx context.Context, jobID string, name stage.Name)
	StageFinished func(ctx context.Context, report StageReport)
}

// ChainHooks calls each hook set in order.
func ChainHooks(sets ...Hooks) Hooks {
	return Hooks{
		StageStarted: func(ctx context.Context, jobID string, name stage.Name) {
			for _, h := range sets {
				if h.StageStarted != nil {
					h.StageStarted(ctx, jobID, name)
				}
			}
		},
		StageFinished: func(ctx context.Context, report StageReport) {
			for _, h := range sets {
				if h.StageFinished != nil {
					h.StageFinished(ctx, report)
				}
			}
		},
	}
}

func (h Hooks) started(ctx context.Context, jobID string, name stage.Name) {
	if h.StageStarted != nil {
		h.StageStarted(ctx, jobID, name)
	}
}

func (h Hooks) finished(ctx context.Context, report StageReport) {
	if h.StageFinished != nil {
		h.StageFinished(ctx, report)
	}
}

// MetricsHooks records stage durations on sink.
func MetricsHooks(sink metrics.Sink) Hooks {
	if sink == nil {
		return Hooks{}
	}
	return Hooks{
		StageFinished: func(_ context.Context, report StageReport) {
			sink.StageCompleted(string(report.Stage), report.Elapsed, report.Outcome())
			if report.Skipped {
				sink.PublishSkipped()
			}
		},
	}
}
