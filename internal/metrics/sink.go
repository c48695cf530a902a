// Package metrics records pipeline timings and job outcomes.
//
// All Sink methods are fire-and-forget: implementations must not block the
// pipeline or surface errors to it.
package metrics

import "time"

// Sink receives pipeline measurements.
type Sink interface {
	StageCompleted(stage string, duration time.Duration, outcome string)
	JobFinished(status string)
	PublishSkipped()
	JobsInFlightIncr()
	JobsInFlightDecr()
}

// Outcome values for StageCompleted.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeCanceled = "canceled"
)
