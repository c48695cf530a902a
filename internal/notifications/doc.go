// Package notifications pushes job outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured.
// Watch subscribes to the job event bus and notifies on terminal events, so
// the pipeline never waits on notification delivery.
package notifications
