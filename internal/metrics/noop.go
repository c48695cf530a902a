package metrics

import "time"

// NoopSink discards every measurement.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) StageCompleted(string, time.Duration, string) {}
func (NoopSink) JobFinished(string)                           {}
func (NoopSink) PublishSkipped()                              {}
func (NoopSink) JobsInFlightIncr()                            {}
func (NoopSink) JobsInFlightDecr()                            {}
