package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, nil)

	sink.StageCompleted("render", 2*time.Second, OutcomeSuccess)
	sink.StageCompleted("render", 3*time.Second, OutcomeSuccess)
	sink.JobFinished("success")
	sink.JobFinished("failed")
	sink.JobFinished("failed")
	sink.PublishSkipped()
	sink.JobsInFlightIncr()
	sink.JobsInFlightIncr()
	sink.JobsInFlightDecr()

	if got := testutil.ToFloat64(sink.jobsTotal.WithLabelValues("failed")); got != 2 {
		t.Fatalf("expected 2 failed jobs, got %v", got)
	}
	if got := testutil.ToFloat64(sink.publishSkipped); got != 1 {
		t.Fatalf("expected 1 skip, got %v", got)
	}
	if got := testutil.ToFloat64(sink.inFlight); got != 1 {
		t.Fatalf("expected 1 in flight, got %v", got)
	}
	if n := testutil.CollectAndCount(sink.stageDuration); n != 1 {
		t.Fatalf("expected one stage series, got %d", n)
	}

	expected := `
# HELP autotube_publish_skipped_total Jobs that succeeded without publishing.
# TYPE autotube_publish_skipped_total counter
autotube_publish_skipped_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "autotube_publish_skipped_total"); err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
}

func TestPrometheusSinkToleratesDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPrometheusSink(reg, nil)
	second := NewPrometheusSink(reg, nil)
	second.JobFinished("success")
}

func TestNoopSinkSatisfiesInterface(t *testing.T) {
	var s Sink = NoopSink{}
	s.StageCompleted("script", time.Second, OutcomeFailed)
	s.JobFinished("failed")
}
