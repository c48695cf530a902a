package metrics

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink with client_golang collectors.
// Registration failures are logged and never propagated.
type PrometheusSink struct {
	stageDuration  *prometheus.HistogramVec
	jobsTotal      *prometheus.CounterVec
	publishSkipped prometheus.Counter
	inFlight       prometheus.Gauge
	logger         *slog.Logger
}

var _ Sink = (*PrometheusSink)(nil)

// NewPrometheusSink creates the collectors and registers them on reg.
func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &PrometheusSink{logger: logger}
	s.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autotube_stage_duration_seconds",
		Help:    "Wall time spent in each pipeline stage.",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"stage", "outcome"})
	s.jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autotube_jobs_total",
		Help: "Jobs that reached a terminal status.",
	}, []string{"status"})
	s.publishSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autotube_publish_skipped_total",
		Help: "Jobs that succeeded without publishing.",
	})
	s.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autotube_jobs_in_flight",
		Help: "Jobs currently executing.",
	})

	s.register(reg, s.stageDuration, "autotube_stage_duration_seconds")
	s.register(reg, s.jobsTotal, "autotube_jobs_total")
	s.register(reg, s.publishSkipped, "autotube_publish_skipped_total")
	s.register(reg, s.inFlight, "autotube_jobs_in_flight")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return
		}
		s.logger.Warn("metric registration failed", slog.String("metric", name), slog.Any("error", err))
	}
}

func (s *PrometheusSink) StageCompleted(stage string, duration time.Duration, outcome string) {
	s.stageDuration.WithLabelValues(stage, outcome).Observe(duration.Seconds())
}

func (s *PrometheusSink) JobFinished(status string) {
	s.jobsTotal.WithLabelValues(status).Inc()
}

func (s *PrometheusSink) PublishSkipped() {
	s.publishSkipped.Inc()
}

func (s *PrometheusSink) JobsInFlightIncr() {
	s.inFlight.Inc()
}

func (s *PrometheusSink) JobsInFlightDecr() {
	s.inFlight.Dec()
}
