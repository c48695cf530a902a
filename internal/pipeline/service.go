package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autotube/internal/events"
	"autotube/internal/jobs"
	"autotube/internal/logging"
	"autotube/internal/metrics"
	"autotube/internal/services"
	"autotube/internal/stage"
)

// ErrShuttingDown rejects submissions after Shutdown.
var ErrShuttingDown = errors.New("pipeline service is shutting down")

// Service couples the store and the executor: it owns every status
// transition of the jobs it runs.
type Service struct {
	store    jobs.Store
	executor *Executor
	events   events.Publisher
	metrics  metrics.Sink
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithEvents publishes lifecycle events to publisher.
func WithEvents(publisher events.Publisher) ServiceOption {
	return func(s *Service) {
		if publisher != nil {
			s.events = publisher
		}
	}
}

// WithMetrics records job and stage measurements on sink.
func WithMetrics(sink metrics.Sink) ServiceOption {
	return func(s *Service) {
		if sink != nil {
			s.metrics = sink
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires store and executor together.
func NewService(store jobs.Store, executor *Executor, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if executor == nil {
		return nil, errors.New("pipeline: executor is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:    store,
		executor: executor,
		events:   events.Discard{},
		metrics:  metrics.NoopSink{},
		logger:   logging.NewNop(),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = logging.NewComponentLogger(s.logger, "service")
	return s, nil
}

// Store exposes the registry backing the service.
func (s *Service) Store() jobs.Store { return s.store }

// Submit records a job for input and runs it to completion on the caller's
// goroutine. The run ends early when either ctx or Shutdown cancels it. The
// returned job is the terminal snapshot; a stage failure is reported through
// its status, so the error is non-nil only when the input is invalid or the
// store could not record the job.
func (s *Service) Submit(ctx context.Context, input jobs.Input) (jobs.Job, error) {
	job, err := s.create(ctx, input)
	if err != nil {
		return jobs.Job{}, err
	}
	defer s.wg.Done()
	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.baseCtx, cancel)
	defer func() {
		stop()
		cancel()
	}()
	return s.run(runCtx, job)
}

// SubmitAsync records a job and returns it while still queued; the pipeline
// runs in the background until it finishes or Shutdown cancels it.
func (s *Service) SubmitAsync(ctx context.Context, input jobs.Input) (jobs.Job, error) {
	job, err := s.create(ctx, input)
	if err != nil {
		return jobs.Job{}, err
	}
	go func() {
		defer s.wg.Done()
		if _, err := s.run(s.baseCtx, job); err != nil {
			s.logger.Error("background job not recorded",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
		}
	}()
	return job, nil
}

func (s *Service) create(ctx context.Context, input jobs.Input) (jobs.Job, error) {
	if err := input.Validate(); err != nil {
		return jobs.Job{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return jobs.Job{}, ErrShuttingDown
	}
	job, err := s.store.Create(ctx, input)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("create job: %w", err)
	}
	s.wg.Add(1)
	s.emit(ctx, jobs.StatusEvent(job))
	return job, nil
}

func (s *Service) run(ctx context.Context, job jobs.Job) (jobs.Job, error) {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, s.logger)
	// Status writes must land even when the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)

	s.metrics.JobsInFlightIncr()
	defer s.metrics.JobsInFlightDecr()

	running, err := s.store.Update(persistCtx, job.ID, jobs.MarkRunning())
	if err != nil {
		runErr := stage.Tag(stage.NamePrepare, fmt.Errorf("mark job running: %w", err))
		final, failErr := s.forceFailed(persistCtx, job.ID, stage.NamePrepare, runErr.Error())
		if failErr != nil {
			return job, fmt.Errorf("mark job running: %w", errors.Join(err, failErr))
		}
		return s.finish(ctx, logger, final, jobs.Result{}, runErr), nil
	}
	s.emit(ctx, jobs.StatusEvent(running))
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("topic", job.Input.Topic),
		logging.String("tone", string(job.Input.Tone)),
		logging.Int("target_duration_sec", job.Input.TargetDurationSec),
	)

	hooks := ChainHooks(s.executor.hooks, MetricsHooks(s.metrics), s.eventHooks())
	result, runErr := s.executor.execute(ctx, job.ID, job.Input, hooks)

	var (
		patch jobs.Patch
		name  stage.Name
	)
	if runErr != nil {
		var ok bool
		if name, ok = stage.StageOf(runErr); !ok {
			name = stage.NamePrepare
		}
		patch = jobs.MarkFailed(string(name), runErr.Error())
	} else {
		patch = jobs.MarkSucceeded(result)
	}

	final, err := s.store.Update(persistCtx, job.ID, patch)
	if err != nil {
		// The outcome could not be stored; record a failure in its place so
		// the job never stays running.
		recordErr := fmt.Errorf("record job outcome: %w", err)
		failed, failErr := s.forceFailed(persistCtx, job.ID, name, recordErr.Error())
		if failErr != nil {
			return running, fmt.Errorf("%w (fallback: %w)", recordErr, failErr)
		}
		if name != "" {
			recordErr = stage.Tag(name, recordErr)
		}
		return s.finish(ctx, logger, failed, jobs.Result{}, recordErr), nil
	}
	return s.finish(ctx, logger, final, result, runErr), nil
}

// finish reports a stored terminal job to metrics, events and the log.
func (s *Service) finish(ctx context.Context, logger *slog.Logger, final jobs.Job, result jobs.Result, runErr error) jobs.Job {
	s.metrics.JobFinished(string(final.Status))
	s.emit(ctx, jobs.StatusEvent(final))

	if runErr != nil {
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.String(logging.FieldStage, final.Failure.Stage),
			logging.String(logging.FieldErrorKind, string(services.Kind(runErr))),
			logging.String(logging.FieldErrorHint, hintFor(runErr)),
			logging.Error(runErr),
		)
		return final
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("video_path", result.VideoPath),
		logging.Float64("duration_sec", result.DurationSec),
	}
	if result.Published() {
		attrs = append(attrs, logging.String("published_url", result.PublishedURL))
	} else {
		attrs = append(attrs, logging.String("skip_reason", result.PublishSkipReason))
	}
	logger.Info("job completed", logging.Args(attrs...)...)
	return final
}

// forceFailed stores a failure for id from whatever non-terminal status it is
// in, passing through running when the job never left the queue. A job that
// already reached a terminal status is returned as stored.
func (s *Service) forceFailed(ctx context.Context, id string, name stage.Name, message string) (jobs.Job, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return jobs.Job{}, err
	}
	if current.Status.IsTerminal() {
		return current, nil
	}
	if current.Status == jobs.StatusQueued {
		if _, err := s.store.Update(ctx, id, jobs.MarkRunning()); err != nil {
			return jobs.Job{}, err
		}
	}
	return s.store.Update(ctx, id, jobs.MarkFailed(string(name), message))
}

func (s *Service) eventHooks() Hooks {
	return Hooks{
		StageStarted: func(ctx context.Context, jobID string, name stage.Name) {
			s.emit(ctx, jobs.Event{
				Type:   jobs.EventStageStarted,
				JobID:  jobID,
				Status: jobs.StatusRunning,
				Stage:  string(name),
				At:     nowUTC(),
			})
		},
		StageFinished: func(ctx context.Context, report StageReport) {
			event := jobs.Event{
				Type:   jobs.EventStageFinished,
				JobID:  report.JobID,
				Status: jobs.StatusRunning,
				Stage:  string(report.Stage),
				At:     nowUTC(),
			}
			switch {
			case report.Err != nil:
				event.Message = report.Err.Error()
			case report.Skipped:
				event.Message = report.SkipReason
			}
			s.emit(ctx, event)
		},
	}
}

func (s *Service) emit(ctx context.Context, event jobs.Event) {
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Debug("job event dropped",
			logging.String(logging.FieldJobID, event.JobID),
			logging.String(logging.FieldEventType, string(event.Type)),
			logging.Error(err),
		)
	}
}

// Wait blocks until every submitted job has finished.
func (s *Service) Wait() { s.wg.Wait() }

// Shutdown stops accepting jobs, cancels background runs, and waits for them
// to record their outcome or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case services.KindConfiguration, services.KindNoCredentials:
		return "check the config file and environment variables"
	case services.KindExternalTool:
		return "verify ffmpeg and ffprobe are installed and on PATH"
	case services.KindTimeout:
		return "raise pipeline.stage_timeout_seconds or check the provider's latency"
	case services.KindValidation:
		return "inspect the generated script; the provider may need a different prompt or model"
	case services.KindCanceled:
		return "job was canceled; resubmit to try again"
	default:
		return "check logs for details"
	}
}

func nowUTC() time.Time { return time.Now().UTC() }
