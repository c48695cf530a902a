package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autotube/internal/jobs"
	"autotube/internal/logging"
	"autotube/internal/services"
	"autotube/internal/stage"
	"autotube/internal/workspace"
)

var errCanceledBeforeStage = errors.New("canceled before stage")

// Stages bundles the four collaborators.
type Stages struct {
	Script    stage.ScriptGenerator
	Narration stage.NarrationSynthesizer
	Render    stage.VideoRenderer
	Publish   stage.Publisher
}

// Workspace hands out per-job artifact directories.
type Workspace interface {
	JobDir(jobID string) (string, error)
}

// Options tunes an Executor.
type Options struct {
	Logger    *slog.Logger
	Workspace Workspace
	// StageTimeout bounds each stage call when positive.
	StageTimeout      time.Duration
	DurationTolerance float64
	Hooks             Hooks
}

// Executor runs the stage sequence for one job at a time per call; calls for
// distinct jobs may run concurrently.
type Executor struct {
	stages    Stages
	logger    *slog.Logger
	workspace Workspace
	timeout   time.Duration
	tolerance float64
	hooks     Hooks
}

// NewExecutor validates the collaborators and applies defaults.
func NewExecutor(stages Stages, opts Options) (*Executor, error) {
	var missing []string
	if stages.Script == nil {
		missing = append(missing, string(stage.NameScript))
	}
	if stages.Narration == nil {
		missing = append(missing, string(stage.NameNarration))
	}
	if stages.Render == nil {
		missing = append(missing, string(stage.NameRender))
	}
	if stages.Publish == nil {
		missing = append(missing, string(stage.NamePublish))
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("pipeline: missing stage adapters: %s", strings.Join(missing, ", "))
	}

	ws := opts.Workspace
	if ws == nil {
		manager, err := workspace.New(filepath.Join(os.TempDir(), "autotube"))
		if err != nil {
			return nil, err
		}
		ws = manager
	}
	tolerance := opts.DurationTolerance
	if tolerance <= 0 {
		tolerance = DefaultDurationTolerance
	}
	return &Executor{
		stages:    stages,
		logger:    logging.NewComponentLogger(opts.Logger, "pipeline"),
		workspace: ws,
		timeout:   opts.StageTimeout,
		tolerance: tolerance,
		hooks:     opts.Hooks,
	}, nil
}

// Stages returns the configured collaborators.
func (e *Executor) Stages() Stages { return e.stages }

// Execute runs every stage for jobID and assembles the result. A non-nil
// error is always stage-tagged; failures to prepare the job directory carry
// stage.NamePrepare.
func (e *Executor) Execute(ctx context.Context, jobID string, input jobs.Input) (jobs.Result, error) {
	return e.execute(ctx, jobID, input, e.hooks)
}

func (e *Executor) execute(ctx context.Context, jobID string, input jobs.Input, hooks Hooks) (jobs.Result, error) {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, e.logger)

	workDir, err := e.workspace.JobDir(jobID)
	if err != nil {
		return jobs.Result{}, stage.Tag(stage.NamePrepare, fmt.Errorf("prepare workspace: %w", err))
	}

	var script stage.Script
	err = e.runStage(ctx, logger, hooks, jobID, stage.NameScript, func(ctx context.Context) (stageOutcome, error) {
		generated, err := e.stages.Script.Generate(ctx, stage.ScriptRequest{
			JobID:             jobID,
			WorkDir:           workDir,
			Topic:             input.Topic,
			Tone:              input.Tone,
			TargetDurationSec: input.TargetDurationSec,
		})
		if err != nil {
			return stageOutcome{}, err
		}
		if err := ValidateScript(generated, input.TargetDurationSec, e.tolerance); err != nil {
			return stageOutcome{}, err
		}
		if strings.TrimSpace(generated.Text) == "" {
			generated.Text = generated.JoinBeats()
		}
		script = generated
		return stageOutcome{attrs: []logging.Attr{
			logging.Int("beats", len(generated.Beats)),
			logging.Float64("planned_seconds", generated.TotalSeconds()),
		}}, nil
	})
	if err != nil {
		return jobs.Result{}, err
	}

	var narration stage.NarrationTrack
	err = e.runStage(ctx, logger, hooks, jobID, stage.NameNarration, func(ctx context.Context) (stageOutcome, error) {
		track, err := e.stages.Narration.Synthesize(ctx, stage.NarrationRequest{
			JobID:   jobID,
			WorkDir: workDir,
			Script:  script,
			Tone:    input.Tone,
		})
		if err != nil {
			return stageOutcome{}, err
		}
		if strings.TrimSpace(track.AudioPath) == "" {
			return stageOutcome{}, errors.New("narration produced no audio")
		}
		if !finite(track.DurationSec) {
			return stageOutcome{}, fmt.Errorf("narration reported a non-finite duration (%v)", track.DurationSec)
		}
		narration = track
		return stageOutcome{attrs: []logging.Attr{logging.Float64("audio_seconds", track.DurationSec)}}, nil
	})
	if err != nil {
		return jobs.Result{}, err
	}

	var video stage.RenderedVideo
	err = e.runStage(ctx, logger, hooks, jobID, stage.NameRender, func(ctx context.Context) (stageOutcome, error) {
		rendered, err := e.stages.Render.Render(ctx, stage.RenderRequest{
			JobID:     jobID,
			WorkDir:   workDir,
			Narration: narration,
			Script:    script,
			Tone:      input.Tone,
		})
		if err != nil {
			return stageOutcome{}, err
		}
		if strings.TrimSpace(rendered.Path) == "" {
			return stageOutcome{}, errors.New("renderer produced no video file")
		}
		if !finite(rendered.DurationSec) {
			return stageOutcome{}, fmt.Errorf("renderer reported a non-finite duration (%v)", rendered.DurationSec)
		}
		video = rendered
		return stageOutcome{attrs: []logging.Attr{
			logging.String("video_path", rendered.Path),
			logging.Float64("video_seconds", rendered.DurationSec),
		}}, nil
	})
	if err != nil {
		return jobs.Result{}, err
	}

	var published stage.PublishResult
	err = e.runStage(ctx, logger, hooks, jobID, stage.NamePublish, func(ctx context.Context) (stageOutcome, error) {
		result, err := e.stages.Publish.Publish(ctx, stage.PublishRequest{
			JobID:       jobID,
			WorkDir:     workDir,
			Video:       video,
			Visibility:  input.Visibility,
			Title:       titleFor(script, input),
			Description: script.Text,
			Topic:       input.Topic,
		})
		if err != nil {
			if !services.IsSoftSkip(err) {
				return stageOutcome{}, err
			}
			result = stage.Skip(err.Error())
		}
		if !result.Skipped && strings.TrimSpace(result.URL) == "" {
			result = stage.Skip("publisher returned no URL")
		}
		published = result
		return stageOutcome{skipped: result.Skipped, skipReason: result.SkipReason}, nil
	})
	if err != nil {
		return jobs.Result{}, err
	}

	return assembleResult(script, narration, video, published), nil
}

func titleFor(script stage.Script, input jobs.Input) string {
	if title := strings.TrimSpace(script.Title); title != "" {
		return title
	}
	return input.Topic
}

// assembleResult folds the artifacts into the job result. The rendered
// duration is authoritative; narration length stands in when the renderer
// could not measure its output.
func assembleResult(script stage.Script, narration stage.NarrationTrack, video stage.RenderedVideo, published stage.PublishResult) jobs.Result {
	duration := video.DurationSec
	if duration <= 0 {
		duration = narration.DurationSec
	}
	result := jobs.Result{
		Title:       strings.TrimSpace(script.Title),
		VideoPath:   video.Path,
		DurationSec: duration,
	}
	if published.Skipped {
		result.PublishSkipReason = published.SkipReason
	} else {
		result.PublishedURL = published.URL
	}
	return result
}

// finite rejects durations the job store cannot persist.
func finite(seconds float64) bool {
	return !math.IsNaN(seconds) && !math.IsInf(seconds, 0)
}

type stageOutcome struct {
	attrs      []logging.Attr
	skipped    bool
	skipReason string
}

// runStage guards one stage call: it refuses to start once ctx is done,
// applies the optional timeout, converts panics to errors, reports to hooks,
// and tags any error with the stage name.
func (e *Executor) runStage(ctx context.Context, logger *slog.Logger, hooks Hooks, jobID string, name stage.Name, fn func(context.Context) (stageOutcome, error)) error {
	if err := ctx.Err(); err != nil {
		canceled := fmt.Errorf("canceled before %s stage: %w", name, err)
		hooks.finished(ctx, StageReport{JobID: jobID, Stage: name, Err: errors.Join(canceled, errCanceledBeforeStage)})
		logger.Warn("job canceled",
			logging.String(logging.FieldStage, string(name)),
			logging.String(logging.FieldEventType, "job_canceled"),
		)
		return stage.Tag(name, canceled)
	}

	stageCtx := services.WithStage(ctx, string(name))
	stageLogger := logging.WithContext(stageCtx, e.logger)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, e.timeout)
		defer cancel()
	}

	hooks.started(stageCtx, jobID, name)
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	start := time.Now()

	outcome, err := callStage(stageCtx, fn)
	elapsed := time.Since(start)
	if err != nil && e.timeout > 0 && errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = services.Wrap(services.ErrTimeout, string(name), "",
			fmt.Sprintf("stage exceeded %s", e.timeout), err)
	}

	hooks.finished(stageCtx, StageReport{
		JobID:      jobID,
		Stage:      name,
		Elapsed:    elapsed,
		Err:        err,
		Skipped:    outcome.skipped,
		SkipReason: outcome.skipReason,
	})

	if err != nil {
		stageLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String(logging.FieldErrorKind, string(services.Kind(err))),
			logging.Duration("stage_duration", elapsed),
			logging.Error(err),
		)
		return stage.Tag(name, err)
	}
	if outcome.skipped {
		logging.WarnWithContext(stageLogger, "publish skipped", "publish_skipped",
			logging.String("skip_reason", outcome.skipReason),
			logging.String(logging.FieldErrorHint, "configure publisher credentials to upload automatically"),
			logging.String(logging.FieldImpact, "video kept locally without a published URL"),
		)
	}
	attrs := append([]logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	}, outcome.attrs...)
	stageLogger.Info("stage completed", logging.Args(attrs...)...)
	return nil
}

func callStage(ctx context.Context, fn func(context.Context) (stageOutcome, error)) (outcome stageOutcome, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("stage panicked: %v", recovered)
		}
	}()
	return fn(ctx)
}
