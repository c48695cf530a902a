package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"autotube/internal/config"
	"autotube/internal/jobs"
	"autotube/internal/pipeline"
	"autotube/internal/preflight"
	"autotube/internal/stage"
	"autotube/internal/workspace"
)

const defaultRunTopic = "AI breakthroughs you missed this week"

// errJobFailed is returned after the failure has already been printed.
var errJobFailed = errors.New("job failed")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var checkOnly bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run [topic] [tone] [duration]",
		Short: "Generate one video in the foreground",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			stages, err := buildStages(cfg, logger)
			if err != nil {
				return err
			}
			if checkOnly {
				return printChecks(cmd, cfg, stages)
			}

			raw := runInputFromArgs(args)
			input, err := jobs.NormalizeInput(raw)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			ws, err := workspace.New(cfg.Paths.WorkDir)
			if err != nil {
				return err
			}
			var hooks pipeline.Hooks
			if !quiet {
				hooks = progressHooks(cmd.ErrOrStderr())
			}
			executor, err := buildExecutor(cfg, ws, stages, logger, hooks)
			if err != nil {
				return err
			}
			store := jobs.NewMemoryStore()
			defer store.Close()
			service, err := pipeline.NewService(store, executor, pipeline.WithLogger(logger))
			if err != nil {
				return err
			}

			job, err := service.Submit(signalCtx, input)
			if err != nil {
				return err
			}
			return printRunOutcome(cmd.OutOrStdout(), job)
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Report adapter readiness and exit")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the stage progress bar")
	return cmd
}

// runInputFromArgs applies the CLI defaults: unknown tones fall back to
// informative, unparseable durations to 180 seconds, and the video is
// always private.
func runInputFromArgs(args []string) jobs.RawInput {
	topic := defaultRunTopic
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		topic = args[0]
	}
	tone := jobs.DefaultTone
	if len(args) > 1 {
		tone = jobs.ToneOrDefault(args[1])
	}
	duration := jobs.DefaultTargetDurationSec
	if len(args) > 2 {
		if parsed, err := strconv.Atoi(strings.TrimSpace(args[2])); err == nil {
			duration = parsed
		}
	}
	return jobs.RawInput{
		Topic:             topic,
		Tone:              string(tone),
		TargetDurationSec: &duration,
		Visibility:        string(jobs.VisibilityPrivate),
	}
}

func printRunOutcome(out io.Writer, job jobs.Job) error {
	if job.Status != jobs.StatusSuccess || job.Result == nil {
		if job.Failure != nil {
			if job.Failure.Stage != "" {
				fmt.Fprintf(out, "Job %s failed during %s: %s\n", job.ID, job.Failure.Stage, job.Failure.Message)
			} else {
				fmt.Fprintf(out, "Job %s failed: %s\n", job.ID, job.Failure.Message)
			}
		}
		if job.Failure != nil && strings.Contains(job.Failure.Message, context.Canceled.Error()) {
			return context.Canceled
		}
		return errJobFailed
	}
	fmt.Fprintf(out, "Rendered video path: %s\n", job.Result.VideoPath)
	if job.Result.Published() {
		fmt.Fprintf(out, "Uploaded: %s\n", job.Result.PublishedURL)
		return nil
	}
	reason := job.Result.PublishSkipReason
	if reason == "" {
		reason = "publisher returned no URL"
	}
	fmt.Fprintf(out, "Publish skipped: %s – video stored locally\n", reason)
	return nil
}

func progressHooks(w io.Writer) pipeline.Hooks {
	bar := progressbar.NewOptions(len(stage.Ordered()),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("starting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
	return pipeline.Hooks{
		StageStarted: func(_ context.Context, _ string, name stage.Name) {
			bar.Describe(string(name))
		},
		StageFinished: func(_ context.Context, report pipeline.StageReport) {
			_ = bar.Add(1)
			if report.Err != nil {
				_ = bar.Exit()
				return
			}
			if report.Stage == stage.NamePublish {
				_ = bar.Finish()
			}
		},
	}
}

func printChecks(cmd *cobra.Command, cfg *config.Config, stages pipeline.Stages) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results := preflight.RunAll(ctx, cfg)
	for _, h := range healthChecks(stages)(ctx) {
		results = append(results, preflight.Result{Name: "stage " + h.Name, Passed: h.Ready, Detail: h.Detail})
	}

	out := cmd.OutOrStdout()
	if isTerminal(out) {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{r.Name, yesNo(r.Passed), r.Detail})
		}
		fmt.Fprintln(out, renderTable([]column{{title: "Check"}, {title: "Ready"}, {title: "Detail"}}, rows))
	} else {
		for _, r := range results {
			fmt.Fprintf(out, "%s ready=%s %s\n", r.Name, yesNo(r.Passed), r.Detail)
		}
	}
	if preflight.Failed(results) {
		return errors.New("one or more checks failed")
	}
	return nil
}
