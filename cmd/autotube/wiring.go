package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autotube/internal/config"
	"autotube/internal/jobs"
	"autotube/internal/metrics"
	"autotube/internal/narration"
	"autotube/internal/pipeline"
	"autotube/internal/publish"
	"autotube/internal/render"
	"autotube/internal/script"
	"autotube/internal/services/llm"
	"autotube/internal/stage"
	"autotube/internal/workspace"
)

// buildStages resolves every configured provider into a stage adapter.
func buildStages(cfg *config.Config, logger *slog.Logger) (pipeline.Stages, error) {
	var stages pipeline.Stages

	switch cfg.Script.Provider {
	case config.ProviderLLM:
		client := llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        llm.CompletionsURL(cfg.LLM.BaseURL),
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			Temperature:    cfg.LLM.Temperature,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, llm.WithRetry(cfg.LLM.RetryAttempts, time.Second, 10*time.Second))
		stages.Script = script.NewLLMGenerator(client, cfg.Script.WordsPerMinute, logger)
	case config.ProviderTemplate:
		stages.Script = script.NewTemplateGenerator()
	default:
		return pipeline.Stages{}, fmt.Errorf("script.provider: unsupported value %q", cfg.Script.Provider)
	}

	switch cfg.Narration.Provider {
	case config.ProviderTTS:
		stages.Narration = narration.NewTTSSynthesizer(narration.TTSConfig{
			BaseURL:        cfg.Narration.BaseURL,
			APIKey:         cfg.Narration.APIKey,
			Model:          cfg.Narration.Model,
			Voices:         cfg.Narration.Voices,
			Timeout:        time.Duration(cfg.Narration.TimeoutSeconds) * time.Second,
			FFprobeBinary:  cfg.Render.FFprobeBinary,
			WordsPerMinute: cfg.Script.WordsPerMinute,
		}, logger)
	case config.ProviderEstimate:
		stages.Narration = narration.NewEstimateSynthesizer(cfg.Script.WordsPerMinute)
	default:
		return pipeline.Stages{}, fmt.Errorf("narration.provider: unsupported value %q", cfg.Narration.Provider)
	}

	stages.Render = render.NewRenderer(render.Config{
		FFmpegBinary:  cfg.Render.FFmpegBinary,
		FFprobeBinary: cfg.Render.FFprobeBinary,
		Width:         cfg.Render.Width,
		Height:        cfg.Render.Height,
		FPS:           cfg.Render.FPS,
		FontSize:      cfg.Render.FontSize,
		Backgrounds:   cfg.Render.Backgrounds,
		MinFreeMiB:    cfg.Render.MinFreeMiB,
	}, logger)

	switch cfg.Publish.Provider {
	case config.ProviderYouTube:
		stages.Publish = publish.NewYouTube(publish.YouTubeConfig{
			ClientID:     cfg.YouTube.ClientID,
			ClientSecret: cfg.YouTube.ClientSecret,
			RefreshToken: cfg.YouTube.RefreshToken,
			TokenURL:     cfg.YouTube.TokenURL,
			UploadURL:    cfg.YouTube.UploadURL,
			CategoryID:   cfg.YouTube.CategoryID,
			Tags:         cfg.YouTube.Tags,
			Timeout:      time.Duration(cfg.YouTube.TimeoutSeconds) * time.Second,
		}, logger)
	case config.ProviderMinIO:
		store, err := publish.NewMinIO(publish.MinIOConfig{
			Endpoint:      cfg.MinIO.Endpoint,
			AccessKey:     cfg.MinIO.AccessKey,
			SecretKey:     cfg.MinIO.SecretKey,
			Bucket:        cfg.MinIO.Bucket,
			Region:        cfg.MinIO.Region,
			UseSSL:        cfg.MinIO.UseSSL,
			PublicBaseURL: cfg.MinIO.PublicBaseURL,
		}, logger)
		if err != nil {
			return pipeline.Stages{}, err
		}
		stages.Publish = store
	case config.ProviderNone:
		stages.Publish = publish.Disabled{}
	default:
		return pipeline.Stages{}, fmt.Errorf("publish.provider: unsupported value %q", cfg.Publish.Provider)
	}

	return stages, nil
}

// buildExecutor wires the stages to the configured work dir.
func buildExecutor(cfg *config.Config, ws *workspace.Manager, stages pipeline.Stages, logger *slog.Logger, hooks pipeline.Hooks) (*pipeline.Executor, error) {
	return pipeline.NewExecutor(stages, pipeline.Options{
		Logger:            logger,
		Workspace:         ws,
		StageTimeout:      cfg.StageTimeout(),
		DurationTolerance: cfg.Script.DurationTolerance,
		Hooks:             hooks,
	})
}

func openStore(ctx context.Context, cfg *config.Config) (jobs.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		store, err := jobs.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMemory, "":
		return jobs.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store.backend: unsupported value %q", cfg.Store.Backend)
	}
}

// healthChecks reports each adapter in stage order.
func healthChecks(stages pipeline.Stages) func(ctx context.Context) []stage.Health {
	return func(ctx context.Context) []stage.Health {
		return []stage.Health{
			stage.CheckHealth(ctx, stage.NameScript, stages.Script),
			stage.CheckHealth(ctx, stage.NameNarration, stages.Narration),
			stage.CheckHealth(ctx, stage.NameRender, stages.Render),
			stage.CheckHealth(ctx, stage.NamePublish, stages.Publish),
		}
	}
}

// buildMetrics returns the sink and, when enabled, the /metrics handler.
func buildMetrics(cfg *config.Config, logger *slog.Logger) (metrics.Sink, http.Handler) {
	if !cfg.Metrics.Enabled {
		return metrics.NoopSink{}, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := metrics.NewPrometheusSink(reg, logger)
	return sink, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
