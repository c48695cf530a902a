package main

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"autotube/internal/config"
	"autotube/internal/jobs"
	"autotube/internal/narration"
	"autotube/internal/publish"
	"autotube/internal/script"
	"autotube/internal/testsupport"
)

func TestBuildStagesSelectsProviders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stages, err := buildStages(cfg, nil)
	if err != nil {
		t.Fatalf("build stages: %v", err)
	}
	if _, ok := stages.Script.(*script.TemplateGenerator); !ok {
		t.Fatalf("expected template generator, got %T", stages.Script)
	}
	if _, ok := stages.Narration.(*narration.EstimateSynthesizer); !ok {
		t.Fatalf("expected estimate synthesizer, got %T", stages.Narration)
	}
	if _, ok := stages.Publish.(publish.Disabled); !ok {
		t.Fatalf("expected disabled publisher, got %T", stages.Publish)
	}

	cfg.Script.Provider = config.ProviderLLM
	cfg.LLM.APIKey = "sk-test"
	cfg.Narration.Provider = config.ProviderTTS
	cfg.Narration.APIKey = "tts-test"
	cfg.Publish.Provider = config.ProviderYouTube
	stages, err = buildStages(cfg, nil)
	if err != nil {
		t.Fatalf("build stages: %v", err)
	}
	if _, ok := stages.Script.(*script.LLMGenerator); !ok {
		t.Fatalf("expected llm generator, got %T", stages.Script)
	}
	if _, ok := stages.Narration.(*narration.TTSSynthesizer); !ok {
		t.Fatalf("expected tts synthesizer, got %T", stages.Narration)
	}
	if _, ok := stages.Publish.(*publish.YouTube); !ok {
		t.Fatalf("expected youtube publisher, got %T", stages.Publish)
	}

	cfg.Publish.Provider = config.ProviderMinIO
	cfg.MinIO.Endpoint = "localhost:9000"
	stages, err = buildStages(cfg, nil)
	if err != nil {
		t.Fatalf("build stages: %v", err)
	}
	if _, ok := stages.Publish.(*publish.ObjectStore); !ok {
		t.Fatalf("expected object store publisher, got %T", stages.Publish)
	}

	cfg.Publish.Provider = "carrier-pigeon"
	if _, err := buildStages(cfg, nil); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestOpenStoreBackends(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	if _, ok := store.(*jobs.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
	store.Close()

	cfg.Store.Backend = config.BackendSQLite
	store, err = openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*jobs.SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
}

func TestBuildMetricsServesCollectors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, handler := buildMetrics(cfg, nil); handler != nil {
		t.Fatal("expected no handler when metrics are disabled")
	}

	cfg.Metrics.Enabled = true
	sink, handler := buildMetrics(cfg, nil)
	if handler == nil {
		t.Fatal("expected metrics handler")
	}
	sink.JobFinished(string(jobs.StatusSuccess))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `autotube_jobs_total{status="success"} 1`) {
		t.Fatalf("expected job counter in metrics output:\n%s", body)
	}
}
