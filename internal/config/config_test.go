package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"autotube/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "TTS_API_KEY",
		"YOUTUBE_CLIENT_ID", "YOUTUBE_CLIENT_SECRET", "YOUTUBE_REFRESH_TOKEN",
		"MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "NTFY_TOPIC",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearCredentialEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists || resolved == "" {
		t.Fatalf("expected missing default config, got %q exists=%v", resolved, exists)
	}
	if want := filepath.Join(home, ".local", "share", "autotube", "work"); cfg.Paths.WorkDir != want {
		t.Fatalf("work dir: got %q want %q", cfg.Paths.WorkDir, want)
	}
	if cfg.Script.Provider != config.ProviderTemplate {
		t.Fatalf("expected template script provider without key, got %q", cfg.Script.Provider)
	}
	if cfg.Narration.Provider != config.ProviderEstimate {
		t.Fatalf("expected estimate narration without key, got %q", cfg.Narration.Provider)
	}
	if cfg.Publish.Provider != config.ProviderYouTube || cfg.YouTubeCredentialsPresent() {
		t.Fatalf("expected youtube publisher without credentials, got %#v", cfg.YouTube)
	}
	if cfg.Store.Backend != config.BackendMemory || cfg.StageTimeout() != 0 {
		t.Fatalf("unexpected store/pipeline defaults: %#v %#v", cfg.Store, cfg.Pipeline)
	}
}

func TestLoadPicksCredentialsFromEnvAndDotEnv(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)

	t.Setenv("OPENROUTER_API_KEY", "router-key")
	dotenv := "TTS_API_KEY=tts-key\nYOUTUBE_CLIENT_ID=cid\nYOUTUBE_CLIENT_SECRET=secret\nYOUTUBE_REFRESH_TOKEN=refresh\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv never overrides variables that are already set, so unset the
	// blanks installed by clearCredentialEnv for the keys the file provides.
	for _, key := range []string{"TTS_API_KEY", "YOUTUBE_CLIENT_ID", "YOUTUBE_CLIENT_SECRET", "YOUTUBE_REFRESH_TOKEN"} {
		os.Unsetenv(key)
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "router-key" || cfg.Script.Provider != config.ProviderLLM {
		t.Fatalf("expected llm provider from env key, got %q %q", cfg.LLM.APIKey, cfg.Script.Provider)
	}
	if cfg.Narration.APIKey != "tts-key" || cfg.Narration.Provider != config.ProviderTTS {
		t.Fatalf("expected tts provider from .env, got %q %q", cfg.Narration.APIKey, cfg.Narration.Provider)
	}
	if !cfg.YouTubeCredentialsPresent() {
		t.Fatalf("expected youtube credentials from .env, got %#v", cfg.YouTube)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(dir, "work")
	cfg.Store.Backend = "SQLite"
	cfg.Pipeline.StageTimeoutSeconds = 90
	cfg.Publish.Provider = "none"
	cfg.Logging.Format = "JSON"
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(dir, "autotube.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %s to be used, got %q exists=%v", path, resolved, exists)
	}
	if loaded.Store.Backend != config.BackendSQLite || loaded.Publish.Provider != config.ProviderNone || loaded.Logging.Format != "json" {
		t.Fatalf("overrides not applied: %#v", loaded)
	}
	if loaded.StageTimeout().Seconds() != 90 {
		t.Fatalf("unexpected stage timeout %v", loaded.StageTimeout())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"store backend", func(c *config.Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"negative timeout", func(c *config.Config) { c.Pipeline.StageTimeoutSeconds = -1 }, "stage_timeout_seconds"},
		{"llm without key", func(c *config.Config) { c.Script.Provider = config.ProviderLLM }, "llm.api_key"},
		{"tolerance", func(c *config.Config) { c.Script.DurationTolerance = 1.5 }, "duration_tolerance"},
		{"tts without key", func(c *config.Config) { c.Narration.Provider = config.ProviderTTS }, "narration.api_key"},
		{"odd width", func(c *config.Config) { c.Render.Width = 1081 }, "even"},
		{"minio endpoint", func(c *config.Config) { c.Publish.Provider = config.ProviderMinIO }, "minio.endpoint"},
		{"publish provider", func(c *config.Config) { c.Publish.Provider = "vimeo" }, "publish.provider"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Script.Provider = config.ProviderTemplate
			cfg.Narration.Provider = config.ProviderEstimate
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	cfg := config.Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample does not parse: %v", err)
	}
	if cfg.Narration.Voices["dramatic"] != "onyx" || cfg.Render.Height != 1920 {
		t.Fatalf("unexpected sample values: %#v", cfg)
	}
}
