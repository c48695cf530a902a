package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"autotube/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces an offline config seeded with unique temp directories:
// template scripts, silent narration, publishing disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Store.SQLitePath = filepath.Join(base, "jobs.db")
	cfgVal.Script.Provider = config.ProviderTemplate
	cfgVal.Narration.Provider = config.ProviderEstimate
	cfgVal.Publish.Provider = config.ProviderNone
	cfgVal.Render.MinFreeMiB = 0
	cfgVal.Metrics.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSQLite switches the job store to the SQLite backend.
func WithSQLite() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = config.BackendSQLite
	}
}

// WithPublishProvider selects the publisher.
func WithPublishProvider(provider string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.Provider = provider
	}
}

// WithStubbedBinaries writes no-op executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		dir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			StubBinary(b.t, dir, name, "exit 0")
		}
		PrependPath(b.t, dir)
	}
}

// WithFakeMedia points the renderer at stubs that produce a placeholder
// video and report durationSec for any probed file.
func WithFakeMedia(durationSec string) ConfigOption {
	return func(b *configBuilder) {
		ffmpeg, ffprobe := FakeMediaTools(b.t, filepath.Join(b.baseDir, "bin"), durationSec)
		b.cfg.Render.FFmpegBinary = ffmpeg
		b.cfg.Render.FFprobeBinary = ffprobe
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

// WriteConfigFile serializes cfg as TOML under the config's base dir and
// returns the path, for commands that load configuration from disk.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
