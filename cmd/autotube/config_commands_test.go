package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autotube/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "autotube", "config.toml")

	out, _, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateShowsProviders(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSQLite())
	path := testsupport.WriteConfigFile(t, cfg)

	out, _, err := runCLI(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireSetting(t, out, "Config", path)
	requireSetting(t, out, "Script provider", "template")
	requireSetting(t, out, "Publish provider", "none")
	requireSetting(t, out, "Job store", "sqlite ("+cfg.Store.SQLitePath+")")
	requireSetting(t, out, "Metrics", "no")
	requireContains(t, out, "Configuration valid")
}

func requireSetting(t *testing.T, out, label, want string) {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, label+":"); ok {
			if got := strings.TrimSpace(rest); got != want {
				t.Fatalf("%s = %q, want %q", label, got, want)
			}
			return
		}
	}
	t.Fatalf("no %q line in:\n%s", label, out)
}
