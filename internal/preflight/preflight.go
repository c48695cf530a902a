package preflight

import (
	"context"

	"autotube/internal/config"
	"autotube/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results never fail the overall check.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, cfg.Render.MinFreeMiB),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		detail := status.Detail
		if status.Available {
			detail = status.Command
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail, Optional: status.Optional})
	}

	if cfg.Script.Provider == config.ProviderLLM {
		results = append(results, CheckLLM(ctx, "Script LLM", cfg.LLM))
	}
	if cfg.Publish.Provider == config.ProviderYouTube && !cfg.YouTubeCredentialsPresent() {
		results = append(results, Result{
			Name:     "YouTube credentials",
			Detail:   "not configured; videos will be kept locally",
			Optional: true,
		})
	}
	if cfg.Events.RedisAddr != "" {
		results = append(results, CheckRedis(ctx, cfg.Events))
	}
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
