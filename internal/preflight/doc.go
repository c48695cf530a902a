// Package preflight provides readiness checks for the directories, binaries
// and external services autotube depends on.
//
// `autotube run --check` runs RunAll next to the per-stage health checks so
// configuration problems surface before a job spends money on generation.
//
// Each check is gated by its config toggle; unused providers are skipped.
package preflight
