// Package services defines shared utilities consumed by the pipeline executor
// and the stage adapters that talk to external systems.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so adapter failures carry
//     a classification (validation, configuration, transient, ...) alongside
//     a readable message.
//   - Publish-specific markers (ErrNoCredentials, ErrRejected) that the
//     executor converts into a soft-skip instead of a job failure.
//
// Use these helpers when wiring new adapters so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
