// Package pipeline runs the four video stages for a job and records the
// outcome in the job store.
//
// Executor owns stage sequencing: script, narration, render, publish, each
// exactly once, each fed only by artifacts from earlier stages. Any failure
// outside publish stops the run and comes back stage-tagged with the
// adapter's message intact. Publish is best effort: a skipped result or a
// credentials/rejection error still yields a successful result without a URL.
//
// Service wraps the executor with the job lifecycle (create, running,
// terminal), lifecycle events, and metrics. It is safe for concurrent use;
// jobs share nothing but the store.
package pipeline
