// Package stage defines the narrow contracts between the pipeline executor
// and its four collaborators: script generation, narration synthesis, video
// rendering, and publishing.
//
// Each collaborator is a single-method capability interface so providers can
// be swapped without touching the executor. Artifacts produced by one stage
// are plain values consumed only by the next. Failures are reported as
// *Failure, which carries the stage tag the job's error record exposes.
package stage
