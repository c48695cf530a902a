// Package jobs owns the authoritative record of every video job: identity,
// status, validated input, result or failure, and timing.
//
// A Store is the only mutation path for job state. Create allocates an id and
// records the job as queued; Update merges a Patch and enforces the lifecycle
// queued -> running -> success|failed, rejecting any move out of a terminal
// state and any patch that would leave a terminal job without exactly one of
// Result or Failure. Reads return deep copies so callers never alias registry
// memory.
//
// Two implementations share the transition rules in transitions.go:
// MemoryStore (the default; process-lifetime registry) and SQLiteStore (same
// contract, kept on disk for inspection after the process exits). Neither
// resumes work: SQLiteStore fails any job a previous process left in flight.
//
// The package has no knowledge of pipeline internals; Summarize is a pure
// projection used at presentation boundaries.
package jobs
