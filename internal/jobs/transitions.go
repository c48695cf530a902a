package jobs

import (
	"fmt"
	"time"
)

// CanTransition reports whether a job may move from one status to another.
// Non-terminal statuses may be re-applied as no-ops.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusQueued || to == StatusRunning
	case StatusRunning:
		return to == StatusRunning || to == StatusSuccess || to == StatusFailed
	default:
		return false
	}
}

// applyPatch merges patch into job in place. It is the single implementation
// of the lifecycle rules shared by every Store.
func applyPatch(job *Job, patch Patch, now time.Time) error {
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is already %s", ErrInvalidTransition, job.ID, job.Status)
	}

	target := job.Status
	if patch.Status != nil {
		target = *patch.Status
		if !CanTransition(job.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, target)
		}
	}

	switch target {
	case StatusSuccess:
		if patch.Result == nil {
			return fmt.Errorf("%w: success requires a result", ErrInvalidTransition)
		}
		if patch.Failure != nil {
			return fmt.Errorf("%w: success cannot carry an error", ErrInvalidTransition)
		}
	case StatusFailed:
		if patch.Failure == nil || patch.Failure.Message == "" {
			return fmt.Errorf("%w: failure requires an error message", ErrInvalidTransition)
		}
		if patch.Result != nil {
			return fmt.Errorf("%w: failure cannot carry a result", ErrInvalidTransition)
		}
	default:
		if patch.Result != nil || patch.Failure != nil {
			return fmt.Errorf("%w: %s job cannot carry a result or error", ErrInvalidTransition, target)
		}
	}

	job.Status = target
	job.UpdatedAt = now
	if patch.Result != nil {
		r := *patch.Result
		job.Result = &r
		job.Failure = nil
	}
	if patch.Failure != nil {
		f := *patch.Failure
		job.Failure = &f
		job.Result = nil
	}
	if target.IsTerminal() {
		finished := now
		job.FinishedAt = &finished
	}
	return nil
}
