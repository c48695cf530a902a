package jobs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports an unknown job id. Ids are never invented by
	// callers, so this signals a logic error rather than a transient one.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition reports a patch that violates the lifecycle.
	ErrInvalidTransition = errors.New("invalid job transition")
)

// FieldIssue names one rejected input field.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned by NormalizeInput when a request is malformed.
// No job exists for a request that fails validation.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Reason))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Issues = append(e.Issues, FieldIssue{Field: field, Reason: reason})
}
