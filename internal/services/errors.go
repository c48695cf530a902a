package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrCanceled      = errors.New("canceled")

	// ErrNoCredentials marks a collaborator that cannot authenticate because
	// nothing is configured. The publish stage treats it as a soft-skip.
	ErrNoCredentials = errors.New("credentials missing")
	// ErrRejected marks an expected, non-retryable refusal by a remote platform.
	ErrRejected = errors.New("rejected by platform")
)

// ErrorKind is a coarse classification derived from the marker an error carries.
type ErrorKind string

const (
	KindExternalTool  ErrorKind = "external_tool"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindTransient     ErrorKind = "transient"
	KindCanceled      ErrorKind = "canceled"
	KindNoCredentials ErrorKind = "no_credentials"
	KindRejected      ErrorKind = "rejected"
	KindUnknown       ErrorKind = "unknown"
)

var markerKinds = []struct {
	marker error
	kind   ErrorKind
}{
	{ErrNoCredentials, KindNoCredentials},
	{ErrRejected, KindRejected},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
	{ErrNotFound, KindNotFound},
	{ErrTimeout, KindTimeout},
	{ErrCanceled, KindCanceled},
	{ErrExternalTool, KindExternalTool},
	{ErrTransient, KindTransient},
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind reports the classification of err based on the first marker it wraps.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, entry := range markerKinds {
		if errors.Is(err, entry.marker) {
			return entry.kind
		}
	}
	return KindUnknown
}

// IsSoftSkip reports whether a publish failure should be downgraded to a skip.
func IsSoftSkip(err error) bool {
	return errors.Is(err, ErrNoCredentials) || errors.Is(err, ErrRejected)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
