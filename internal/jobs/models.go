package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

var allStatuses = []Status{StatusQueued, StatusRunning, StatusSuccess, StatusFailed}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether the status is success or failed.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Tone selects the voice and pacing of the script.
type Tone string

const (
	ToneInformative Tone = "informative"
	TonePlayful     Tone = "playful"
	ToneDramatic    Tone = "dramatic"
)

// Visibility is the privacy level requested for the published video.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Input is a validated request. Construct it with NormalizeInput.
type Input struct {
	Topic             string     `json:"topic"`
	Tone              Tone       `json:"tone"`
	TargetDurationSec int        `json:"targetDurationSec"`
	Visibility        Visibility `json:"visibility"`
}

// Result describes the artifacts produced by a successful job.
type Result struct {
	Title             string  `json:"title,omitempty"`
	VideoPath         string  `json:"videoPath"`
	DurationSec       float64 `json:"durationSec"`
	PublishedURL      string  `json:"publishedUrl,omitempty"`
	PublishSkipReason string  `json:"publishSkipReason,omitempty"`
}

// Published reports whether the video reached the external platform.
func (r Result) Published() bool {
	return strings.TrimSpace(r.PublishedURL) != ""
}

// Failure describes why a job failed and, when known, at which stage.
type Failure struct {
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// Job is a single end-to-end request to produce a video.
type Job struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Input      Input      `json:"input"`
	Result     *Result    `json:"result,omitempty"`
	Failure    *Failure   `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Patch lists the fields an Update merges into an existing job. Nil fields
// are left untouched.
type Patch struct {
	Status  *Status
	Result  *Result
	Failure *Failure
}

// MarkRunning builds the patch that starts a job.
func MarkRunning() Patch {
	status := StatusRunning
	return Patch{Status: &status}
}

// MarkSucceeded builds the terminal success patch.
func MarkSucceeded(result Result) Patch {
	status := StatusSuccess
	return Patch{Status: &status, Result: &result}
}

// MarkFailed builds the terminal failure patch.
func MarkFailed(stage, message string) Patch {
	status := StatusFailed
	return Patch{Status: &status, Failure: &Failure{Stage: stage, Message: message}}
}

func (j Job) clone() Job {
	cp := j
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	if j.Failure != nil {
		f := *j.Failure
		cp.Failure = &f
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		cp.FinishedAt = &t
	}
	return cp
}
