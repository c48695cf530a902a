package jobs

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Summary is a flattened, display-ready view of a job.
type Summary struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Topic        string     `json:"topic"`
	Tone         Tone       `json:"tone"`
	Visibility   Visibility `json:"visibility"`
	Title        string     `json:"title,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CreatedAgo   string     `json:"createdAgo"`
	DurationSec  *float64   `json:"duration,omitempty"`
	PublishedURL string     `json:"publishedUrl,omitempty"`
	SkipReason   string     `json:"publishSkipReason,omitempty"`
	FailedStage  string     `json:"failedStage,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Summarize projects a job for presentation relative to now.
func Summarize(job Job, now time.Time) Summary {
	summary := Summary{
		ID:         job.ID,
		Status:     job.Status,
		Topic:      job.Input.Topic,
		Tone:       job.Input.Tone,
		Visibility: job.Input.Visibility,
		CreatedAt:  job.CreatedAt,
		CreatedAgo: humanize.RelTime(job.CreatedAt, now, "ago", "from now"),
	}
	if job.Result != nil {
		duration := job.Result.DurationSec
		summary.DurationSec = &duration
		summary.Title = job.Result.Title
		summary.PublishedURL = job.Result.PublishedURL
		summary.SkipReason = job.Result.PublishSkipReason
	}
	if job.Failure != nil {
		summary.Error = job.Failure.Message
		summary.FailedStage = job.Failure.Stage
	}
	return summary
}

// NewestFirst returns a reversed copy of a creation-ordered list, the order
// job listings are shown in.
func NewestFirst(list []Job) []Job {
	out := make([]Job, len(list))
	for i, job := range list {
		out[len(list)-1-i] = job
	}
	return out
}

// SummarizeAll projects a list, preserving order.
func SummarizeAll(list []Job, now time.Time) []Summary {
	out := make([]Summary, 0, len(list))
	for _, job := range list {
		out = append(out, Summarize(job, now))
	}
	return out
}
