package jobs

import "time"

// EventType distinguishes lifecycle notifications.
type EventType string

const (
	EventStatusChanged EventType = "status_changed"
	EventStageStarted  EventType = "stage_started"
	EventStageFinished EventType = "stage_finished"
)

// Event describes one observable change in a job's life.
type Event struct {
	Type    EventType `json:"type"`
	JobID   string    `json:"jobId"`
	Status  Status    `json:"status"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	Topic   string    `json:"topic,omitempty"`
	Result  *Result   `json:"result,omitempty"`
	At      time.Time `json:"at"`
}

// StatusEvent builds the event emitted after a status change.
func StatusEvent(job Job) Event {
	event := Event{
		Type:   EventStatusChanged,
		JobID:  job.ID,
		Status: job.Status,
		Topic:  job.Input.Topic,
		At:     job.UpdatedAt,
	}
	if job.Result != nil {
		r := *job.Result
		event.Result = &r
	}
	if job.Failure != nil {
		event.Stage = job.Failure.Stage
		event.Message = job.Failure.Message
	}
	return event
}

// Terminal reports whether the event records a terminal status change.
func (e Event) Terminal() bool {
	return e.Type == EventStatusChanged && e.Status.IsTerminal()
}
