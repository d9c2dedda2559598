package manager

import "time"

// Event names published by the manager.
const (
	EventJobCreated    = "job_created"
	EventJobStarted    = "job_started"
	EventJobProgress   = "job_progress"
	EventJobDone       = "job_done"
	EventJobFailed     = "job_failed"
	EventJobCanceled   = "job_canceled"
	EventJobReconciled = "job_reconciled"
)

// Event represents a job lifecycle event.
// Minimal and stable: name + job ID and optional fields via key/values.
type Event struct {
	Seq    int64          `json:"seq"`
	Time   time.Time      `json:"time"`
	Name   string         `json:"name"`
	JobID  string         `json:"job_id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
