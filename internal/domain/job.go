package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusDone     JobStatus = "done"
	JobStatusFailed   JobStatus = "failed"
	JobStatusCanceled JobStatus = "canceled"
)

// Terminal reports whether no further mutation is allowed in this state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusDone, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusDone, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// QualityTier names a quality/cost preset.
type QualityTier string

const (
	TierBalanced QualityTier = "balanced"
	TierHigh     QualityTier = "high"
	TierUltra    QualityTier = "ultra"
)

// Job is the persisted record of one restoration request.
type Job struct {
	ID                  string         `json:"id"`
	UserID              string         `json:"user_id"`
	InputPath           string         `json:"input_path"`
	OutputPath          string         `json:"output_path,omitempty"`
	ProfileName         string         `json:"profile_name,omitempty"`
	Runner              string         `json:"runner"`
	QualityTier         QualityTier    `json:"quality_tier"`
	DetectorModel       string         `json:"detector_model"`
	RestorerModel       string         `json:"restorer_model"`
	RefinerModel        string         `json:"refiner_model,omitempty"`
	DurationHintSeconds int            `json:"duration_hint_seconds,omitempty"`
	Options             map[string]any `json:"options,omitempty"`
	Status              JobStatus      `json:"status"`
	Stage               string         `json:"stage"`
	Progress            float64        `json:"progress"`
	CreditsReserved     int            `json:"credits_reserved"`
	Error               string         `json:"error,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	StartedAt           *time.Time     `json:"started_at,omitempty"`
	FinishedAt          *time.Time     `json:"finished_at,omitempty"`
}

// Clone returns a deep copy so callers never share the options map or time pointers.
func (j Job) Clone() Job {
	out := j
	out.Options = CloneValues(j.Options)
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
