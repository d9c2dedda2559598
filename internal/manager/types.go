package manager

import "vistora/internal/domain"

// CreateRequest is the input to Create. Pointer fields distinguish "unset"
// from an explicit value so profiles only fill what the caller left out.
type CreateRequest struct {
	InputPath           string         `json:"input_path"`
	OutputPath          string         `json:"output_path,omitempty"`
	UserID              string         `json:"user_id,omitempty"`
	ProfileName         string         `json:"profile_name,omitempty"`
	Runner              string         `json:"runner,omitempty"`
	QualityTier         string         `json:"quality_tier,omitempty"`
	DetectorModel       string         `json:"detector_model,omitempty"`
	RestorerModel       string         `json:"restorer_model,omitempty"`
	RefinerModel        *string        `json:"refiner_model,omitempty"`
	DurationHintSeconds *int           `json:"duration_hint_seconds,omitempty"`
	EstimatedCredits    *int           `json:"estimated_credits,omitempty"`
	Options             map[string]any `json:"options,omitempty"`
}

// transitions is the complete lifecycle table. Terminal states have no exits.
var transitions = map[domain.JobStatus][]domain.JobStatus{
	domain.JobStatusQueued:  {domain.JobStatusRunning, domain.JobStatusCanceled},
	domain.JobStatusRunning: {domain.JobStatusDone, domain.JobStatusFailed},
}

func canTransition(from, to domain.JobStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
