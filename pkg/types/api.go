// Package types holds the JSON payloads of the vistora HTTP API. They are
// shared by the server, the CLI client and the generated API docs.
package types

import "time"

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: input_path is required
	Error string `json:"error" example:"input_path is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// CreateJobRequest is the body of POST /api/v1/jobs. Omitted fields are filled
// from the named profile, then from server defaults.
type CreateJobRequest struct {
	// Path of the source video on the server host.
	// example: /videos/clip.mp4
	InputPath string `json:"input_path" example:"/videos/clip.mp4"`
	// Destination file or directory; resolved at dequeue when empty.
	OutputPath string `json:"output_path,omitempty"`
	// Account charged for the job.
	// example: u1
	UserID string `json:"user_id,omitempty" example:"u1"`
	// Saved profile whose settings pre-fill the request.
	ProfileName string `json:"profile_name,omitempty"`
	// auto, simulated (dry-run) or external (lada-cli).
	// example: auto
	Runner string `json:"runner,omitempty" example:"auto"`
	// balanced, high or ultra.
	// example: high
	QualityTier string `json:"quality_tier,omitempty" example:"high"`
	// Model overrides; each must exist in the catalog with the matching role.
	DetectorModel string `json:"detector_model,omitempty"`
	RestorerModel string `json:"restorer_model,omitempty"`
	// Empty string disables the tier's refiner; omitted keeps it.
	RefinerModel *string `json:"refiner_model,omitempty"`
	// Duration used for pricing when estimated_credits is omitted.
	// example: 240
	DurationHintSeconds *int `json:"duration_hint_seconds,omitempty" example:"240"`
	// Explicit credit cost; overrides pricing.
	EstimatedCredits *int `json:"estimated_credits,omitempty"`
	// Runner options (strings, numbers, booleans).
	Options map[string]any `json:"options,omitempty"`
}

// Job is the public view of a job record.
type Job struct {
	ID                  string         `json:"id" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	UserID              string         `json:"user_id" example:"u1"`
	InputPath           string         `json:"input_path"`
	OutputPath          string         `json:"output_path,omitempty"`
	ProfileName         string         `json:"profile_name,omitempty"`
	Runner              string         `json:"runner" example:"auto"`
	QualityTier         string         `json:"quality_tier" example:"ultra"`
	DetectorModel       string         `json:"detector_model"`
	RestorerModel       string         `json:"restorer_model"`
	RefinerModel        string         `json:"refiner_model,omitempty"`
	DurationHintSeconds int            `json:"duration_hint_seconds,omitempty"`
	Options             map[string]any `json:"options,omitempty"`
	// queued, running, done, failed or canceled.
	Status          string     `json:"status" example:"running"`
	Stage           string     `json:"stage" example:"restoring[vrt-large-candidate]"`
	Progress        float64    `json:"progress" example:"0.42"`
	CreditsReserved int        `json:"credits_reserved" example:"8"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// JobList wraps GET /api/v1/jobs, newest update first.
type JobList struct {
	Jobs []Job `json:"jobs"`
}

// Balance is a user's spendable credits.
type Balance struct {
	UserID  string `json:"user_id" example:"u1"`
	Balance int    `json:"balance" example:"70"`
}

// TopupRequest is the body of POST /api/v1/credits/{user}/topup.
type TopupRequest struct {
	// example: 100
	Amount int `json:"amount" example:"100"`
	// example: manual_topup
	Reason string `json:"reason,omitempty" example:"manual_topup"`
}

// TopupResponse reports the balance after a topup.
type TopupResponse struct {
	OK      bool    `json:"ok"`
	Balance Balance `json:"balance"`
}

// Transaction is one ledger entry.
type Transaction struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// opening, topup, reserve, commit, refund or fee.
	Kind      string    `json:"kind" example:"reserve"`
	Amount    int       `json:"amount" example:"-8"`
	Consumed  int       `json:"consumed,omitempty"`
	Reason    string    `json:"reason" example:"job_reserve"`
	RefID     string    `json:"ref_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionList wraps GET /api/v1/credits/{user}/transactions.
type TransactionList struct {
	Transactions []Transaction `json:"transactions"`
}

// Profile is a named settings document.
type Profile struct {
	Name     string         `json:"name" example:"fast"`
	Settings map[string]any `json:"settings"`
}

// ProfileList wraps GET /api/v1/profiles.
type ProfileList struct {
	Profiles []Profile `json:"profiles"`
}

// ProfileUpdate is the body of PUT /api/v1/profiles/{name}.
type ProfileUpdate struct {
	Settings map[string]any `json:"settings"`
}

// Capabilities describes what this host can run.
type Capabilities struct {
	// example: ["cpu","cuda:0 (NVIDIA GeForce RTX 4090)"]
	Devices      []string        `json:"devices"`
	Runners      []string        `json:"runners"`
	Available    map[string]bool `json:"runner_available"`
	QualityTiers []string        `json:"quality_tiers"`
	Defaults     map[string]any  `json:"defaults"`
}

// ModelCard describes one catalog model.
type ModelCard struct {
	ID        string `json:"id" example:"vrt-large-candidate"`
	Role      string `json:"role" example:"restorer"`
	Family    string `json:"family" example:"VRT"`
	Objective string `json:"objective" example:"quality-first"`
	Maturity  string `json:"maturity" example:"candidate"`
	Notes     string `json:"notes"`
}

// QualityPreset maps a tier to its model triple.
type QualityPreset struct {
	Tier          string `json:"tier" example:"ultra"`
	DetectorModel string `json:"detector_model"`
	RestorerModel string `json:"restorer_model"`
	RefinerModel  string `json:"refiner_model,omitempty"`
	Notes         string `json:"notes"`
}

// Catalog wraps GET /api/v1/models/catalog.
type Catalog struct {
	Cards          []ModelCard     `json:"cards"`
	QualityPresets []QualityPreset `json:"quality_presets"`
}

// Event is one entry of the job event stream.
type Event struct {
	Seq    int64          `json:"seq"`
	Time   time.Time      `json:"time"`
	Name   string         `json:"name" example:"job_progress"`
	JobID  string         `json:"job_id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// EventList wraps GET /api/v1/events. Pass last_seq as ?since= to continue.
type EventList struct {
	Events  []Event `json:"events"`
	LastSeq int64   `json:"last_seq"`
}

// StatusResponse is GET /api/v1/system/status.
type StatusResponse struct {
	Ready         bool            `json:"ready"`
	QueueDepth    int             `json:"queue_depth"`
	Inflight      string          `json:"inflight_job_id,omitempty"`
	Counts        map[string]int  `json:"counts"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runners       map[string]bool `json:"runners,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// TgWebhookRequest is the body of POST /api/v1/tg/webhook.
type TgWebhookRequest struct {
	// ping, balance, topup, create_job or job_status.
	// example: balance
	Event  string         `json:"event" example:"balance"`
	UserID string         `json:"user_id" example:"tg:42"`
	// Event arguments, e.g. {"amount": 50} for topup.
	Payload map[string]any `json:"payload,omitempty"`
}

// TgWebhookResponse always carries ok and the echoed event; the remaining
// fields depend on the event.
type TgWebhookResponse struct {
	OK            bool   `json:"ok"`
	Event         string `json:"event"`
	Message       string `json:"message,omitempty"`
	Balance       *int   `json:"balance,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Job           *Job   `json:"job,omitempty"`
	Error         string `json:"error,omitempty"`
}
