package manager

import "context"

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	StoreOK       bool   `json:"store_ok"`
	ExternalFound bool   `json:"external_runner_found"`
	DefaultRunner string `json:"default_runner"`
	Error         string `json:"error,omitempty"`
}

// SanityCheck validates that the store answers and reports whether the external
// restoration binary is installed. It does not mutate state.
func (m *Manager) SanityCheck(ctx context.Context) SanityReport {
	r := SanityReport{DefaultRunner: m.cfg.DefaultRunner}
	if _, err := m.cfg.Jobs.ListJobs(ctx); err != nil {
		r.Error = "store: " + err.Error()
	} else {
		r.StoreOK = true
	}
	if a, ok := m.cfg.Runners.(availability); ok {
		r.ExternalFound = a.Availability()["external"]
	}
	return r
}
