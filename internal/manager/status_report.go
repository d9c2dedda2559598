package manager

import (
	"context"
	"time"

	"vistora/internal/domain"
)

// StatusReport is a point-in-time view of the manager.
type StatusReport struct {
	Ready         bool            `json:"ready"`
	QueueDepth    int             `json:"queue_depth"`
	Inflight      string          `json:"inflight_job_id,omitempty"`
	Counts        map[string]int  `json:"counts"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runners       map[string]bool `json:"runners,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// availability is implemented by selectors that can report runner readiness.
type availability interface {
	Availability() map[string]bool
}

// Status builds a detailed status response for /api/v1/system/status.
func (m *Manager) Status(ctx context.Context) StatusReport {
	m.mu.Lock()
	resp := StatusReport{
		Ready:      m.started && !m.stopping,
		QueueDepth: len(m.pending),
		Inflight:   m.inflight,
	}
	m.mu.Unlock()
	resp.UptimeSeconds = int64(m.cfg.Now().Sub(m.startTime) / time.Second)

	resp.Counts = map[string]int{}
	for _, s := range []domain.JobStatus{domain.JobStatusQueued, domain.JobStatusRunning, domain.JobStatusDone, domain.JobStatusFailed, domain.JobStatusCanceled} {
		resp.Counts[string(s)] = 0
	}
	jobs, err := m.cfg.Jobs.ListJobs(ctx)
	if err != nil {
		resp.Error = err.Error()
	}
	for _, j := range jobs {
		resp.Counts[string(j.Status)]++
	}
	if a, ok := m.cfg.Runners.(availability); ok {
		resp.Runners = a.Availability()
	}
	return resp
}
