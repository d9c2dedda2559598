package manager

import (
	"context"
	"fmt"
	"math"

	"vistora/internal/domain"
)

// Cancel moves a queued job to canceled and settles its reservation with a
// partial refund. Jobs already picked up by the worker cannot be canceled.
func (m *Manager) Cancel(ctx context.Context, id string) (domain.Job, error) {
	m.mu.Lock()
	job, ok, err := m.cfg.Jobs.GetJob(ctx, id)
	if err != nil {
		m.mu.Unlock()
		return domain.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	if !ok {
		m.mu.Unlock()
		return domain.Job{}, errNotFound("job", id)
	}
	if !canTransition(job.Status, domain.JobStatusCanceled) {
		m.mu.Unlock()
		return domain.Job{}, errTransition(id, job.Status, domain.JobStatusCanceled)
	}
	now := m.now()
	job.Status = domain.JobStatusCanceled
	job.Stage = "canceled"
	job.UpdatedAt = now
	job.FinishedAt = &now
	if err := m.cfg.Jobs.PutJob(ctx, job); err != nil {
		m.mu.Unlock()
		return domain.Job{}, fmt.Errorf("persist canceled job: %w", err)
	}
	m.removePending(id)
	m.mu.Unlock()

	jobsFinishedTotal.WithLabelValues(string(domain.JobStatusCanceled)).Inc()
	m.log.Info().Str("job_id", id).Str("user_id", job.UserID).Msg("job canceled")
	m.publish(EventJobCanceled, id, map[string]any{"user_id": job.UserID})
	m.settle(context.WithoutCancel(ctx), job)
	return job.Clone(), nil
}

// removePending drops id from the FIFO. Caller holds m.mu.
func (m *Manager) removePending(id string) {
	for i, pid := range m.pending {
		if pid == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	queueDepth.Set(float64(len(m.pending)))
}

// refundFor returns floor(reserved * refund fraction).
func (m *Manager) refundFor(reserved int) int {
	r := int(math.Floor(float64(reserved) * *m.cfg.RefundFraction))
	if r < 0 {
		return 0
	}
	if r > reserved {
		return reserved
	}
	return r
}
