package manager

import (
	"context"
	"fmt"
	"time"

	"vistora/internal/domain"
)

const staleReason = "stale: reconciled"

// Reconcile fails running jobs whose last update is older than StaleAfter and
// that this process is not executing, releasing their reservations in full.
// It also retries settlement for recently finished jobs. It returns the number
// of jobs marked failed.
func (m *Manager) Reconcile(ctx context.Context) (int, error) {
	return m.reconcile(ctx, false)
}

func (m *Manager) reconcile(ctx context.Context, full bool) (int, error) {
	jobs, err := m.cfg.Jobs.ListJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list jobs: %w", err)
	}
	now := m.now()
	cutoff := now.Add(-m.cfg.StaleAfter)
	reconciled := 0
	for _, j := range jobs {
		switch {
		case j.Status == domain.JobStatusRunning && j.UpdatedAt.Before(cutoff):
			done, err := m.failStale(ctx, j.ID, cutoff)
			if err != nil {
				return reconciled, err
			}
			if done {
				reconciled++
			}
		case j.Status.Terminal() && (full || j.UpdatedAt.After(cutoff)):
			// a crash between the terminal write and the ledger write leaves
			// the reservation open; settlement is idempotent per job
			m.settle(ctx, j)
		}
	}
	if reconciled > 0 {
		m.log.Warn().Int("count", reconciled).Msg("reconciled stale running jobs")
	}
	return reconciled, nil
}

// failStale re-checks the job under the manager lock before failing it.
func (m *Manager) failStale(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	if id == m.inflight {
		m.mu.Unlock()
		return false, nil
	}
	job, ok, err := m.cfg.Jobs.GetJob(ctx, id)
	if err != nil {
		m.mu.Unlock()
		return false, fmt.Errorf("get job %s: %w", id, err)
	}
	if !ok || job.Status != domain.JobStatusRunning || !job.UpdatedAt.Before(cutoff) {
		m.mu.Unlock()
		return false, nil
	}
	now := m.now()
	job.Status = domain.JobStatusFailed
	job.Stage = "failed"
	job.Error = staleReason
	job.UpdatedAt = now
	job.FinishedAt = &now
	if err := m.cfg.Jobs.PutJob(ctx, job); err != nil {
		m.mu.Unlock()
		return false, fmt.Errorf("persist reconciled job %s: %w", id, err)
	}
	m.mu.Unlock()

	jobsFinishedTotal.WithLabelValues(string(domain.JobStatusFailed)).Inc()
	m.log.Warn().Str("job_id", id).Str("user_id", job.UserID).Msg("stale running job marked failed")
	m.publish(EventJobReconciled, id, map[string]any{"error": staleReason})
	m.settle(ctx, job)
	return true, nil
}

// sweeper runs Reconcile every ReconcileInterval until Stop.
func (m *Manager) sweeper() {
	defer close(m.sweepDone)
	t := time.NewTicker(m.cfg.ReconcileInterval)
	defer t.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-t.C:
			if _, err := m.Reconcile(context.Background()); err != nil {
				m.log.Error().Err(err).Msg("periodic reconciliation failed")
			}
		}
	}
}
