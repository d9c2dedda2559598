package manager

import (
	"context"
	"errors"

	"vistora/internal/domain"
)

// settle resolves the job's reservation according to its terminal status:
// done commits, failed releases in full, canceled releases partially.
// A reservation that was already settled is not an error. It returns false
// when the ledger write failed and a later sweep must retry.
func (m *Manager) settle(ctx context.Context, job domain.Job) bool {
	if job.CreditsReserved <= 0 {
		return true
	}
	var err error
	switch job.Status {
	case domain.JobStatusDone:
		_, err = m.cfg.Ledger.Commit(ctx, job.UserID, job.CreditsReserved, job.ID)
		if err == nil {
			creditsSettledTotal.WithLabelValues(string(domain.EntryCommit)).Add(float64(job.CreditsReserved))
		}
	case domain.JobStatusFailed:
		_, err = m.cfg.Ledger.Release(ctx, job.UserID, job.CreditsReserved, job.ID)
		if err == nil {
			creditsSettledTotal.WithLabelValues(string(domain.EntryRefund)).Add(float64(job.CreditsReserved))
		}
	case domain.JobStatusCanceled:
		refund := m.refundFor(job.CreditsReserved)
		_, err = m.cfg.Ledger.ReleasePartial(ctx, job.UserID, job.CreditsReserved, refund, job.ID)
		if err == nil {
			creditsSettledTotal.WithLabelValues(string(domain.EntryRefund)).Add(float64(refund))
			creditsSettledTotal.WithLabelValues(string(domain.EntryFee)).Add(float64(job.CreditsReserved - refund))
		}
	default:
		return true
	}
	switch {
	case err == nil:
		m.log.Debug().Str("job_id", job.ID).Str("user_id", job.UserID).Str("status", string(job.Status)).Int("credits", job.CreditsReserved).Msg("reservation settled")
		return true
	case errors.Is(err, domain.ErrAlreadySettled):
		return true
	case errors.Is(err, domain.ErrNotFound):
		m.log.Warn().Str("job_id", job.ID).Str("user_id", job.UserID).Msg("no reservation to settle")
		return true
	default:
		m.log.Error().Err(err).Str("job_id", job.ID).Str("user_id", job.UserID).Str("status", string(job.Status)).Msg("settlement failed")
		return false
	}
}
