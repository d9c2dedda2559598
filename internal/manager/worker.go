package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vistora/internal/common/fsutil"
	"vistora/internal/domain"
	"vistora/internal/runner"
)

// loop is the single worker goroutine.
func (m *Manager) loop() {
	defer close(m.workerDone)
	for {
		job, ok := m.dequeue()
		if ok {
			m.execute(job)
			continue
		}
		select {
		case <-m.stopCh:
			return
		case <-m.wake:
		}
	}
}

// dequeue pops the FIFO head and moves it to running under the manager lock.
// Entries whose job is no longer queued are skipped.
func (m *Manager) dequeue() (domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx := context.Background()
	for !m.stopping && len(m.pending) > 0 {
		id := m.pending[0]
		m.pending = m.pending[1:]
		queueDepth.Set(float64(len(m.pending)))

		job, ok, err := m.cfg.Jobs.GetJob(ctx, id)
		if err != nil {
			m.log.Error().Err(err).Str("job_id", id).Msg("load queued job")
			continue
		}
		if !ok || !canTransition(job.Status, domain.JobStatusRunning) {
			continue
		}
		now := m.now()
		job.Status = domain.JobStatusRunning
		job.Stage = "starting"
		job.Progress = 0.01
		job.StartedAt = &now
		job.UpdatedAt = now
		if job.OutputPath == "" {
			out, err := fsutil.DefaultOutputPath(job.InputPath, m.cfg.OutputDir, now)
			if err != nil {
				m.log.Warn().Err(err).Str("job_id", id).Msg("resolve output path")
			} else {
				job.OutputPath = out
			}
		}
		if err := m.cfg.Jobs.PutJob(ctx, job); err != nil {
			m.log.Error().Err(err).Str("job_id", id).Msg("persist running job")
			continue
		}
		m.inflight = id
		return job, true
	}
	return domain.Job{}, false
}

// execute runs job outside the manager lock and applies the terminal transition.
func (m *Manager) execute(job domain.Job) {
	m.publish(EventJobStarted, job.ID, map[string]any{"runner": job.Runner, "output_path": job.OutputPath})
	m.log.Info().Str("job_id", job.ID).Str("runner", job.Runner).Str("user_id", job.UserID).Msg("job started")

	ctx, span := m.tracer.Start(m.runCtx, "job.execute", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.user_id", job.UserID),
		attribute.String("job.runner", job.Runner),
		attribute.String("job.quality_tier", string(job.QualityTier)),
		attribute.Int("job.credits_reserved", job.CreditsReserved),
	))
	defer span.End()

	start := time.Now()
	runnerName := job.Runner
	res, err := m.run(ctx, job, &runnerName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	status := m.finish(job.ID, runnerName, res, err)
	jobDuration.WithLabelValues(string(status), runnerName).Observe(time.Since(start).Seconds())
}

func (m *Manager) run(ctx context.Context, job domain.Job, runnerName *string) (res runner.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runner panic: %v", r)
		}
	}()
	r, err := m.cfg.Runners.Select(job.Runner)
	if err != nil {
		return runner.Result{}, err
	}
	*runnerName = r.Name()
	params := runner.Params{
		JobID:               job.ID,
		InputPath:           job.InputPath,
		OutputPath:          job.OutputPath,
		Tier:                job.QualityTier,
		Detector:            job.DetectorModel,
		Restorer:            job.RestorerModel,
		Refiner:             job.RefinerModel,
		DurationHintSeconds: job.DurationHintSeconds,
		Options:             job.Options,
	}
	return r.Execute(ctx, params, func(p runner.Progress) { m.onProgress(job.ID, p) })
}

// onProgress persists a runner report. Progress is clamped to [0,1] and never
// decreases; reports for a job that is no longer running are dropped.
func (m *Manager) onProgress(id string, p runner.Progress) {
	m.mu.Lock()
	ctx := context.Background()
	job, ok, err := m.cfg.Jobs.GetJob(ctx, id)
	if err != nil || !ok || job.Status != domain.JobStatusRunning {
		m.mu.Unlock()
		return
	}
	pct := p.Percent
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	if pct < job.Progress {
		pct = job.Progress
	}
	if p.Stage != "" {
		job.Stage = p.Stage
	}
	job.Progress = pct
	job.UpdatedAt = m.now()
	err = m.cfg.Jobs.PutJob(ctx, job)
	m.mu.Unlock()
	if err != nil {
		m.log.Warn().Err(err).Str("job_id", id).Msg("persist progress")
		return
	}
	fields := map[string]any{"stage": job.Stage, "progress": pct}
	if p.FPS > 0 {
		fields["fps"] = p.FPS
	}
	m.publish(EventJobProgress, id, fields)
}

// finish applies the terminal transition for the in-flight job and settles.
// When the terminal record cannot be written the job stays running and the
// reconciler settles it once it is stale.
func (m *Manager) finish(id, runnerName string, res runner.Result, runErr error) domain.JobStatus {
	ctx := context.Background()
	m.mu.Lock()
	m.inflight = ""
	job, ok, err := m.cfg.Jobs.GetJob(ctx, id)
	if err != nil || !ok {
		m.mu.Unlock()
		m.log.Error().Err(err).Str("job_id", id).Msg("load finished job")
		return domain.JobStatusRunning
	}
	to := domain.JobStatusDone
	if runErr != nil {
		to = domain.JobStatusFailed
	}
	if !canTransition(job.Status, to) {
		// reconciled concurrently; the reconciler already settled it
		m.mu.Unlock()
		m.log.Warn().Str("job_id", id).Str("status", string(job.Status)).Msg("dropping result for job no longer running")
		return job.Status
	}
	now := m.now()
	job.Status = to
	job.UpdatedAt = now
	job.FinishedAt = &now
	if runErr != nil {
		job.Stage = "failed"
		job.Error = failureDetail(runErr)
	} else {
		job.Stage = "done"
		job.Progress = 1
		if res.OutputPath != "" {
			job.OutputPath = res.OutputPath
		}
	}
	if err := m.cfg.Jobs.PutJob(ctx, job); err != nil {
		m.mu.Unlock()
		m.log.Error().Err(err).Str("job_id", id).Msg("persist terminal job")
		return domain.JobStatusRunning
	}
	m.mu.Unlock()

	jobsFinishedTotal.WithLabelValues(string(to)).Inc()
	if runErr != nil {
		m.log.Warn().Err(runErr).Str("job_id", id).Str("runner", runnerName).Msg("job failed")
		m.publish(EventJobFailed, id, map[string]any{"error": job.Error, "runner": runnerName})
	} else {
		m.log.Info().Str("job_id", id).Str("runner", runnerName).Str("output_path", job.OutputPath).Msg("job done")
		m.publish(EventJobDone, id, map[string]any{"output_path": job.OutputPath, "runner": runnerName})
	}
	m.settle(ctx, job)
	return to
}

func failureDetail(err error) string {
	var ee *runner.ExecutionError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "interrupted: " + err.Error()
	case errors.As(err, &ee):
		return ee.Error()
	default:
		return err.Error()
	}
}
