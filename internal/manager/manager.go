package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vistora/internal/domain"
)

// Manager coordinates job creation, the FIFO queue and the single worker.
// mu guards the pending queue, the in-flight marker and every status
// transition, so dequeue→running and cancel→canceled are mutually exclusive.
type Manager struct {
	cfg    ManagerConfig
	log    zerolog.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	pending  []string
	inflight string
	started  bool
	stopping bool

	wake       chan struct{}
	stopCh     chan struct{}
	workerDone chan struct{}
	sweepDone  chan struct{}
	runCtx     context.Context
	runCancel  context.CancelFunc
	stopOnce   sync.Once

	startTime time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) (*Manager, error) {
	if cfg.Jobs == nil {
		return nil, errors.New("manager: job store is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("manager: ledger is required")
	}
	if cfg.Runners == nil {
		return nil, errors.New("manager: runner selector is required")
	}
	cfg = cfg.withDefaults()
	if f := *cfg.RefundFraction; f < 0 || f > 1 {
		return nil, fmt.Errorf("manager: refund fraction %v outside [0,1]", f)
	}
	if !cfg.Catalog.HasTier(cfg.DefaultTier) {
		return nil, fmt.Errorf("manager: default tier %q not in catalog", cfg.DefaultTier)
	}
	runCtx, runCancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		log:        cfg.Logger.With().Str("component", "manager").Logger(),
		tracer:     otel.Tracer("vistora/internal/manager"),
		wake:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		workerDone: make(chan struct{}),
		sweepDone:  make(chan struct{}),
		runCtx:     runCtx,
		runCancel:  runCancel,
		startTime:  cfg.Now(),
	}, nil
}

func (m *Manager) now() time.Time {
	return m.cfg.Now().UTC().Truncate(time.Microsecond)
}

func (m *Manager) publish(name, jobID string, fields map[string]any) {
	m.cfg.Publisher.Publish(Event{Name: name, JobID: jobID, Time: m.now(), Fields: fields})
}

// signal wakes the worker without blocking.
func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Start recovers persisted queued jobs, runs a reconciliation sweep and launches
// the worker and the periodic sweeper.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("manager: already started")
	}
	m.started = true
	m.mu.Unlock()

	if err := m.recoverQueued(ctx); err != nil {
		return fmt.Errorf("recover queued jobs: %w", err)
	}
	if _, err := m.reconcile(ctx, true); err != nil {
		m.log.Error().Err(err).Msg("startup reconciliation failed")
	}

	go m.loop()
	go m.sweeper()
	m.signal()
	m.log.Info().Int("queued", m.QueueDepth()).Msg("job manager started")
	return nil
}

func (m *Manager) recoverQueued(ctx context.Context) error {
	jobs, err := m.cfg.Jobs.ListJobs(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })
	m.mu.Lock()
	defer m.mu.Unlock()
	// Jobs created before Start are already pending.
	seen := make(map[string]bool, len(m.pending))
	for _, id := range m.pending {
		seen[id] = true
	}
	for _, j := range jobs {
		if j.Status == domain.JobStatusQueued && !seen[j.ID] {
			m.pending = append(m.pending, j.ID)
			seen[j.ID] = true
		}
	}
	queueDepth.Set(float64(len(m.pending)))
	return nil
}

// Stop stops dequeuing, waits up to the drain timeout for the in-flight run and
// then cancels it. A canceled run resolves as failed with a full release.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.stopping = true
	m.mu.Unlock()
	m.stopOnce.Do(func() { close(m.stopCh) })
	if !started {
		m.runCancel()
		return nil
	}

	drain := time.NewTimer(m.cfg.DrainTimeout)
	defer drain.Stop()
	select {
	case <-m.workerDone:
	case <-drain.C:
		m.log.Warn().Str("job_id", m.Inflight()).Msg("drain timeout; canceling in-flight job")
		m.runCancel()
	case <-ctx.Done():
		m.runCancel()
	}
	select {
	case <-m.workerDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.runCancel()
	<-m.sweepDone
	m.log.Info().Msg("job manager stopped")
	return nil
}

// Ready reports whether the worker is running and accepting dequeues.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.stopping
}

// QueueDepth is the number of jobs waiting for the worker.
func (m *Manager) QueueDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Inflight returns the id of the job the worker is executing, or "".
func (m *Manager) Inflight() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight
}

// Get returns the job or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (domain.Job, error) {
	job, ok, err := m.cfg.Jobs.GetJob(ctx, id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	if !ok {
		return domain.Job{}, errNotFound("job", id)
	}
	return job, nil
}

// List returns a snapshot of every job in creation order.
func (m *Manager) List(ctx context.Context) ([]domain.Job, error) {
	jobs, err := m.cfg.Jobs.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return jobs, nil
}
