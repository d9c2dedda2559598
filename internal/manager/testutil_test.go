package manager

import (
	"context"
	"testing"
	"time"

	"vistora/internal/credits"
	"vistora/internal/domain"
	"vistora/internal/runner"
	"vistora/internal/store"
)

// gateRunner blocks every job until the test releases it with an error (or nil).
type gateRunner struct {
	started chan string
	release chan error
}

func newGateRunner() *gateRunner {
	return &gateRunner{started: make(chan string, 16), release: make(chan error, 16)}
}

func (g *gateRunner) Name() string    { return runner.NameSimulated }
func (g *gateRunner) Available() bool { return true }

func (g *gateRunner) Execute(ctx context.Context, p runner.Params, onProgress func(runner.Progress)) (runner.Result, error) {
	onProgress(runner.Progress{Stage: "restoring", Percent: 0.5})
	g.started <- p.JobID
	select {
	case err := <-g.release:
		if err != nil {
			return runner.Result{}, err
		}
		return runner.Result{Runner: runner.NameSimulated, OutputPath: p.OutputPath}, nil
	case <-ctx.Done():
		return runner.Result{}, &runner.ExecutionError{Stage: "restoring", Detail: "interrupted", Err: ctx.Err()}
	}
}

// staticSelector always hands out the same runner.
type staticSelector struct{ r runner.Runner }

func (s staticSelector) Select(name string) (runner.Runner, error) {
	if _, err := runner.Normalize(name); err != nil {
		return nil, err
	}
	return runner.Guard(s.r), nil
}

func (s staticSelector) Availability() map[string]bool {
	return map[string]bool{runner.NameSimulated: true, runner.NameExternal: false}
}

type harness struct {
	m      *Manager
	store  *store.Memory
	ledger *credits.Ledger
	bus    *EventBus
}

func newHarness(t *testing.T, r runner.Runner, mutate func(*ManagerConfig)) *harness {
	t.Helper()
	st := store.NewMemory()
	h := &harness{
		store:  st,
		ledger: credits.New(st, credits.WithDefaultBalance(100)),
		bus:    NewEventBus(0),
	}
	cfg := ManagerConfig{
		Jobs:         st,
		Profiles:     st,
		Ledger:       h.ledger,
		Runners:      staticSelector{r: r},
		Publisher:    h.bus,
		OutputDir:    t.TempDir(),
		DrainTimeout: 2 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	h.m = m
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.m.Stop(ctx)
	})
}

func (h *harness) balance(t *testing.T, user string) int {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), user)
	if err != nil {
		t.Fatalf("Balance(%s): %v", user, err)
	}
	return b
}

func (h *harness) create(t *testing.T, user string, credits int) domain.Job {
	t.Helper()
	job, err := h.m.Create(context.Background(), CreateRequest{InputPath: "/videos/in.mp4", UserID: user, EstimatedCredits: &credits})
	if err != nil {
		t.Fatalf("Create(%s, %d): %v", user, credits, err)
	}
	return job
}

// waitStatus polls until the job reaches want or fails the test after 5s.
func waitStatus(t *testing.T, m *Manager, id string, want domain.JobStatus) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := m.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if job.Status == want {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s status=%s stage=%s, want %s", id, job.Status, job.Stage, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitStarted(t *testing.T, g *gateRunner) string {
	t.Helper()
	select {
	case id := <-g.started:
		return id
	case <-time.After(5 * time.Second):
		t.Fatalf("runner was never started")
		return ""
	}
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

