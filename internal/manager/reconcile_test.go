package manager

import (
	"context"
	"testing"
	"time"

	"vistora/internal/domain"
)

func putRunning(t *testing.T, h *harness, id, user string, credits int, updated time.Time) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.ledger.Reserve(ctx, user, credits, id); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	job := domain.Job{
		ID: id, UserID: user, InputPath: "/v.mp4", Runner: "simulated",
		QualityTier: domain.TierBalanced, Status: domain.JobStatusRunning, Stage: "restoring",
		CreditsReserved: credits, CreatedAt: updated, UpdatedAt: updated, StartedAt: &updated,
	}
	if err := h.store.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
}

func TestReconcileFailsStaleRunningJobs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, newGateRunner(), func(c *ManagerConfig) {
		c.Now = func() time.Time { return now }
		c.StaleAfter = 15 * time.Minute
	})
	putRunning(t, h, "stale", "u1", 40, now.Add(-time.Hour))
	putRunning(t, h, "fresh", "u1", 10, now.Add(-time.Minute))

	n, err := h.m.Reconcile(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Reconcile = %d, %v; want 1", n, err)
	}
	stale, _ := h.m.Get(context.Background(), "stale")
	if stale.Status != domain.JobStatusFailed || stale.Error != staleReason || stale.FinishedAt == nil {
		t.Fatalf("stale job not failed: %+v", stale)
	}
	fresh, _ := h.m.Get(context.Background(), "fresh")
	if fresh.Status != domain.JobStatusRunning {
		t.Fatalf("fresh job touched: %+v", fresh)
	}
	if got := h.balance(t, "u1"); got != 90 {
		t.Fatalf("balance = %d, want 90", got)
	}

	n, err = h.m.Reconcile(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second Reconcile = %d, %v; want 0", n, err)
	}
	if got := h.balance(t, "u1"); got != 90 {
		t.Fatalf("balance after second sweep = %d, want 90", got)
	}
	var reconciled int
	for _, e := range h.bus.Events() {
		if e.Name == EventJobReconciled {
			reconciled++
		}
	}
	if reconciled != 1 {
		t.Fatalf("reconciled events = %d, want 1", reconciled)
	}
}

func TestReconcileSkipsInflightJob(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, newGateRunner(), func(c *ManagerConfig) { c.Now = func() time.Time { return now } })
	putRunning(t, h, "busy", "u1", 10, now.Add(-time.Hour))
	h.m.mu.Lock()
	h.m.inflight = "busy"
	h.m.mu.Unlock()

	if n, err := h.m.Reconcile(context.Background()); err != nil || n != 0 {
		t.Fatalf("Reconcile = %d, %v; want 0", n, err)
	}
}

func TestStartupSweepRepairsMissedSettlement(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, newGateRunner(), func(c *ManagerConfig) { c.Now = func() time.Time { return now } })
	ctx := context.Background()

	// terminal records written without the matching ledger entries
	putRunning(t, h, "failed-old", "u1", 30, now.Add(-48*time.Hour))
	putRunning(t, h, "canceled-old", "u1", 20, now.Add(-48*time.Hour))
	for id, status := range map[string]domain.JobStatus{"failed-old": domain.JobStatusFailed, "canceled-old": domain.JobStatusCanceled} {
		job, _, _ := h.store.GetJob(ctx, id)
		job.Status = status
		if err := h.store.PutJob(ctx, job); err != nil {
			t.Fatalf("PutJob: %v", err)
		}
	}
	if got := h.balance(t, "u1"); got != 50 {
		t.Fatalf("balance before sweep = %d, want 50", got)
	}

	// periodic sweeps only look at recent terminal jobs
	if _, err := h.m.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := h.balance(t, "u1"); got != 50 {
		t.Fatalf("periodic sweep settled old jobs: balance %d", got)
	}

	h.start(t)
	// failed releases 30, canceled refunds floor(20*0.5)
	if got := h.balance(t, "u1"); got != 90 {
		t.Fatalf("balance after startup sweep = %d, want 90", got)
	}
}
