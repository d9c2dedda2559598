package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"vistora/internal/credits"
	"vistora/internal/manager"
	"vistora/internal/runner"
	"vistora/internal/store"
	"vistora/pkg/types"
)

func newService(t *testing.T) (*Service, *credits.Ledger) {
	t.Helper()
	st := store.NewMemory()
	led := credits.New(st, credits.WithDefaultBalance(10))
	m, err := manager.NewWithConfig(manager.ManagerConfig{
		Jobs:      st,
		Profiles:  st,
		Ledger:    led,
		Runners:   runner.NewSelector(runner.NewSimulated(), nil),
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	return New(led, m, zerolog.Nop()), led
}

func TestPingAndUnsupported(t *testing.T) {
	s, _ := newService(t)
	resp := s.Handle(context.Background(), types.TgWebhookRequest{Event: "ping"})
	if !resp.OK || resp.Event != "ping" || resp.Message != "pong" {
		t.Fatalf("ping=%+v", resp)
	}
	before := testutil.ToFloat64(eventsTotal.WithLabelValues("other", "false"))
	resp = s.Handle(context.Background(), types.TgWebhookRequest{Event: "dance", UserID: "tg:1"})
	if resp.OK || resp.Event != "dance" || resp.Error != "unsupported_event" {
		t.Fatalf("unsupported=%+v", resp)
	}
	if got := testutil.ToFloat64(eventsTotal.WithLabelValues("other", "false")); got != before+1 {
		t.Fatalf("other events counter=%v want %v", got, before+1)
	}
}

func TestBalanceAndTopup(t *testing.T) {
	s, led := newService(t)
	ctx := context.Background()
	resp := s.Handle(ctx, types.TgWebhookRequest{Event: "balance", UserID: "tg:7"})
	if !resp.OK || resp.Balance == nil || *resp.Balance != 10 {
		t.Fatalf("balance=%+v", resp)
	}

	resp = s.Handle(ctx, types.TgWebhookRequest{Event: "topup", UserID: "tg:7", Payload: map[string]any{"amount": float64(15)}})
	if !resp.OK || *resp.Balance != 25 || resp.TransactionID == "" {
		t.Fatalf("topup=%+v", resp)
	}
	txs, _ := led.Transactions(ctx, "tg:7")
	last := txs[len(txs)-1]
	if last.ID != resp.TransactionID || last.Reason != DefaultTopupReason {
		t.Fatalf("entry=%+v resp=%+v", last, resp)
	}

	resp = s.Handle(ctx, types.TgWebhookRequest{Event: "topup", UserID: "tg:7", Payload: map[string]any{"amount": "5", "reason": "referral"}})
	if !resp.OK || *resp.Balance != 30 {
		t.Fatalf("string amount topup=%+v", resp)
	}

	for _, payload := range []map[string]any{{}, {"amount": float64(0)}, {"amount": 2.5}, {"amount": "lots"}, {"amount": true}} {
		resp = s.Handle(ctx, types.TgWebhookRequest{Event: "topup", UserID: "tg:7", Payload: payload})
		if resp.OK || resp.Error == "" {
			t.Fatalf("payload %v accepted: %+v", payload, resp)
		}
	}
	if b, _ := led.Balance(ctx, "tg:7"); b != 30 {
		t.Fatalf("balance=%d after rejected topups", b)
	}
}

func TestUserRequired(t *testing.T) {
	s, _ := newService(t)
	for _, ev := range []string{"balance", "topup", "create_job", "job_status"} {
		resp := s.Handle(context.Background(), types.TgWebhookRequest{Event: ev})
		if resp.OK || resp.Error != "user_id is required" {
			t.Fatalf("%s without user: %+v", ev, resp)
		}
	}
}

func TestCreateJobAndStatus(t *testing.T) {
	s, led := newService(t)
	ctx := context.Background()
	resp := s.Handle(ctx, types.TgWebhookRequest{Event: "create_job", UserID: "tg:9", Payload: map[string]any{
		"input_path":        "/videos/clip.mp4",
		"quality_tier":      "balanced",
		"estimated_credits": float64(4),
		"user_id":           "someone-else",
	}})
	if !resp.OK || resp.Job == nil {
		t.Fatalf("create_job=%+v", resp)
	}
	if resp.Job.UserID != "tg:9" || resp.Job.Status != "queued" || resp.Job.CreditsReserved != 4 {
		t.Fatalf("job=%+v", resp.Job)
	}
	if b, _ := led.Balance(ctx, "tg:9"); b != 6 {
		t.Fatalf("balance=%d want 6", b)
	}

	st := s.Handle(ctx, types.TgWebhookRequest{Event: "job_status", UserID: "tg:9", Payload: map[string]any{"job_id": resp.Job.ID}})
	if !st.OK || st.Job.ID != resp.Job.ID || !strings.HasPrefix(st.Message, "queued") {
		t.Fatalf("job_status=%+v", st)
	}
	other := s.Handle(ctx, types.TgWebhookRequest{Event: "job_status", UserID: "tg:1", Payload: map[string]any{"job_id": resp.Job.ID}})
	if other.OK || !strings.Contains(other.Error, "not found") {
		t.Fatalf("foreign job_status=%+v", other)
	}
	missing := s.Handle(ctx, types.TgWebhookRequest{Event: "job_status", UserID: "tg:9", Payload: map[string]any{}})
	if missing.OK || missing.Error != "job_id is required" {
		t.Fatalf("missing id=%+v", missing)
	}

	poor := s.Handle(ctx, types.TgWebhookRequest{Event: "create_job", UserID: "tg:9", Payload: map[string]any{
		"input_path": "/videos/long.mp4", "estimated_credits": float64(50),
	}})
	if poor.OK || !strings.Contains(poor.Error, "insufficient credits") {
		t.Fatalf("overdraw=%+v", poor)
	}
	bad := s.Handle(ctx, types.TgWebhookRequest{Event: "create_job", UserID: "tg:9", Payload: map[string]any{"input_path": 42}})
	if bad.OK || !strings.Contains(bad.Error, "invalid create_job payload") {
		t.Fatalf("bad payload=%+v", bad)
	}
}

func TestJobsNotConfigured(t *testing.T) {
	st := store.NewMemory()
	s := New(credits.New(st), nil, zerolog.Nop())
	resp := s.Handle(context.Background(), types.TgWebhookRequest{Event: "create_job", UserID: "tg:1", Payload: map[string]any{"input_path": "/a.mp4"}})
	if resp.OK || resp.Error != "jobs not configured" {
		t.Fatalf("resp=%+v", resp)
	}
}
