package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vistora/internal/credits"
	"vistora/internal/manager"
	"vistora/internal/runner"
	"vistora/internal/store"
	"vistora/pkg/types"
)

type fixture struct {
	h      http.Handler
	m      *manager.Manager
	ledger *credits.Ledger
	store  *store.Memory
	bus    *manager.EventBus
}

// newFixture wires a real manager over the in-memory store. The simulated
// runner does not sleep, so started managers finish jobs almost immediately.
func newFixture(t *testing.T, start bool, mutate func(*Deps)) *fixture {
	t.Helper()
	st := store.NewMemory()
	led := credits.New(st, credits.WithDefaultBalance(100))
	bus := manager.NewEventBus(0)
	sim := runner.NewSimulated()
	sim.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	sel := runner.NewSelector(sim, nil)
	m, err := manager.NewWithConfig(manager.ManagerConfig{
		Jobs:      st,
		Profiles:  st,
		Ledger:    led,
		Runners:   sel,
		Publisher: bus,
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if start {
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.Stop(ctx)
		})
	}
	d := Deps{
		Jobs:     m,
		Credits:  led,
		Profiles: st,
		Events:   bus,
		Capabilities: func(context.Context) types.Capabilities {
			return types.Capabilities{Devices: []string{"cpu"}, Runners: runner.Names(), Available: sel.Availability()}
		},
	}
	if mutate != nil {
		mutate(&d)
	}
	return &fixture{h: NewMux(d), m: m, ledger: led, store: st, bus: bus}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status=%d want %d body=%s", w.Code, want, w.Body.String())
	}
}
