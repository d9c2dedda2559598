package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vistora/internal/domain"
)

// Options understood by the simulated runner.
const (
	OptionStageSleep      = "stage_sleep"
	OptionSimulateFailure = "simulate_failure"
)

// Simulated walks the restoration stages without touching the input. It is the
// fallback when no external binary is installed.
type Simulated struct {
	// Sleep waits between stages; it must return ctx.Err() when ctx ends first.
	Sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewSimulated() *Simulated {
	return &Simulated{Sleep: sleepCtx, now: time.Now}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Simulated) Name() string    { return NameSimulated }
func (s *Simulated) Available() bool { return true }

type stagePoint struct {
	stage   string
	percent float64
}

// stages returns the ordered stage plan for p.
func stages(p Params) []stagePoint {
	out := []stagePoint{
		{"probing", 0.05},
		{"decoding", 0.18},
		{fmt.Sprintf("detecting[%s]", p.Detector), 0.40},
		{fmt.Sprintf("restoring[%s]", p.Restorer), 0.78},
	}
	if p.Refiner != "" {
		out = append(out, stagePoint{fmt.Sprintf("refining[%s]", p.Refiner), 0.90})
	}
	return append(out, stagePoint{"encoding", 0.96}, stagePoint{"muxing", 1.0})
}

func stageDelay(p Params) time.Duration {
	d := 450 * time.Millisecond
	switch p.Tier {
	case domain.TierUltra:
		d = 900 * time.Millisecond
	case domain.TierHigh:
		d = 700 * time.Millisecond
	}
	if secs, ok := floatOption(p.Options, OptionStageSleep); ok {
		if secs < 0 {
			secs = 0
		}
		d = time.Duration(secs * float64(time.Second))
	}
	return d
}

func floatOption(opts map[string]any, key string) (float64, bool) {
	v, ok := opts[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (s *Simulated) Execute(ctx context.Context, p Params, onProgress func(Progress)) (Result, error) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	now := s.now
	if now == nil {
		now = time.Now
	}
	failAt, _ := p.Options[OptionSimulateFailure].(string)
	failAt = strings.TrimSpace(failAt)
	delay := stageDelay(p)
	start := now()

	for _, st := range stages(p) {
		if err := sleep(ctx, delay); err != nil {
			return Result{}, &ExecutionError{Stage: st.stage, Detail: "interrupted", Err: err}
		}
		if failAt != "" && strings.HasPrefix(st.stage, failAt) {
			return Result{}, &ExecutionError{Stage: st.stage, Detail: "simulated failure at " + st.stage}
		}
		onProgress(Progress{Stage: st.stage, Percent: st.percent, Elapsed: now().Sub(start)})
	}
	return Result{Runner: NameSimulated, OutputPath: p.OutputPath, Elapsed: now().Sub(start)}, nil
}
