package serial

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vistora/internal/catalog"
	"vistora/internal/domain"
	"vistora/internal/runner"
)

type fixedProbe VideoInfo

func (f fixedProbe) Probe(context.Context, string) VideoInfo { return VideoInfo(f) }

func newTestRunner(info VideoInfo) *Runner {
	sim := runner.NewSimulated()
	sim.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return &Runner{
		Catalog: catalog.Default(),
		Runners: runner.NewSelector(sim, nil),
		Prober:  fixedProbe(info),
		Log:     zerolog.Nop(),
		Now:     func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
	}
}

func writeInput(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return p
}

func TestRunCopiesInputForSimulatedRunner(t *testing.T) {
	in := writeInput(t, "my clip.mov", "frames")
	outDir := t.TempDir()
	r := newTestRunner(VideoInfo{DurationSeconds: 42.7, FPS: 25, TotalFrames: 1067})
	var updates []Update
	res, err := r.Run(context.Background(), Request{InputPath: in, OutputDir: outDir, Runner: "dry-run", QualityTier: "high"}, func(u Update) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := filepath.Join(outDir, "my_clip_restored_20260304_050607.mp4")
	if res.OutputPath != want {
		t.Fatalf("output=%s want %s", res.OutputPath, want)
	}
	body, err := os.ReadFile(res.OutputPath)
	if err != nil || string(body) != "frames" {
		t.Fatalf("output body=%q err=%v", body, err)
	}
	if res.Runner != runner.NameSimulated || res.QualityTier != "high" || res.DurationHintSeconds != 42 || res.TotalFrames != 1067 {
		t.Fatalf("result=%+v", res)
	}
	if len(updates) == 0 || updates[len(updates)-1].Percent != 1 {
		t.Fatalf("updates=%+v", updates)
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].Percent < updates[i-1].Percent {
			t.Fatalf("progress went backwards: %+v", updates)
		}
	}
}

func TestRunDefaultsAndExplicitOutput(t *testing.T) {
	in := writeInput(t, "a.mp4", "x")
	out := filepath.Join(t.TempDir(), "nested", "final.mp4")
	r := newTestRunner(VideoInfo{})
	empty := ""
	res, err := r.Run(context.Background(), Request{InputPath: in, OutputPath: out, Refiner: &empty}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputPath != out || res.DurationHintSeconds != defaultHintSeconds || res.QualityTier != "ultra" {
		t.Fatalf("result=%+v", res)
	}
	if res.RefinerModel != "" || res.AvgFPS != 0 {
		t.Fatalf("result=%+v", res)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	in := writeInput(t, "a.mp4", "x")
	r := newTestRunner(VideoInfo{})
	ctx := context.Background()
	if _, err := r.Run(ctx, Request{}, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty input err=%v", err)
	}
	if _, err := r.Run(ctx, Request{InputPath: "/definitely/missing.mp4"}, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing input err=%v", err)
	}
	if _, err := r.Run(ctx, Request{InputPath: in, QualityTier: "cinema"}, nil); !errors.Is(err, domain.ErrUnknownTier) {
		t.Fatalf("tier err=%v", err)
	}
	if _, err := r.Run(ctx, Request{InputPath: in, Runner: "lada-cli"}, nil); !errors.Is(err, runner.ErrRunnerUnavailable) {
		t.Fatalf("external err=%v", err)
	}
	_, err := r.Run(ctx, Request{InputPath: in, OutputDir: t.TempDir(), Options: map[string]any{runner.OptionSimulateFailure: "decoding"}}, nil)
	if !runner.IsExecutionError(err) {
		t.Fatalf("simulated failure err=%v", err)
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{"streams":[{"avg_frame_rate":"30000/1001","nb_frames":"N/A","duration":"10.0"}],"format":{"duration":"10.05"}}`)
	info := parseProbe(out)
	if info.DurationSeconds != 10 || info.TotalFrames != 299 {
		t.Fatalf("info=%+v", info)
	}
	if info.FPS < 29.97 || info.FPS > 29.98 {
		t.Fatalf("fps=%v", info.FPS)
	}

	info = parseProbe([]byte(`{"streams":[{"avg_frame_rate":"0/0","nb_frames":"250"}],"format":{"duration":"12.5"}}`))
	if info.FPS != 0 || info.TotalFrames != 250 || info.DurationSeconds != 12.5 {
		t.Fatalf("info=%+v", info)
	}
	if got := parseProbe([]byte("not json")); got != (VideoInfo{}) {
		t.Fatalf("garbage probe=%+v", got)
	}
}

func TestProberWithoutFFprobe(t *testing.T) {
	p := &Prober{lookPath: func(string) (string, error) { return "", errors.New("not found") }}
	if got := p.Probe(context.Background(), "/a.mp4"); got != (VideoInfo{}) {
		t.Fatalf("probe=%+v", got)
	}
	p = &Prober{
		lookPath: func(string) (string, error) { return "/usr/bin/ffprobe", nil },
		output: func(_ context.Context, name string, args ...string) ([]byte, error) {
			if name != "/usr/bin/ffprobe" || args[len(args)-1] != "/a.mp4" {
				t.Fatalf("unexpected command %s %v", name, args)
			}
			return []byte(`{"streams":[{"avg_frame_rate":"25/1","duration":"4"}]}`), nil
		},
	}
	if got := p.Probe(context.Background(), "/a.mp4"); got.TotalFrames != 100 {
		t.Fatalf("probe=%+v", got)
	}
}

func TestEstimate(t *testing.T) {
	u := estimate(runner.Progress{Stage: "restoring", Percent: 0.25}, 10*time.Second, 1000)
	if u.FPS != 25 || u.ETA != 30*time.Second {
		t.Fatalf("update=%+v", u)
	}
	u = estimate(runner.Progress{Stage: "probing"}, time.Second, 0)
	if u.FPS != 0 || u.ETA >= 0 {
		t.Fatalf("update=%+v", u)
	}
}

func TestFormatting(t *testing.T) {
	cases := map[time.Duration]string{
		-1:                        "--:--",
		0:                         "00:00",
		75 * time.Second:          "01:15",
		time.Hour + 2*time.Second: "01:00:02",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Fatalf("FormatDuration(%v)=%q want %q", d, got, want)
		}
	}
	line := FormatUpdate(Update{Stage: "restoring[basicvsrpp-v1.2]-and-more", Percent: 0.5, FPS: 12.5, ETA: 90 * time.Second, Elapsed: 90 * time.Second})
	if !strings.HasPrefix(line, "[restoring[basicvsrpp-v1.2+]  50% | fps    12.50 | eta    01:30") {
		t.Fatalf("line=%q", line)
	}
}

func TestProgressPrinterThrottles(t *testing.T) {
	var buf bytes.Buffer
	now := time.Unix(0, 0)
	p := NewProgressPrinter(&buf, time.Second)
	p.Now = func() time.Time { return now }
	p.Update(Update{Stage: "decoding", Percent: 0.1, ETA: -1})
	p.Update(Update{Stage: "decoding", Percent: 0.101, ETA: -1})
	if n := strings.Count(buf.String(), "\r"); n != 1 {
		t.Fatalf("redraws=%d want 1", n)
	}
	p.Update(Update{Stage: "restoring", Percent: 0.101, ETA: -1})
	now = now.Add(2 * time.Second)
	p.Update(Update{Stage: "restoring", Percent: 0.102, ETA: -1})
	p.Update(Update{Stage: "restoring", Percent: 1, ETA: 0})
	if n := strings.Count(buf.String(), "\r"); n != 4 {
		t.Fatalf("redraws=%d want 4", n)
	}
	p.Done()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("missing trailing newline")
	}
}
