// Package serial runs one restoration in the foreground: no queue, no
// credits and no persistence. It backs `vistora run`.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vistora/internal/catalog"
	"vistora/internal/common/fsutil"
	"vistora/internal/domain"
	"vistora/internal/runner"
)

// defaultHintSeconds is used when neither the caller nor ffprobe knows the duration.
const defaultHintSeconds = 120

// Selector resolves runner names; *runner.Selector implements it.
type Selector interface {
	Select(name string) (runner.Runner, error)
}

// Request describes a local run.
type Request struct {
	InputPath           string
	OutputPath          string
	OutputDir           string
	Runner              string
	QualityTier         string
	Detector            string
	Restorer            string
	Refiner             *string
	DurationHintSeconds int
	Options             map[string]any
}

// Result summarizes a finished run.
type Result struct {
	InputPath           string        `json:"input_path"`
	OutputPath          string        `json:"output_path"`
	Runner              string        `json:"runner"`
	QualityTier         string        `json:"quality_tier"`
	DetectorModel       string        `json:"detector_model"`
	RestorerModel       string        `json:"restorer_model"`
	RefinerModel        string        `json:"refiner_model,omitempty"`
	DurationHintSeconds int           `json:"duration_hint_seconds"`
	Elapsed             time.Duration `json:"-"`
	ElapsedSeconds      float64       `json:"elapsed_seconds"`
	AvgFPS              float64       `json:"avg_fps,omitempty"`
	TotalFrames         int           `json:"total_frames,omitempty"`
}

// Update is one progress report enriched with throughput estimates.
// FPS is zero when the frame count is unknown; ETA is negative until progress starts.
type Update struct {
	Stage   string
	Percent float64
	Elapsed time.Duration
	FPS     float64
	ETA     time.Duration
}

// Runner executes local runs.
type Runner struct {
	Catalog *catalog.Catalog
	Runners Selector
	Prober  interface {
		Probe(ctx context.Context, input string) VideoInfo
	}
	Log zerolog.Logger
	Now func() time.Time
}

// New returns a Runner over the default catalog, the given selector and ffprobe.
func New(sel Selector, log zerolog.Logger) *Runner {
	return &Runner{Catalog: catalog.Default(), Runners: sel, Prober: NewProber(), Log: log, Now: time.Now}
}

// Run validates req, probes the input and executes it synchronously.
func (r *Runner) Run(ctx context.Context, req Request, onProgress func(Update)) (Result, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	if onProgress == nil {
		onProgress = func(Update) {}
	}
	input := strings.TrimSpace(req.InputPath)
	if input == "" {
		return Result{}, fmt.Errorf("%w: input path is required", domain.ErrInvalidArgument)
	}
	src, err := os.Stat(input)
	if err != nil {
		return Result{}, fmt.Errorf("%w: input_path %s", domain.ErrNotFound, input)
	}

	tier := domain.QualityTier(strings.ToLower(strings.TrimSpace(req.QualityTier)))
	if tier == "" {
		tier = domain.TierUltra
	}
	triple, err := r.Catalog.ResolveWithOverrides(tier, req.Detector, req.Restorer, req.Refiner)
	if err != nil {
		return Result{}, err
	}
	impl, err := r.Runners.Select(req.Runner)
	if err != nil {
		return Result{}, err
	}

	var info VideoInfo
	if r.Prober != nil {
		info = r.Prober.Probe(ctx, input)
	}
	hint := req.DurationHintSeconds
	if hint <= 0 {
		hint = int(info.DurationSeconds)
	}
	if hint <= 0 {
		hint = defaultHintSeconds
	}

	output, err := fsutil.ResolveOutputPath(input, req.OutputPath, req.OutputDir, now())
	if err != nil {
		return Result{}, err
	}

	r.Log.Info().
		Str("input", input).
		Str("output", output).
		Str("runner", impl.Name()).
		Str("tier", string(tier)).
		Int("frames", info.TotalFrames).
		Msg("local run started")

	start := now()
	res, err := impl.Execute(ctx, runner.Params{
		JobID:               "local",
		InputPath:           input,
		OutputPath:          output,
		Tier:                tier,
		Detector:            triple.Detector,
		Restorer:            triple.Restorer,
		Refiner:             triple.Refiner,
		DurationHintSeconds: hint,
		Options:             req.Options,
	}, func(p runner.Progress) {
		onProgress(estimate(p, now().Sub(start), info.TotalFrames))
	})
	if err != nil {
		return Result{}, err
	}

	if res.Runner == runner.NameSimulated {
		if err := materialize(input, output, src.Mode().IsRegular()); err != nil {
			return Result{}, err
		}
	}

	elapsed := now().Sub(start)
	out := Result{
		InputPath:           input,
		OutputPath:          output,
		Runner:              res.Runner,
		QualityTier:         string(tier),
		DetectorModel:       triple.Detector,
		RestorerModel:       triple.Restorer,
		RefinerModel:        triple.Refiner,
		DurationHintSeconds: hint,
		Elapsed:             elapsed,
		ElapsedSeconds:      elapsed.Seconds(),
		TotalFrames:         info.TotalFrames,
	}
	if info.TotalFrames > 0 {
		out.AvgFPS = float64(info.TotalFrames) / max(elapsed.Seconds(), 0.001)
	}
	r.Log.Info().Str("output", output).Dur("elapsed", elapsed).Msg("local run finished")
	return out, nil
}

// estimate derives fps and eta from the fraction done and the frame count.
func estimate(p runner.Progress, elapsed time.Duration, frames int) Update {
	pct := min(max(p.Percent, 0), 1)
	u := Update{Stage: p.Stage, Percent: pct, Elapsed: elapsed, FPS: p.FPS, ETA: -1}
	secs := max(elapsed.Seconds(), 0.001)
	if u.FPS == 0 && frames > 0 && pct > 0 {
		u.FPS = float64(frames) * pct / secs
	}
	if pct > 0 {
		u.ETA = time.Duration(secs * (1 - pct) / pct * float64(time.Second))
	}
	return u
}

// materialize gives the simulated runner a real output: a copy of a regular
// input file, otherwise an empty file. An existing output is left alone.
func materialize(input, output string, regular bool) error {
	if _, err := os.Stat(output); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	dst, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer dst.Close()
	if !regular {
		return nil
	}
	src, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy input: %w", err)
	}
	return dst.Close()
}
