// Package runner executes restoration jobs. A Runner reports ordered stage
// progress through a one-way callback; the caller owns persistence.
package runner

import (
	"context"
	"time"

	"vistora/internal/domain"
)

// Runner names. Aliases are accepted by Normalize.
const (
	NameAuto      = "auto"
	NameSimulated = "simulated"
	NameExternal  = "external"
)

// Params is everything a runner needs for one job.
type Params struct {
	JobID               string
	InputPath           string
	OutputPath          string
	Tier                domain.QualityTier
	Detector            string
	Restorer            string
	Refiner             string
	DurationHintSeconds int
	Options             map[string]any
}

// Progress is one stage/progress report. Percent is in [0,1].
type Progress struct {
	Stage   string
	Percent float64
	FPS     float64
	Elapsed time.Duration
}

// Result describes a successful run.
type Result struct {
	Runner     string
	OutputPath string
	Elapsed    time.Duration
	Logs       []string
}

// Runner is implemented by the simulated and external-process variants.
type Runner interface {
	Name() string
	// Available reports whether the runner can execute on this host.
	Available() bool
	Execute(ctx context.Context, p Params, onProgress func(Progress)) (Result, error)
}
