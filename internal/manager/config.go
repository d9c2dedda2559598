package manager

import (
	"time"

	"github.com/rs/zerolog"

	"vistora/internal/catalog"
	"vistora/internal/credits"
	"vistora/internal/domain"
	"vistora/internal/runner"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultTier              = domain.TierUltra
	defaultRunner            = runner.NameAuto
	defaultUser              = "anonymous"
	defaultOutputDir         = "outputs"
	defaultRefundFraction    = 0.5
	defaultStaleAfter        = 15 * time.Minute
	defaultReconcileInterval = time.Minute
	defaultDrainTimeout      = 30 * time.Second
)

// RunnerSelector resolves a runner name to a concrete runner.
type RunnerSelector interface {
	Select(name string) (runner.Runner, error)
}

// ManagerConfig encapsulates all collaborators and tunables for Manager construction.
type ManagerConfig struct {
	Jobs     domain.JobStore
	Profiles domain.ProfileStore
	Ledger   *credits.Ledger
	Catalog  *catalog.Catalog
	Pricing  *catalog.Pricing
	Runners  RunnerSelector

	Publisher EventPublisher
	Logger    zerolog.Logger

	DefaultTier   domain.QualityTier
	DefaultRunner string
	DefaultUser   string
	OutputDir     string

	// RefundFraction of a canceled job's reservation is returned; nil means 0.5.
	RefundFraction *float64

	StaleAfter        time.Duration
	ReconcileInterval time.Duration
	DrainTimeout      time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

func (cfg ManagerConfig) withDefaults() ManagerConfig {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Pricing == nil {
		p := catalog.DefaultPricing()
		cfg.Pricing = &p
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = defaultTier
	}
	if cfg.DefaultRunner == "" {
		cfg.DefaultRunner = defaultRunner
	}
	if cfg.DefaultUser == "" {
		cfg.DefaultUser = defaultUser
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.RefundFraction == nil {
		f := defaultRefundFraction
		cfg.RefundFraction = &f
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}
