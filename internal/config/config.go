package config

import (
	"fmt"
	"strings"
	"time"

	"vistora/internal/catalog"
	"vistora/internal/domain"
)

// Config holds runtime parameters for the service and the CLI.
// Durations are whole seconds so every file format spells them the same way.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	StoreDriver string `json:"store" yaml:"store" toml:"store"`
	SQLitePath  string `json:"sqlite_path" yaml:"sqlite_path" toml:"sqlite_path"`
	DatabaseURL string `json:"database_url" yaml:"database_url" toml:"database_url"`

	OutputDir      string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	CatalogFile    string `json:"catalog_file" yaml:"catalog_file" toml:"catalog_file"`
	ExternalBinary string `json:"lada_binary" yaml:"lada_binary" toml:"lada_binary"`

	DefaultTier   string `json:"default_tier" yaml:"default_tier" toml:"default_tier"`
	DefaultRunner string `json:"default_runner" yaml:"default_runner" toml:"default_runner"`
	DefaultUser   string `json:"default_user" yaml:"default_user" toml:"default_user"`

	DefaultBalance   int     `json:"default_balance" yaml:"default_balance" toml:"default_balance"`
	BootstrapUser    string  `json:"bootstrap_user" yaml:"bootstrap_user" toml:"bootstrap_user"`
	BootstrapCredits int     `json:"bootstrap_credits" yaml:"bootstrap_credits" toml:"bootstrap_credits"`
	RefundFraction   float64 `json:"refund_fraction" yaml:"refund_fraction" toml:"refund_fraction"`
	Pricing          Pricing `json:"pricing" yaml:"pricing" toml:"pricing"`

	StaleAfterSeconds        int `json:"stale_after_seconds" yaml:"stale_after_seconds" toml:"stale_after_seconds"`
	ReconcileIntervalSeconds int `json:"reconcile_interval_seconds" yaml:"reconcile_interval_seconds" toml:"reconcile_interval_seconds"`
	DrainTimeoutSeconds      int `json:"drain_timeout_seconds" yaml:"drain_timeout_seconds" toml:"drain_timeout_seconds"`

	CORSOrigins    []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes   int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	EventBuffer    int      `json:"event_buffer" yaml:"event_buffer" toml:"event_buffer"`
	TraceExporter  string   `json:"trace_exporter" yaml:"trace_exporter" toml:"trace_exporter"`
	TelegramSecret string   `json:"telegram_secret" yaml:"telegram_secret" toml:"telegram_secret"`
}

// Pricing mirrors catalog.Pricing with string tier keys for file formats.
type Pricing struct {
	UnitSeconds            int            `json:"unit_seconds" yaml:"unit_seconds" toml:"unit_seconds"`
	DefaultDurationSeconds int            `json:"default_duration_seconds" yaml:"default_duration_seconds" toml:"default_duration_seconds"`
	Multipliers            map[string]int `json:"multipliers" yaml:"multipliers" toml:"multipliers"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	p := catalog.DefaultPricing()
	mult := make(map[string]int, len(p.Multipliers))
	for tier, m := range p.Multipliers {
		mult[string(tier)] = m
	}
	return Config{
		Addr:                     "127.0.0.1:8585",
		LogLevel:                 "info",
		LogFormat:                "json",
		StoreDriver:              "sqlite",
		SQLitePath:               "runtime/vistora.db",
		OutputDir:                "outputs",
		ExternalBinary:           "lada-cli",
		DefaultTier:              string(domain.TierUltra),
		DefaultRunner:            "auto",
		DefaultUser:              "anonymous",
		RefundFraction:           0.5,
		Pricing:                  Pricing{UnitSeconds: p.UnitSeconds, DefaultDurationSeconds: p.DefaultDurationSeconds, Multipliers: mult},
		StaleAfterSeconds:        900,
		ReconcileIntervalSeconds: 60,
		DrainTimeoutSeconds:      30,
		MaxBodyBytes:             1 << 20,
		EventBuffer:              500,
		TraceExporter:            "none",
	}
}

var (
	storeDrivers   = map[string]bool{"memory": true, "sqlite": true, "sqlite3": true, "postgres": true, "postgresql": true, "pg": true}
	logFormats     = map[string]bool{"json": true, "console": true}
	traceExporters = map[string]bool{"none": true, "stdout": true}
)

// Validate checks value ranges. Tier and runner names are checked by the
// components that own them.
func (c Config) Validate() error {
	var problems []string
	bad := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if strings.TrimSpace(c.Addr) == "" {
		bad("addr is required")
	}
	if !storeDrivers[strings.ToLower(c.StoreDriver)] {
		bad("unknown store %q", c.StoreDriver)
	}
	switch strings.ToLower(c.StoreDriver) {
	case "sqlite", "sqlite3":
		if c.SQLitePath == "" {
			bad("sqlite_path is required for the sqlite store")
		}
	case "postgres", "postgresql", "pg":
		if c.DatabaseURL == "" {
			bad("database_url is required for the postgres store")
		}
	}
	if !logFormats[strings.ToLower(c.LogFormat)] {
		bad("unknown log_format %q", c.LogFormat)
	}
	if !traceExporters[strings.ToLower(c.TraceExporter)] {
		bad("unknown trace_exporter %q", c.TraceExporter)
	}
	if c.RefundFraction < 0 || c.RefundFraction > 1 {
		bad("refund_fraction %v outside [0,1]", c.RefundFraction)
	}
	if c.DefaultBalance < 0 || c.BootstrapCredits < 0 {
		bad("balances must be >= 0")
	}
	if c.BootstrapCredits > 0 && strings.TrimSpace(c.BootstrapUser) == "" {
		bad("bootstrap_user is required when bootstrap_credits > 0")
	}
	if c.Pricing.UnitSeconds < 1 || c.Pricing.DefaultDurationSeconds < 1 {
		bad("pricing seconds must be >= 1")
	}
	if len(c.Pricing.Multipliers) == 0 {
		bad("pricing multipliers are required")
	}
	for tier, m := range c.Pricing.Multipliers {
		if m < 1 {
			bad("pricing multiplier for %q must be >= 1", tier)
		}
	}
	if c.StaleAfterSeconds < 1 || c.ReconcileIntervalSeconds < 1 || c.DrainTimeoutSeconds < 1 {
		bad("stale_after_seconds, reconcile_interval_seconds and drain_timeout_seconds must be >= 1")
	}
	if c.MaxBodyBytes < 0 {
		bad("max_body_bytes must be >= 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) StaleAfter() time.Duration { return time.Duration(c.StaleAfterSeconds) * time.Second }

func (c Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

func (c Config) DrainTimeout() time.Duration { return time.Duration(c.DrainTimeoutSeconds) * time.Second }

// CatalogPricing converts the pricing section for catalog.Pricing.Estimate.
func (c Config) CatalogPricing() catalog.Pricing {
	out := catalog.Pricing{
		UnitSeconds:            c.Pricing.UnitSeconds,
		DefaultDurationSeconds: c.Pricing.DefaultDurationSeconds,
		Multipliers:            make(map[domain.QualityTier]int, len(c.Pricing.Multipliers)),
	}
	for tier, m := range c.Pricing.Multipliers {
		out.Multipliers[domain.QualityTier(strings.ToLower(tier))] = m
	}
	return out
}
