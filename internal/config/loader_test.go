package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vistora/internal/domain"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nstore: memory\noutput_dir: /tmp/out\nrefund_fraction: 0.25\ncors_origins: [\"http://localhost:3000\"]\npricing:\n  unit_seconds: 60\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.StoreDriver != "memory" || cfg.OutputDir != "/tmp/out" || cfg.RefundFraction != 0.25 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.Pricing.UnitSeconds != 60 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	// untouched keys keep defaults
	if cfg.DefaultTier != "ultra" || cfg.Pricing.DefaultDurationSeconds != 120 || cfg.DrainTimeoutSeconds != 30 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","store":"postgres","database_url":"postgres://x","default_balance":50,"stale_after_seconds":120}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.StoreDriver != "postgres" || cfg.DatabaseURL != "postgres://x" || cfg.DefaultBalance != 50 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.StaleAfter() != 2*time.Minute {
		t.Fatalf("StaleAfter = %v", cfg.StaleAfter())
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\ndefault_tier=\"high\"\nbootstrap_user=\"ops\"\nbootstrap_credits=500\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.DefaultTier != "high" || cfg.BootstrapUser != "ops" || cfg.BootstrapCredits != 500 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	p = writeTempFile(t, d, "bad.json", "{")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	p := cfg.CatalogPricing()
	if n, err := p.Estimate(250, domain.TierHigh); err != nil || n != 6 {
		t.Fatalf("Estimate = %d, %v", n, err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"addr":      func(c *Config) { c.Addr = " " },
		"store":     func(c *Config) { c.StoreDriver = "mongo" },
		"pg url":    func(c *Config) { c.StoreDriver = "postgres" },
		"sqlite":    func(c *Config) { c.SQLitePath = "" },
		"format":    func(c *Config) { c.LogFormat = "xml" },
		"exporter":  func(c *Config) { c.TraceExporter = "jaeger" },
		"refund":    func(c *Config) { c.RefundFraction = 1.2 },
		"balance":   func(c *Config) { c.DefaultBalance = -1 },
		"bootstrap": func(c *Config) { c.BootstrapCredits = 10 },
		"unit":      func(c *Config) { c.Pricing.UnitSeconds = 0 },
		"mult":      func(c *Config) { c.Pricing.Multipliers = map[string]int{"ultra": 0} },
		"stale":     func(c *Config) { c.StaleAfterSeconds = 0 },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"VISTORA_ADDR":            ":1234",
		"VISTORA_STORE":           "memory",
		"DATABASE_URL":            "postgres://fallback",
		"VISTORA_DEFAULT_BALANCE": "25",
		"VISTORA_REFUND_FRACTION": "0.75",
		"VISTORA_CORS_ORIGINS":    "http://a, http://b ,",
		"VISTORA_MAX_BODY_BYTES":  "2048",
		"VISTORA_LOG_LEVEL":       "  ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Defaults()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Addr != ":1234" || cfg.StoreDriver != "memory" || cfg.DatabaseURL != "postgres://fallback" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.DefaultBalance != 25 || cfg.RefundFraction != 0.75 || cfg.MaxBodyBytes != 2048 {
		t.Fatalf("unexpected numbers: %+v", cfg)
	}
	if strings.Join(cfg.CORSOrigins, "|") != "http://a|http://b" {
		t.Fatalf("CORSOrigins = %q", cfg.CORSOrigins)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("blank env should not override: %q", cfg.LogLevel)
	}

	env["VISTORA_DATABASE_URL"] = "postgres://primary"
	env["VISTORA_DRAIN_TIMEOUT_SECONDS"] = "soon"
	cfg = Defaults()
	err := cfg.ApplyEnv(lookup)
	if err == nil || !strings.Contains(err.Error(), "VISTORA_DRAIN_TIMEOUT_SECONDS") {
		t.Fatalf("expected integer error, got %v", err)
	}
	if cfg.DatabaseURL != "postgres://primary" {
		t.Fatalf("VISTORA_DATABASE_URL should win: %q", cfg.DatabaseURL)
	}
}

func TestResolveLayersFileAndEnv(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9000\nstore: memory\ndefault_user: file-user\n")
	t.Setenv("VISTORA_DEFAULT_USER", "env-user")
	cfg, err := Resolve(p)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.DefaultUser != "env-user" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}

	t.Setenv("VISTORA_REFUND_FRACTION", "3")
	if _, err := Resolve(""); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, ".env", "VISTORA_TEST_DOTENV=from-file\n")
	t.Setenv("VISTORA_TEST_DOTENV", "")
	os.Unsetenv("VISTORA_TEST_DOTENV")
	LoadDotEnv(p, filepath.Join(d, "missing.env"))
	if got := os.Getenv("VISTORA_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("dotenv value = %q", got)
	}
}
