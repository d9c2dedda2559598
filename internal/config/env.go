package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv overlays VISTORA_* variables. DATABASE_URL is honored when
// VISTORA_DATABASE_URL is unset.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	var errs []string
	integer := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}

	str("VISTORA_ADDR", &c.Addr)
	str("VISTORA_LOG_LEVEL", &c.LogLevel)
	str("VISTORA_LOG_FORMAT", &c.LogFormat)
	str("VISTORA_STORE", &c.StoreDriver)
	str("VISTORA_SQLITE_PATH", &c.SQLitePath)
	str("DATABASE_URL", &c.DatabaseURL)
	str("VISTORA_DATABASE_URL", &c.DatabaseURL)
	str("VISTORA_OUTPUT_DIR", &c.OutputDir)
	str("VISTORA_CATALOG_FILE", &c.CatalogFile)
	str("VISTORA_LADA_BINARY", &c.ExternalBinary)
	str("VISTORA_DEFAULT_TIER", &c.DefaultTier)
	str("VISTORA_DEFAULT_RUNNER", &c.DefaultRunner)
	str("VISTORA_DEFAULT_USER", &c.DefaultUser)
	str("VISTORA_BOOTSTRAP_USER", &c.BootstrapUser)
	str("VISTORA_TRACE_EXPORTER", &c.TraceExporter)
	str("VISTORA_TG_SECRET", &c.TelegramSecret)
	integer("VISTORA_DEFAULT_BALANCE", &c.DefaultBalance)
	integer("VISTORA_BOOTSTRAP_CREDITS", &c.BootstrapCredits)
	integer("VISTORA_STALE_AFTER_SECONDS", &c.StaleAfterSeconds)
	integer("VISTORA_RECONCILE_INTERVAL_SECONDS", &c.ReconcileIntervalSeconds)
	integer("VISTORA_DRAIN_TIMEOUT_SECONDS", &c.DrainTimeoutSeconds)
	integer("VISTORA_EVENT_BUFFER", &c.EventBuffer)

	if v, ok := get("VISTORA_REFUND_FRACTION"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("VISTORA_REFUND_FRACTION=%q is not a number", v))
		} else {
			c.RefundFraction = f
		}
	}
	if v, ok := get("VISTORA_MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("VISTORA_MAX_BODY_BYTES=%q is not an integer", v))
		} else {
			c.MaxBodyBytes = n
		}
	}
	if v, ok := get("VISTORA_CORS_ORIGINS"); ok {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("environment: %s", strings.Join(errs, "; "))
	}
	return nil
}
