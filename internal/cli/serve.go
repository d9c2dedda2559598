package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vistora/internal/config"
	"vistora/internal/observability"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the job worker",
		Long: "Configuration layers: built-in defaults, the --config file (.yaml/.yml/.json/.toml),\n" +
			"VISTORA_* environment variables (also read from .env and .env.local), then flags.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return serve(cmd) },
	}
	f := cmd.Flags()
	f.String("config", os.Getenv("VISTORA_CONFIG"), "Config file path (defaults VISTORA_CONFIG)")
	f.String("addr", "", "HTTP listen address, e.g. 127.0.0.1:8585")
	f.String("store", "", "Store driver: memory|sqlite|postgres")
	f.String("sqlite-path", "", "SQLite database file")
	f.String("database-url", "", "PostgreSQL connection URL")
	f.String("output-dir", "", "Directory for default output paths")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: json|console")
	f.String("trace-exporter", "", "Trace exporter: none|stdout")
	return cmd
}

// loadServeConfig resolves defaults, file and environment, then applies the
// flags the user actually set.
func loadServeConfig(cmd *cobra.Command) (config.Config, error) {
	config.LoadDotEnv()
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Resolve(path)
	if err != nil {
		return cfg, err
	}
	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("addr", &cfg.Addr)
	override("store", &cfg.StoreDriver)
	override("sqlite-path", &cfg.SQLitePath)
	override("database-url", &cfg.DatabaseURL)
	override("output-dir", &cfg.OutputDir)
	override("log-level", &cfg.LogLevel)
	override("log-format", &cfg.LogFormat)
	override("trace-exporter", &cfg.TraceExporter)
	return cfg, cfg.Validate()
}

func serve(cmd *cobra.Command) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	shutdownTracing, err := observability.InitTracing("vistora", cfg.TraceExporter, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()
	return app.Serve(ctx)
}
