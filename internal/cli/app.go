package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"vistora/internal/catalog"
	"vistora/internal/config"
	"vistora/internal/credits"
	"vistora/internal/domain"
	"vistora/internal/httpapi"
	"vistora/internal/manager"
	"vistora/internal/runner"
	"vistora/internal/store"
	"vistora/internal/telegram"
	"vistora/pkg/types"
)

// App is the fully wired service behind `vistora serve`.
type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Store    domain.Store
	Catalog  *catalog.Catalog
	Ledger   *credits.Ledger
	Runners  *runner.Selector
	Devices  *runner.DeviceProbe
	Events   *manager.EventBus
	Manager  *manager.Manager
	Telegram *telegram.Service
	Handler  http.Handler
}

// NewApp opens the store and builds every component from cfg. Bootstrap
// credits are applied here so they exist before the first request.
func NewApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	st, err := store.Open(ctx, store.Options{Driver: cfg.StoreDriver, SQLitePath: cfg.SQLitePath, DatabaseURL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &App{Config: cfg, Log: log, Store: st, Devices: runner.NewDeviceProbe()}
	if err := a.build(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	a.Catalog = catalog.Default()
	if cfg.CatalogFile != "" {
		c, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		a.Catalog = c
	}

	a.Ledger = credits.New(a.Store,
		credits.WithDefaultBalance(cfg.DefaultBalance),
		credits.WithLogger(a.Log.With().Str("component", "ledger").Logger()),
	)
	if cfg.BootstrapCredits > 0 {
		bal, err := a.Ledger.EnsureAtLeast(ctx, cfg.BootstrapUser, cfg.BootstrapCredits)
		if err != nil {
			return fmt.Errorf("bootstrap credits: %w", err)
		}
		a.Log.Info().Str("user_id", cfg.BootstrapUser).Int("balance", bal).Msg("bootstrap balance ensured")
	}

	ext := runner.NewExternal(cfg.ExternalBinary)
	ext.Log = a.Log.With().Str("component", "runner").Logger()
	a.Runners = runner.NewSelector(runner.NewSimulated(), ext)
	a.Events = manager.NewEventBus(cfg.EventBuffer)

	pricing := cfg.CatalogPricing()
	refund := cfg.RefundFraction
	m, err := manager.NewWithConfig(manager.ManagerConfig{
		Jobs:              a.Store,
		Profiles:          a.Store,
		Ledger:            a.Ledger,
		Catalog:           a.Catalog,
		Pricing:           &pricing,
		Runners:           a.Runners,
		Publisher:         a.Events,
		Logger:            a.Log,
		DefaultTier:       domain.QualityTier(cfg.DefaultTier),
		DefaultRunner:     cfg.DefaultRunner,
		DefaultUser:       cfg.DefaultUser,
		OutputDir:         cfg.OutputDir,
		RefundFraction:    &refund,
		StaleAfter:        cfg.StaleAfter(),
		ReconcileInterval: cfg.ReconcileInterval(),
		DrainTimeout:      cfg.DrainTimeout(),
	})
	if err != nil {
		return err
	}
	a.Manager = m
	a.Telegram = telegram.New(a.Ledger, m, a.Log)

	httpapi.SetLogger(a.Log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)
	a.Handler = httpapi.NewMux(httpapi.Deps{
		Jobs:           m,
		Credits:        a.Ledger,
		Profiles:       a.Store,
		Catalog:        a.Catalog,
		Events:         a.Events,
		Capabilities:   a.Capabilities,
		Telegram:       a.Telegram,
		TelegramSecret: cfg.TelegramSecret,
	})
	return nil
}

// Capabilities reports devices, runners, tiers and the effective defaults.
func (a *App) Capabilities(ctx context.Context) types.Capabilities {
	tiers := make([]string, 0, 3)
	for _, t := range a.Catalog.Tiers() {
		tiers = append(tiers, string(t))
	}
	return types.Capabilities{
		Devices:      a.Devices.Devices(ctx),
		Runners:      runner.Names(),
		Available:    a.Runners.Availability(),
		QualityTiers: tiers,
		Defaults: map[string]any{
			"quality_tier":    a.Config.DefaultTier,
			"runner":          a.Config.DefaultRunner,
			"user_id":         a.Config.DefaultUser,
			"output_dir":      a.Config.OutputDir,
			"refund_fraction": a.Config.RefundFraction,
		},
	}
}

// Serve listens on the configured address until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Config.Addr, err)
	}
	return a.ServeListener(ctx, ln)
}

// ServeListener starts the manager, serves HTTP on ln and shuts both down
// when ctx ends: HTTP first so no new jobs arrive, then the worker drain.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	httpapi.SetBaseContext(ctx)
	if err := a.Manager.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("start manager: %w", err)
	}
	srv := &http.Server{Handler: a.Handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info().Str("addr", ln.Addr().String()).Str("store", a.Config.StoreDriver).Msg("vistora listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn().Err(err).Msg("graceful http shutdown")
		}
		stopCtx, cancelStop := context.WithTimeout(context.Background(), a.Config.DrainTimeout()+5*time.Second)
		defer cancelStop()
		if err := a.Manager.Stop(stopCtx); err != nil {
			return fmt.Errorf("stop manager: %w", err)
		}
		a.Log.Info().Msg("vistora stopped")
		return nil
	})
	return g.Wait()
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
