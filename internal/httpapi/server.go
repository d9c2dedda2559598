package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vistora/internal/catalog"
	"vistora/internal/domain"
	"vistora/internal/manager"
	"vistora/pkg/types"
)

// JobService is the job surface the API needs; *manager.Manager implements it.
type JobService interface {
	Create(ctx context.Context, req manager.CreateRequest) (domain.Job, error)
	Get(ctx context.Context, id string) (domain.Job, error)
	List(ctx context.Context) ([]domain.Job, error)
	Cancel(ctx context.Context, id string) (domain.Job, error)
	Status(ctx context.Context) manager.StatusReport
	Ready() bool
}

// CreditService is implemented by *credits.Ledger.
type CreditService interface {
	Balance(ctx context.Context, userID string) (int, error)
	Topup(ctx context.Context, userID string, amount int, reason string) (int, error)
	Transactions(ctx context.Context, userID string) ([]domain.LedgerEntry, error)
}

// EventSource is implemented by *manager.EventBus.
type EventSource interface {
	Since(seq int64) []manager.Event
	LastSeq() int64
}

// WebhookHandler processes Telegram webhook events.
type WebhookHandler interface {
	Handle(ctx context.Context, req types.TgWebhookRequest) types.TgWebhookResponse
}

// Deps bundles the collaborators behind the routes. Nil optional members
// disable their routes' functionality (they answer 503).
type Deps struct {
	Jobs         JobService
	Credits      CreditService
	Profiles     domain.ProfileStore
	Catalog      *catalog.Catalog
	Events       EventSource
	Capabilities func(ctx context.Context) types.Capabilities
	Telegram     WebhookHandler
	// TelegramSecret, when set, must match the X-Telegram-Bot-Api-Secret-Token header.
	TelegramSecret string
	Now            func() time.Time
}

type server struct {
	Deps
}

func NewMux(d Deps) http.Handler {
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	s := &server{Deps: d}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if corsEnabled {
		methods := corsAllowedMethods
		if len(methods) == 0 {
			methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
		}
		headers := corsAllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Content-Type", "X-Request-Id"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.Jobs != nil && s.Jobs.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("starting"))
	})
	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/system/capabilities", s.capabilities)
		r.Get("/system/status", s.status)
		r.Get("/models/catalog", s.catalog)

		r.Post("/jobs", s.createJob)
		r.Get("/jobs", s.listJobs)
		r.Get("/jobs/{id}", s.getJob)
		r.Post("/jobs/{id}/cancel", s.cancelJob)
		r.Get("/events", s.events)

		r.Get("/credits/{user}", s.balance)
		r.Post("/credits/{user}/topup", s.topup)
		r.Get("/credits/{user}/transactions", s.transactions)

		r.Get("/profiles", s.listProfiles)
		r.Get("/profiles/{name}", s.getProfile)
		r.Put("/profiles/{name}", s.putProfile)

		r.Post("/tg/webhook", s.tgWebhook)
	})
	return r
}

func unavailable(w http.ResponseWriter, what string) {
	writeJSONError(w, http.StatusServiceUnavailable, what+" not configured")
}
