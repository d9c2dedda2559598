// Package telegram handles bot webhook events. Every outcome, including
// refusals, is reported in the response body with ok=false; bots treat any
// non-2xx as a delivery failure and retry.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"vistora/internal/domain"
	"vistora/internal/manager"
	"vistora/pkg/types"
)

// Supported webhook events.
const (
	EventPing      = "ping"
	EventBalance   = "balance"
	EventTopup     = "topup"
	EventCreateJob = "create_job"
	EventJobStatus = "job_status"
)

// DefaultTopupReason is recorded when a topup payload carries no reason.
const DefaultTopupReason = "tg_topup"

const errUnsupported = "unsupported_event"

// Events lists the supported event names.
func Events() []string {
	return []string{EventPing, EventBalance, EventTopup, EventCreateJob, EventJobStatus}
}

// Credits is the ledger surface used by the bot.
type Credits interface {
	Balance(ctx context.Context, userID string) (int, error)
	Topup(ctx context.Context, userID string, amount int, reason string) (int, error)
	Transactions(ctx context.Context, userID string) ([]domain.LedgerEntry, error)
}

// Jobs is the manager surface used by the bot.
type Jobs interface {
	Create(ctx context.Context, req manager.CreateRequest) (domain.Job, error)
	Get(ctx context.Context, id string) (domain.Job, error)
}

var eventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "vistora",
		Subsystem: "tg",
		Name:      "events_total",
		Help:      "Telegram webhook events by name and outcome",
	},
	[]string{"event", "ok"},
)

func init() {
	prometheus.MustRegister(eventsTotal)
}

// Service dispatches webhook events. Jobs may be nil, in which case the job
// events answer ok=false.
type Service struct {
	credits Credits
	jobs    Jobs
	log     zerolog.Logger
}

func New(credits Credits, jobs Jobs, log zerolog.Logger) *Service {
	return &Service{credits: credits, jobs: jobs, log: log.With().Str("component", "telegram").Logger()}
}

// Handle processes one event.
func (s *Service) Handle(ctx context.Context, req types.TgWebhookRequest) types.TgWebhookResponse {
	event := strings.ToLower(strings.TrimSpace(req.Event))
	user := strings.TrimSpace(req.UserID)
	var resp types.TgWebhookResponse
	switch event {
	case EventBalance, EventTopup, EventCreateJob, EventJobStatus:
		if user == "" {
			resp = types.TgWebhookResponse{Error: "user_id is required"}
			break
		}
		resp = s.dispatch(ctx, event, user, req.Payload)
	case EventPing:
		resp = types.TgWebhookResponse{OK: true, Message: "pong"}
	default:
		resp = types.TgWebhookResponse{Error: errUnsupported}
	}
	resp.Event = req.Event
	eventsTotal.WithLabelValues(metricEvent(event), strconv.FormatBool(resp.OK)).Inc()
	ev := s.log.Info()
	if !resp.OK {
		ev = s.log.Warn().Str("error", resp.Error)
	}
	ev.Str("event", event).Str("user_id", user).Msg("webhook event")
	return resp
}

func (s *Service) dispatch(ctx context.Context, event, user string, payload map[string]any) types.TgWebhookResponse {
	switch event {
	case EventBalance:
		return s.balance(ctx, user)
	case EventTopup:
		return s.topup(ctx, user, payload)
	case EventCreateJob:
		return s.createJob(ctx, user, payload)
	default:
		return s.jobStatus(ctx, user, payload)
	}
}

// metricEvent bounds label cardinality to the known event names.
func metricEvent(event string) string {
	for _, e := range Events() {
		if e == event {
			return e
		}
	}
	return "other"
}

func failed(err error) types.TgWebhookResponse {
	return types.TgWebhookResponse{Error: err.Error()}
}

func (s *Service) balance(ctx context.Context, user string) types.TgWebhookResponse {
	bal, err := s.credits.Balance(ctx, user)
	if err != nil {
		return failed(err)
	}
	return types.TgWebhookResponse{OK: true, Balance: &bal}
}

func (s *Service) topup(ctx context.Context, user string, payload map[string]any) types.TgWebhookResponse {
	amount, err := intField(payload, "amount")
	if err != nil {
		return failed(err)
	}
	reason, _ := payload["reason"].(string)
	if strings.TrimSpace(reason) == "" {
		reason = DefaultTopupReason
	}
	bal, err := s.credits.Topup(ctx, user, amount, reason)
	if err != nil {
		return failed(err)
	}
	resp := types.TgWebhookResponse{OK: true, Balance: &bal}
	// Topup does not hand back the entry; the newest topup is it unless a
	// concurrent topup for the same user slipped in between.
	if entries, err := s.credits.Transactions(ctx, user); err == nil {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Kind == domain.EntryTopup {
				resp.TransactionID = entries[i].ID
				break
			}
		}
	}
	return resp
}

func (s *Service) createJob(ctx context.Context, user string, payload map[string]any) types.TgWebhookResponse {
	if s.jobs == nil {
		return types.TgWebhookResponse{Error: "jobs not configured"}
	}
	var req manager.CreateRequest
	raw, err := json.Marshal(payload)
	if err == nil {
		err = json.Unmarshal(raw, &req)
	}
	if err != nil {
		return failed(fmt.Errorf("%w: invalid create_job payload: %v", domain.ErrInvalidArgument, err))
	}
	req.UserID = user
	job, err := s.jobs.Create(ctx, req)
	if err != nil {
		return failed(err)
	}
	v := job.View()
	return types.TgWebhookResponse{OK: true, Message: "job queued", Job: &v}
}

func (s *Service) jobStatus(ctx context.Context, user string, payload map[string]any) types.TgWebhookResponse {
	if s.jobs == nil {
		return types.TgWebhookResponse{Error: "jobs not configured"}
	}
	id, _ := payload["job_id"].(string)
	if strings.TrimSpace(id) == "" {
		return types.TgWebhookResponse{Error: "job_id is required"}
	}
	job, err := s.jobs.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return failed(err)
	}
	// other users' jobs are reported as missing
	if job.UserID != user {
		return failed(fmt.Errorf("%w: job %s", domain.ErrNotFound, id))
	}
	v := job.View()
	return types.TgWebhookResponse{OK: true, Message: fmt.Sprintf("%s (%s, %.0f%%)", job.Status, job.Stage, job.Progress*100), Job: &v}
}

// intField reads a whole number sent either as a JSON number or a string.
func intField(payload map[string]any, key string) (int, error) {
	switch v := payload[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s must be a whole number", domain.ErrInvalidArgument, key)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a whole number", domain.ErrInvalidArgument, key)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, key)
	default:
		return 0, fmt.Errorf("%w: %s must be a whole number", domain.ErrInvalidArgument, key)
	}
}
