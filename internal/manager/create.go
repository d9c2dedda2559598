package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"vistora/internal/domain"
	"vistora/internal/runner"
)

// Create validates req, reserves credits and enqueues a queued job. A refused
// reservation leaves no job record. If the job cannot be persisted the
// reservation is released in full.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (domain.Job, error) {
	if strings.TrimSpace(req.ProfileName) != "" {
		merged, err := m.mergeProfile(ctx, req)
		if err != nil {
			return domain.Job{}, err
		}
		req = merged
	}

	input := strings.TrimSpace(req.InputPath)
	if input == "" {
		return domain.Job{}, errInvalid("input_path is required")
	}
	if req.EstimatedCredits != nil && *req.EstimatedCredits < 1 {
		return domain.Job{}, errInvalid("estimated_credits must be >= 1")
	}
	if req.DurationHintSeconds != nil && *req.DurationHintSeconds < 1 {
		return domain.Job{}, errInvalid("duration_hint_seconds must be >= 1")
	}

	runnerName := req.Runner
	if strings.TrimSpace(runnerName) == "" {
		runnerName = m.cfg.DefaultRunner
	}
	runnerName, err := runner.Normalize(runnerName)
	if err != nil {
		return domain.Job{}, err
	}

	tier := domain.QualityTier(strings.ToLower(strings.TrimSpace(req.QualityTier)))
	if tier == "" {
		tier = m.cfg.DefaultTier
	}
	triple, err := m.cfg.Catalog.ResolveWithOverrides(tier, req.DetectorModel, req.RestorerModel, req.RefinerModel)
	if err != nil {
		return domain.Job{}, err
	}

	duration := 0
	if req.DurationHintSeconds != nil {
		duration = *req.DurationHintSeconds
	}
	credits := 0
	if req.EstimatedCredits != nil {
		credits = *req.EstimatedCredits
	} else if credits, err = m.cfg.Pricing.Estimate(duration, tier); err != nil {
		return domain.Job{}, err
	}

	opts, err := normalizeOptions(req.Options)
	if err != nil {
		return domain.Job{}, err
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = m.cfg.DefaultUser
	}

	id := uuid.NewString()
	if _, err := m.cfg.Ledger.Reserve(ctx, userID, credits, id); err != nil {
		return domain.Job{}, err
	}

	now := m.now()
	job := domain.Job{
		ID:                  id,
		UserID:              userID,
		InputPath:           input,
		OutputPath:          strings.TrimSpace(req.OutputPath),
		ProfileName:         strings.TrimSpace(req.ProfileName),
		Runner:              runnerName,
		QualityTier:         tier,
		DetectorModel:       triple.Detector,
		RestorerModel:       triple.Restorer,
		RefinerModel:        triple.Refiner,
		DurationHintSeconds: duration,
		Options:             opts,
		Status:              domain.JobStatusQueued,
		Stage:               "queued",
		Progress:            0,
		CreditsReserved:     credits,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	m.mu.Lock()
	err = m.cfg.Jobs.PutJob(ctx, job)
	if err == nil {
		m.pending = append(m.pending, job.ID)
		queueDepth.Set(float64(len(m.pending)))
	}
	m.mu.Unlock()

	if err != nil {
		if _, rerr := m.cfg.Ledger.Release(context.WithoutCancel(ctx), userID, credits, id); rerr != nil {
			m.log.Error().Err(rerr).Str("job_id", id).Str("user_id", userID).Msg("release after failed persist")
		}
		return domain.Job{}, fmt.Errorf("persist job: %w", err)
	}

	m.signal()
	jobsCreatedTotal.WithLabelValues(string(tier)).Inc()
	m.log.Info().
		Str("job_id", id).
		Str("user_id", userID).
		Str("runner", runnerName).
		Str("tier", string(tier)).
		Int("credits", credits).
		Msg("job queued")
	m.publish(EventJobCreated, id, map[string]any{"user_id": userID, "tier": string(tier), "credits": credits})
	return job.Clone(), nil
}

// normalizeOptions round-trips options through JSON so stored values have the
// same types regardless of backend, and rejects non-primitive values.
func normalizeOptions(in map[string]any) (map[string]any, error) {
	if len(in) == 0 {
		return nil, nil
	}
	for k, v := range in {
		if strings.TrimSpace(k) == "" {
			return nil, errInvalid("option keys must be non-empty")
		}
		switch n := v.(type) {
		case nil, string, bool, int, int32, int64, float32:
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, errInvalid("option %q is not a finite number", k)
			}
		case json.Number:
		default:
			return nil, errInvalid("option %q must be a string, number or boolean", k)
		}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, errInvalid("options: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errInvalid("options: %v", err)
	}
	return out, nil
}

// mergeProfile fills unset request fields from the named profile. Explicit
// request values always win; options merge key by key with the request on top.
func (m *Manager) mergeProfile(ctx context.Context, req CreateRequest) (CreateRequest, error) {
	if m.cfg.Profiles == nil {
		return req, errNotFound("profile", req.ProfileName)
	}
	name := strings.TrimSpace(req.ProfileName)
	prof, ok, err := m.cfg.Profiles.GetProfile(ctx, name)
	if err != nil {
		return req, fmt.Errorf("load profile %s: %w", name, err)
	}
	if !ok {
		return req, errNotFound("profile", name)
	}
	return MergeProfile(req, prof.Settings)
}

// MergeProfile applies profile settings to req. Unknown keys are ignored.
func MergeProfile(req CreateRequest, settings map[string]any) (CreateRequest, error) {
	str := func(key string, dst *string) error {
		v, ok := settings[key]
		if !ok || v == nil || strings.TrimSpace(*dst) != "" {
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return errInvalid("profile setting %q must be a string", key)
		}
		*dst = s
		return nil
	}
	num := func(key string, dst **int) error {
		v, ok := settings[key]
		if !ok || v == nil || *dst != nil {
			return nil
		}
		n, ok := asInt(v)
		if !ok {
			return errInvalid("profile setting %q must be an integer", key)
		}
		*dst = &n
		return nil
	}
	for _, f := range []error{
		str("input_path", &req.InputPath),
		str("output_path", &req.OutputPath),
		str("user_id", &req.UserID),
		str("runner", &req.Runner),
		str("quality_tier", &req.QualityTier),
		str("detector_model", &req.DetectorModel),
		str("restorer_model", &req.RestorerModel),
		num("duration_hint_seconds", &req.DurationHintSeconds),
		num("estimated_credits", &req.EstimatedCredits),
	} {
		if f != nil {
			return req, f
		}
	}
	if v, ok := settings["refiner_model"]; ok && v != nil && req.RefinerModel == nil {
		s, ok := v.(string)
		if !ok {
			return req, errInvalid("profile setting %q must be a string", "refiner_model")
		}
		req.RefinerModel = &s
	}

	if raw, ok := settings["options"]; ok && raw != nil {
		popts, ok := raw.(map[string]any)
		if !ok {
			return req, errInvalid("profile setting %q must be an object", "options")
		}
		merged := make(map[string]any, len(popts)+len(req.Options))
		for k, v := range popts {
			merged[k] = v
		}
		for k, v := range req.Options {
			merged[k] = v
		}
		req.Options = merged
	}
	return req, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// ValidateProfileSettings accepts primitive values plus an "options" object of
// primitives, the shape MergeProfile understands.
func ValidateProfileSettings(settings map[string]any) error {
	if settings == nil {
		return errInvalid("settings is required")
	}
	for k, v := range settings {
		if strings.TrimSpace(k) == "" {
			return errInvalid("setting keys must be non-empty")
		}
		if k == "options" {
			opts, ok := v.(map[string]any)
			if v != nil && !ok {
				return errInvalid("setting %q must be an object", k)
			}
			if _, err := normalizeOptions(opts); err != nil {
				return err
			}
			continue
		}
		switch n := v.(type) {
		case nil, string, bool, int, int64:
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return errInvalid("setting %q is not a finite number", k)
			}
		default:
			return errInvalid("setting %q must be a string, number, boolean or null", k)
		}
	}
	return nil
}
