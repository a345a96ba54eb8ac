package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/umutugur/mintly-advisor/internal/common"
	"github.com/umutugur/mintly-advisor/internal/llm"
	"github.com/umutugur/mintly-advisor/internal/model"
)

// DefaultLanguage is used when a request omits or misspells the language.
const DefaultLanguage = "en"

var supportedLanguages = map[string]bool{
	"en": true,
	"tr": true,
}

// Request identifies one insight generation call.
type Request struct {
	UserID     string
	Month      string
	Language   string
	Regenerate bool
}

// ServiceConfig wires the optional collaborators of a Service.
type ServiceConfig struct {
	// Provider generates the advice text. Nil disables AI and serves
	// fallback advice.
	Provider llm.Provider
	// Cache memoizes assembled insights. Nil disables caching.
	Cache Cache
	// Policy selects how invalid provider sections are handled.
	Policy MergePolicy
	// CacheTTL overrides DefaultCacheTTL when positive.
	CacheTTL time.Duration
}

// Service generates advisor insights: aggregate, derive, prompt, validate,
// assemble, cache. Every path that does not end in a fatal error produces
// a complete insight.
type Service struct {
	store     Store
	provider  llm.Provider
	cache     Cache
	synth     *Synthesizer
	assembler *Assembler
	logger    *slog.Logger
	policy    MergePolicy
	cacheTTL  time.Duration
}

// NewService creates an insight service over the given store.
func NewService(store Store, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyMerge
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Service{
		store:     store,
		provider:  cfg.Provider,
		cache:     cfg.Cache,
		synth:     NewSynthesizer(),
		assembler: NewAssembler(),
		logger:    logger,
		policy:    policy,
		cacheTTL:  ttl,
	}
}

// GenerateInsight produces the insight for one (user, month, language).
// Regenerate skips the cache read but still refreshes the cached entry.
func (s *Service) GenerateInsight(ctx context.Context, req Request) (*model.AdvisorInsight, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	key := cacheKey(req)
	if s.cache != nil && !req.Regenerate {
		if cached, ok := s.cache.Get(key); ok {
			s.logger.Debug("serving cached insight", "user_id", req.UserID, "month", req.Month, "language", req.Language)
			return cached, nil
		}
	}

	prefs, err := s.store.FindUserPreferences(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, common.NewUserError("user not found", common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	aggregator := NewAggregator(s.store, s.logger)
	agg, err := aggregator.Aggregate(ctx, req.UserID, req.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate finances: %w", err)
	}

	metrics := Derive(agg, prefs)
	fallback := s.synth.Synthesize(agg, metrics, prefs, req.Language)

	advice, info, err := s.resolveAdvice(ctx, req, agg, metrics, prefs, fallback)
	if err != nil {
		return nil, err
	}

	insight := s.assembler.Assemble(agg, metrics, prefs, advice, req.Language, info)

	if s.cache != nil {
		s.cache.Set(key, insight, s.cacheTTL)
	}
	return insight, nil
}

// resolveAdvice runs the provider path and falls back to synthesized
// advice on any non-fatal failure.
func (s *Service) resolveAdvice(ctx context.Context, req Request, agg *Aggregation, m Metrics, prefs model.Preferences, fallback *model.Advice) (*model.Advice, ProviderInfo, error) {
	if s.provider == nil {
		return fallback, ProviderInfo{
			Mode:       model.ModeFallback,
			ModeReason: "ai_disabled",
			Provider:   "none",
		}, nil
	}

	info := ProviderInfo{Provider: s.provider.Name()}

	userPrompt, err := BuildUserPrompt(NewPromptPayload(agg, m, prefs))
	if err != nil {
		s.logger.Warn("failed to build prompt", "user_id", req.UserID, "error", err)
		info.Mode = model.ModeFallback
		info.ModeReason = "prompt_build_failed"
		return fallback, info, nil
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: BuildSystemPrompt(req.Language),
		UserPrompt:   userPrompt,
		Language:     req.Language,
	})
	if err != nil {
		return s.adviceAfterProviderError(req, err, fallback, info)
	}

	advice, replaced, err := ResolveAdvice(resp.Text, fallback, s.policy)
	if err != nil {
		reason := "provider_" + string(llm.ReasonShapeError)
		if errors.Is(err, errAdviceParse) {
			reason = "provider_" + string(llm.ReasonParseError)
		}
		s.logger.Warn("provider output rejected",
			"user_id", req.UserID,
			"reason", reason,
			"ray_id", resp.RayID,
			"error", err,
		)
		info.Mode = model.ModeFallback
		info.ModeReason = reason
		info.Status = resp.Status
		return fallback, info, nil
	}

	info.Mode = model.ModeAI
	if s.provider.Name() == "manual" {
		info.Mode = model.ModeManual
	}
	info.Status = resp.Status
	if replaced > 0 {
		info.ModeReason = fmt.Sprintf("merged_sections:%d", replaced)
		s.logger.Info("provider sections replaced by fallback",
			"user_id", req.UserID,
			"replaced", replaced,
			"ray_id", resp.RayID,
		)
	}
	return advice, info, nil
}

// adviceAfterProviderError maps a provider failure to either a fatal error
// or a fallback result. Rate limiting and invalid requests are only fatal
// when the caller explicitly asked for regeneration.
func (s *Service) adviceAfterProviderError(req Request, err error, fallback *model.Advice, info ProviderInfo) (*model.Advice, ProviderInfo, error) {
	reason := llm.FailureReason("error")
	status := 0
	rayID := ""

	var perr *llm.ProviderError
	if errors.As(err, &perr) {
		reason = perr.Reason
		status = perr.Status
		rayID = perr.RayID
	}

	if req.Regenerate {
		switch reason {
		case llm.ReasonRateLimited:
			return nil, info, common.NewUserError("provider rate limit reached, try again later", common.ErrRateLimit)
		case llm.ReasonRequestInvalid:
			return nil, info, common.NewUserError("provider rejected the request", common.ErrInvalidRequest)
		}
	}

	s.logger.Warn("provider call failed, serving fallback advice",
		"user_id", req.UserID,
		"month", req.Month,
		"reason", string(reason),
		"status", status,
		"ray_id", rayID,
		"error", err,
	)

	info.Mode = model.ModeFallback
	info.ModeReason = "provider_" + string(reason)
	info.Status = status
	return fallback, info, nil
}

// normalize validates the month and defaults the language.
func (s *Service) normalize(req Request) (Request, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return req, common.NewUserError("user id is required", common.ErrInvalidRequest)
	}
	if _, err := time.Parse("2006-01", req.Month); err != nil {
		return req, common.NewUserError(fmt.Sprintf("invalid month %q, expected YYYY-MM", req.Month), common.ErrInvalidRequest)
	}
	if !supportedLanguages[req.Language] {
		req.Language = DefaultLanguage
	}
	return req, nil
}

func cacheKey(req Request) string {
	return req.UserID + "|" + req.Month + "|" + req.Language
}
