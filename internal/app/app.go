// Package app builds the shared collaborators of the binaries from config.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/spend-insight/internal/categorize"
	"github.com/dvloznov/spend-insight/internal/config"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/dvloznov/spend-insight/internal/logger"
	"github.com/rs/zerolog"
)

// NewLogger builds the root logger from the log settings.
func NewLogger(cfg config.LogConfig) zerolog.Logger {
	return logger.NewWithLevel(cfg.Level, cfg.JSON)
}

// LoadClassifier returns the override rule table when one is configured and
// the embedded table otherwise.
func LoadClassifier(cfg config.RulesConfig) (*categorize.Categorizer, error) {
	if cfg.File == "" {
		return categorize.Default(), nil
	}
	c, err := categorize.LoadFromFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("LoadClassifier: %w", err)
	}
	return c, nil
}

// NewProvider creates the remote insight provider selected by AI_PROVIDER.
// It returns nil for "none".
func NewProvider(ctx context.Context, cfg config.AIConfig) (insight.Provider, error) {
	switch cfg.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderGemini:
		p, err := insight.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model, float32(cfg.Temperature))
		if err != nil {
			return nil, fmt.Errorf("NewProvider: %w", err)
		}
		return p, nil
	default:
		// An unconfigured hub still reports what is missing through the fallback warning.
		return insight.NewHubProvider(cfg.HubBaseURL, cfg.HubAPIKey, cfg.Model, cfg.Temperature, cfg.Timeout), nil
	}
}

// NewAnalyzer wires the provider, rate limiter, circuit breaker and metrics
// into an Analyzer. metrics may be nil.
func NewAnalyzer(ctx context.Context, cfg config.AIConfig, classifier *categorize.Categorizer, metrics insight.Metrics, log zerolog.Logger) (*insight.Analyzer, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	breakerCfg := insight.DefaultBreakerConfig()
	if cfg.BreakerMaxFailures > 0 {
		breakerCfg.MaxFailures = cfg.BreakerMaxFailures
	}
	if cfg.BreakerReset > 0 {
		breakerCfg.ResetTimeout = cfg.BreakerReset
	}

	opts := []insight.Option{
		insight.WithRateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		insight.WithBreaker(insight.NewCircuitBreaker(breakerCfg)),
		insight.WithTimeout(cfg.Timeout),
		insight.WithMaxTransactions(cfg.MaxTransactions),
		insight.WithLogger(logger.Component(log, "insight")),
	}
	if classifier != nil {
		opts = append(opts, insight.WithClassifier(classifier))
	}
	if metrics != nil {
		opts = append(opts, insight.WithMetrics(metrics))
	}

	log.Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Bool("remote_enabled", provider != nil).
		Msg("Insight analyzer configured")

	return insight.NewAnalyzer(provider, opts...), nil
}
