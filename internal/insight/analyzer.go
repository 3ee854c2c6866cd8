package insight

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/categorize"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Mode selects how an insight is produced.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode maps a query value onto a Mode. Anything but "remote" (or "ai")
// is local.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remote", "ai":
		return ModeRemote
	default:
		return ModeLocal
	}
}

// Source records which engine produced a Result.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// FallbackWarning is shown when a remote analysis was replaced by the local one.
const FallbackWarning = "AI недоступен • применён локальный анализ (%s)"

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 15 * time.Second

// Result is an Insight together with where it came from.
type Result struct {
	Value   domain.Insight `json:"insight"`
	Source  Source         `json:"source"`
	Warning string         `json:"warning,omitempty"`
}

// Metrics receives analyzer observations.
type Metrics interface {
	RecordInsight(source string)
	RecordRemoteFailure(reason string)
	ObserveRemoteLatency(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordInsight(string)                {}
func (nopMetrics) RecordRemoteFailure(string)          {}
func (nopMetrics) ObserveRemoteLatency(time.Duration) {}

// Analyzer produces insights, trying a remote provider when asked and
// falling back to the local heuristics on any failure.
type Analyzer struct {
	provider   Provider
	classifier aggregate.Classifier
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
	timeout    time.Duration
	maxTxs     int
	validate   *validator.Validate
	metrics    Metrics
	log        zerolog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRateLimit allows perMinute remote calls with the given burst.
func WithRateLimit(perMinute, burst int) Option {
	return func(a *Analyzer) {
		if perMinute <= 0 {
			a.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	}
}

// WithBreaker installs a circuit breaker in front of the provider.
func WithBreaker(cb *CircuitBreaker) Option {
	return func(a *Analyzer) { a.breaker = cb }
}

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithMaxTransactions limits how many recent transactions are sent remotely.
func WithMaxTransactions(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxTxs = n
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithClassifier replaces the category rules used by the local fallback.
func WithClassifier(c aggregate.Classifier) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.classifier = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// NewAnalyzer creates an Analyzer. provider may be nil, in which case every
// remote request falls back with ErrRemoteUnavailable.
func NewAnalyzer(provider Provider, opts ...Option) *Analyzer {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	a := &Analyzer{
		provider:   provider,
		classifier: categorize.Default(),
		timeout:    DefaultTimeout,
		maxTxs:     DefaultMaxTransactions,
		validate:   v,
		metrics:    nopMetrics{},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns an insight for txs. It never fails: remote problems are
// reported through Result.Warning with the local insight as the value.
func (a *Analyzer) Analyze(ctx context.Context, txs []domain.Transaction, mode Mode) Result {
	if mode != ModeRemote || len(txs) == 0 {
		return a.local(txs, "")
	}

	start := time.Now()
	insight, err := a.remote(ctx, txs)
	if err != nil {
		reason := failureReason(err)
		a.metrics.RecordRemoteFailure(reason)
		a.log.Warn().Err(err).Str("reason", reason).Int("transactions", len(txs)).Msg("remote insight failed, using local analysis")
		return a.local(txs, fmt.Sprintf(FallbackWarning, err.Error()))
	}
	a.metrics.ObserveRemoteLatency(time.Since(start))
	a.metrics.RecordInsight(string(SourceRemote))

	a.log.Info().
		Int("transactions", len(txs)).
		Int("categories", len(insight.Categories)).
		Dur("latency", time.Since(start)).
		Msg("remote insight produced")

	return Result{Value: insight, Source: SourceRemote}
}

func (a *Analyzer) local(txs []domain.Transaction, warning string) Result {
	a.metrics.RecordInsight(string(SourceLocal))
	return Result{Value: LocalWith(a.classifier, txs), Source: SourceLocal, Warning: warning}
}

func (a *Analyzer) remote(ctx context.Context, txs []domain.Transaction) (domain.Insight, error) {
	if a.provider == nil {
		return domain.Insight{}, ErrRemoteUnavailable
	}
	if a.breaker != nil && !a.breaker.Allow() {
		return domain.Insight{}, ErrCircuitOpen
	}
	if a.limiter != nil && !a.limiter.Allow() {
		return domain.Insight{}, ErrRateLimited
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	insight, err := a.provider.Insight(callCtx, Compact(txs, a.maxTxs))
	if err == nil {
		err = a.check(&insight)
	}

	if a.breaker != nil {
		if err != nil {
			a.breaker.RecordFailure()
		} else {
			a.breaker.RecordSuccess()
		}
	}
	return insight, err
}

// check trims examples to the display limit and validates the payload shape.
func (a *Analyzer) check(insight *domain.Insight) error {
	for i := range insight.Categories {
		if len(insight.Categories[i].Examples) > maxExamples {
			insight.Categories[i].Examples = insight.Categories[i].Examples[:maxExamples]
		}
	}
	if err := a.validate.Struct(insight); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInsight, err)
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrRemoteUnavailable):
		return "unavailable"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidInsight):
		return "invalid_payload"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "upstream"
	}
}
