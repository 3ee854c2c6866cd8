package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider is a mock implementation of Provider for testing.
type mockProvider struct {
	mu          sync.Mutex
	calls       int
	lastTxs     []CompactTx
	InsightFunc func(ctx context.Context, txs []CompactTx) (domain.Insight, error)
}

func (m *mockProvider) Insight(ctx context.Context, txs []CompactTx) (domain.Insight, error) {
	m.mu.Lock()
	m.calls++
	m.lastTxs = txs
	m.mu.Unlock()
	if m.InsightFunc != nil {
		return m.InsightFunc(ctx, txs)
	}
	return domain.Insight{}, nil
}

func failing(err error) *mockProvider {
	return &mockProvider{InsightFunc: func(context.Context, []CompactTx) (domain.Insight, error) {
		return domain.Insight{}, err
	}}
}

func sampleTxs() []domain.Transaction {
	return []domain.Transaction{
		tx("2024-01-01", "Salary", "300000"),
		tx("2024-01-05", "Magnum Grocery", "-15000"),
		tx("2024-01-06", "Coffee Boom", "-4000"),
		tx("2024-01-08", "Bolt", "-2500"),
	}
}

func validInsight() domain.Insight {
	return domain.Insight{
		Categories: []domain.InsightCategory{
			{Name: "Продукты", Total: -15000, Kind: domain.KindExpense, Examples: []string{"a", "b", "c", "d", "e"}},
		},
		Habits: []string{"Готовить дома"},
	}
}

func TestAnalyze_FallbackLaw(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "network", err: errors.New("dial tcp: connection refused")},
		{name: "status", err: errors.New("hub status 500: boom")},
		{name: "payload", err: ErrInvalidInsight},
		{name: "timeout", err: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := sampleTxs()
			a := NewAnalyzer(failing(tt.err))

			got := a.Analyze(context.Background(), txs, ModeRemote)

			assert.Equal(t, SourceLocal, got.Source)
			assert.Equal(t, Local(txs), got.Value)
			assert.True(t, strings.HasPrefix(got.Warning, "AI недоступен • применён локальный анализ ("), got.Warning)
			assert.Contains(t, got.Warning, tt.err.Error())
		})
	}
}

func TestAnalyze_LocalModeSkipsProvider(t *testing.T) {
	p := &mockProvider{}
	a := NewAnalyzer(p)

	got := a.Analyze(context.Background(), sampleTxs(), ModeLocal)

	assert.Equal(t, 0, p.calls)
	assert.Equal(t, SourceLocal, got.Source)
	assert.Empty(t, got.Warning)
}

func TestAnalyze_EmptyTransactions(t *testing.T) {
	p := &mockProvider{}
	a := NewAnalyzer(p)

	got := a.Analyze(context.Background(), nil, ModeRemote)

	assert.Equal(t, 0, p.calls)
	assert.Equal(t, SourceLocal, got.Source)
	assert.Empty(t, got.Warning)
	assert.Equal(t, []string{HabitFillerLimits, HabitFillerSavings}, got.Value.Habits)
}

func TestAnalyze_RemoteSuccess(t *testing.T) {
	p := &mockProvider{InsightFunc: func(context.Context, []CompactTx) (domain.Insight, error) {
		return validInsight(), nil
	}}
	a := NewAnalyzer(p)

	got := a.Analyze(context.Background(), sampleTxs(), ModeRemote)

	require.Equal(t, SourceRemote, got.Source)
	assert.Empty(t, got.Warning)
	assert.Equal(t, []string{"a", "b", "c"}, got.Value.Categories[0].Examples)
	require.Len(t, p.lastTxs, 4)
	assert.Equal(t, CompactTx{D: "Salary", A: 300000}, p.lastTxs[0])
}

func TestAnalyze_InvalidPayloadFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		insight domain.Insight
	}{
		{name: "missing categories", insight: domain.Insight{Habits: []string{"x"}}},
		{name: "missing habits", insight: domain.Insight{Categories: []domain.InsightCategory{}}},
		{name: "bad kind", insight: domain.Insight{
			Categories: []domain.InsightCategory{{Name: "X", Kind: "other"}},
			Habits:     []string{},
		}},
		{name: "empty name", insight: domain.Insight{
			Categories: []domain.InsightCategory{{Kind: domain.KindExpense}},
			Habits:     []string{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insight := tt.insight
			p := &mockProvider{InsightFunc: func(context.Context, []CompactTx) (domain.Insight, error) {
				return insight, nil
			}}
			txs := sampleTxs()

			got := NewAnalyzer(p).Analyze(context.Background(), txs, ModeRemote)

			assert.Equal(t, SourceLocal, got.Source)
			assert.Equal(t, Local(txs), got.Value)
			assert.Contains(t, got.Warning, ErrInvalidInsight.Error())
		})
	}
}

func TestAnalyze_NoProvider(t *testing.T) {
	got := NewAnalyzer(nil).Analyze(context.Background(), sampleTxs(), ModeRemote)

	assert.Equal(t, SourceLocal, got.Source)
	assert.Contains(t, got.Warning, ErrRemoteUnavailable.Error())
}

func TestAnalyze_Timeout(t *testing.T) {
	p := &mockProvider{InsightFunc: func(ctx context.Context, _ []CompactTx) (domain.Insight, error) {
		<-ctx.Done()
		return domain.Insight{}, ctx.Err()
	}}
	a := NewAnalyzer(p, WithTimeout(10*time.Millisecond))

	got := a.Analyze(context.Background(), sampleTxs(), ModeRemote)

	assert.Equal(t, SourceLocal, got.Source)
	assert.Contains(t, got.Warning, context.DeadlineExceeded.Error())
}

func TestAnalyze_RateLimited(t *testing.T) {
	p := &mockProvider{InsightFunc: func(context.Context, []CompactTx) (domain.Insight, error) {
		return validInsight(), nil
	}}
	a := NewAnalyzer(p, WithRateLimit(1, 1))

	first := a.Analyze(context.Background(), sampleTxs(), ModeRemote)
	second := a.Analyze(context.Background(), sampleTxs(), ModeRemote)

	assert.Equal(t, SourceRemote, first.Source)
	assert.Equal(t, SourceLocal, second.Source)
	assert.Contains(t, second.Warning, ErrRateLimited.Error())
	assert.Equal(t, 1, p.calls)
}

func TestAnalyze_BreakerOpens(t *testing.T) {
	p := failing(errors.New("upstream down"))
	cb := NewCircuitBreaker(BreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	a := NewAnalyzer(p, WithBreaker(cb))

	for i := 0; i < 2; i++ {
		a.Analyze(context.Background(), sampleTxs(), ModeRemote)
	}
	got := a.Analyze(context.Background(), sampleTxs(), ModeRemote)

	assert.Equal(t, 2, p.calls)
	assert.Equal(t, BreakerOpen, cb.State())
	assert.Contains(t, got.Warning, ErrCircuitOpen.Error())
	assert.Equal(t, SourceLocal, got.Source)
}

func TestAnalyze_MaxTransactions(t *testing.T) {
	p := &mockProvider{InsightFunc: func(context.Context, []CompactTx) (domain.Insight, error) {
		return validInsight(), nil
	}}
	a := NewAnalyzer(p, WithMaxTransactions(2))

	a.Analyze(context.Background(), sampleTxs(), ModeRemote)

	assert.Equal(t, []CompactTx{{D: "Coffee Boom", A: -4000}, {D: "Bolt", A: -2500}}, p.lastTxs)
}

type recordingMetrics struct {
	sources  []string
	failures []string
	observed int
}

func (r *recordingMetrics) RecordInsight(source string)       { r.sources = append(r.sources, source) }
func (r *recordingMetrics) RecordRemoteFailure(reason string) { r.failures = append(r.failures, reason) }
func (r *recordingMetrics) ObserveRemoteLatency(time.Duration) {
	r.observed++
}

func TestAnalyze_Metrics(t *testing.T) {
	m := &recordingMetrics{}
	a := NewAnalyzer(failing(ErrInvalidInsight), WithMetrics(m))

	a.Analyze(context.Background(), sampleTxs(), ModeRemote)
	a.Analyze(context.Background(), sampleTxs(), ModeLocal)

	assert.Equal(t, []string{"local", "local"}, m.sources)
	assert.Equal(t, []string{"invalid_payload"}, m.failures)
	assert.Zero(t, m.observed)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"remote", ModeRemote},
		{"AI", ModeRemote},
		{"local", ModeLocal},
		{"", ModeLocal},
		{"whatever", ModeLocal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMode(tt.in))
		})
	}
}
