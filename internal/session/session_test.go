package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/spend-insight/internal/categorize"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "date,description,amount\n2024-01-05,Magnum Grocery,-15000\n2024-01-07,Salary,300000"

func TestSession_Lifecycle(t *testing.T) {
	s := New()
	assert.Equal(t, StateNoData, s.State)
	assert.ErrorIs(t, s.ApplyInsight(insight.Result{Source: insight.SourceLocal}), ErrNotLoaded)

	s.Load(ingest.ImportCSV(sampleCSV), categorize.Default())
	require.Equal(t, StateLoaded, s.State)
	assert.Len(t, s.Transactions, 2)
	assert.Equal(t, int64(285000), s.Summary.Net)

	require.NoError(t, s.ApplyInsight(insight.Result{Source: insight.SourceLocal}))
	assert.Equal(t, StateLocalInsight, s.State)

	require.NoError(t, s.Reanalyze())
	assert.Equal(t, StateLoaded, s.State)
	assert.Nil(t, s.Insight)

	require.NoError(t, s.ApplyInsight(insight.Result{Source: insight.SourceRemote}))
	assert.Equal(t, StateRemoteInsight, s.State)
}

func TestSession_LoadResetsInsight(t *testing.T) {
	s := New()
	s.Load(ingest.ImportCSV(sampleCSV), categorize.Default())
	require.NoError(t, s.ApplyInsight(insight.Result{Source: insight.SourceRemote}))

	s.Load(ingest.ImportCSV("date,description,amount\n2024-02-01,Bolt,-1000"), categorize.Default())

	assert.Equal(t, StateLoaded, s.State)
	assert.Nil(t, s.Insight)
	assert.Len(t, s.Transactions, 1)
	assert.Equal(t, int64(1000), s.Summary.Expense)
}

func TestSession_LoadEmptyImport(t *testing.T) {
	s := New()
	s.Load(ingest.ImportCSV(sampleCSV), categorize.Default())

	s.Load(ingest.ImportCSV("just one line"), categorize.Default())

	assert.Equal(t, StateEmpty, s.State)
	assert.NotEqual(t, New().State, s.State)
	assert.Equal(t, ingest.HintCSVUnreadable, s.Hint)
	assert.Empty(t, s.Transactions)
	assert.ErrorIs(t, s.Reanalyze(), ErrNoTransactions)
	assert.ErrorIs(t, s.ApplyInsight(insight.Result{Source: insight.SourceLocal}), ErrNoTransactions)
}

func TestSession_InsightGate(t *testing.T) {
	tests := []struct {
		name      string
		load      func(s *Session)
		wantState State
		wantErr   error
	}{
		{
			name:      "fresh session",
			load:      func(*Session) {},
			wantState: StateNoData,
			wantErr:   ErrNotLoaded,
		},
		{
			name: "empty import",
			load: func(s *Session) {
				s.Load(ingest.ImportCSV(""), categorize.Default())
			},
			wantState: StateEmpty,
			wantErr:   ErrNoTransactions,
		},
		{
			name: "loaded import",
			load: func(s *Session) {
				s.Load(ingest.ImportCSV(sampleCSV), categorize.Default())
			},
			wantState: StateLoaded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.load(s)
			assert.Equal(t, tt.wantState, s.State)

			err := s.ApplyInsight(insight.Result{Source: insight.SourceLocal})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantState, s.State)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSession_EmptySummaryShape(t *testing.T) {
	s := New()
	s.Load(ingest.ImportCSV("just one line"), categorize.Default())

	require.NotNil(t, s.Summary.ByMonth)
	require.NotNil(t, s.Summary.ByCategory)
	require.NotNil(t, s.Summary.Tips)

	raw, err := json.Marshal(s.Summary)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"byMonth":[]`)
	assert.Contains(t, string(raw), `"byCategory":[]`)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	s := New()
	s.Load(ingest.ImportCSV(sampleCSV), categorize.Default())
	require.NoError(t, st.Save(ctx, s))

	got, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	got.State = StateNoData

	again, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, again.State, "Get must return a copy")

	updated, err := st.Update(ctx, s.ID, func(s *Session) error {
		return s.ApplyInsight(insight.Result{Source: insight.SourceLocal})
	})
	require.NoError(t, err)
	assert.Equal(t, StateLocalInsight, updated.State)

	_, err = st.Update(ctx, s.ID, func(*Session) error { return errors.New("boom") })
	require.Error(t, err)
	still, _ := st.Get(ctx, s.ID)
	assert.Equal(t, StateLocalInsight, still.State)

	_, err = st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	old := New()
	old.UpdatedAt = time.Now().Add(-2 * time.Hour)
	fresh := New()
	require.NoError(t, st.Save(ctx, old))
	require.NoError(t, st.Save(ctx, fresh))

	assert.Equal(t, 1, st.Prune(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, st.Len())
}
