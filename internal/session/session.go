// Package session tracks one analysis session: the loaded transactions, their
// summary and the insight most recently applied to them.
package session

import (
	"errors"
	"time"

	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/google/uuid"
)

// State is the lifecycle position of a Session.
type State string

const (
	StateNoData        State = "no_data"
	StateEmpty         State = "empty" // a file was loaded but yielded no transactions
	StateLoaded        State = "loaded"
	StateLocalInsight  State = "local_insight"
	StateRemoteInsight State = "remote_insight"
)

var (
	// ErrNotLoaded is returned when an insight is applied before any transactions were loaded.
	ErrNotLoaded = errors.New("session has no transactions loaded")
	// ErrNoTransactions is returned when the loaded import produced no transactions.
	ErrNoTransactions = errors.New("loaded import has no transactions")
	// ErrNotFound is returned by Store for unknown session IDs.
	ErrNotFound = errors.New("session not found")
)

// Session is the state owned by one caller. Transactions are replaced
// wholesale on Load and never mutated in place.
type Session struct {
	ID           string                  `json:"session_id"`
	State        State                   `json:"state"`
	ImportID     string                  `json:"import_id,omitempty"`
	Source       ingest.Source           `json:"source,omitempty"`
	Hint         string                  `json:"hint,omitempty"`
	Transactions []domain.Transaction    `json:"-"`
	Summary      domain.AggregateSummary `json:"summary"`
	Insight      *insight.Result         `json:"insight,omitempty"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// New creates an empty session.
func New() *Session {
	return &Session{ID: uuid.New().String(), State: StateNoData, UpdatedAt: time.Now().UTC()}
}

// Load replaces the transactions with those of res and discards any insight.
// An import without transactions moves the session to Empty with the hint kept.
func (s *Session) Load(res ingest.ImportResult, c aggregate.Classifier) {
	s.ImportID = res.ID
	s.Source = res.Source
	s.Hint = res.Hint
	s.Transactions = res.Transactions
	s.Insight = nil
	s.UpdatedAt = time.Now().UTC()

	s.Summary = aggregate.SummarizeWith(c, res.Transactions)
	if res.Empty() {
		s.State = StateEmpty
		return
	}
	s.State = StateLoaded
}

// analyzable reports why the session cannot take an insight, if it cannot.
func (s *Session) analyzable() error {
	switch s.State {
	case StateNoData:
		return ErrNotLoaded
	case StateEmpty:
		return ErrNoTransactions
	}
	return nil
}

// ApplyInsight records r as the current insight.
func (s *Session) ApplyInsight(r insight.Result) error {
	if err := s.analyzable(); err != nil {
		return err
	}

	s.Insight = &r
	s.UpdatedAt = time.Now().UTC()
	if r.Source == insight.SourceRemote {
		s.State = StateRemoteInsight
	} else {
		s.State = StateLocalInsight
	}
	return nil
}

// Reanalyze drops the current insight and returns to Loaded.
func (s *Session) Reanalyze() error {
	if err := s.analyzable(); err != nil {
		return err
	}
	s.Insight = nil
	s.State = StateLoaded
	s.UpdatedAt = time.Now().UTC()
	return nil
}
