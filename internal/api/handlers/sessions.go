package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/spend-insight/internal/api/middleware"
	"github.com/dvloznov/spend-insight/internal/chart"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/dvloznov/spend-insight/internal/session"
	"github.com/rs/zerolog"
)

// SessionsHandler serves stored sessions, their insight and charts.
type SessionsHandler struct {
	sessions *session.Store
	analyzer Analyzer
	log      zerolog.Logger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sessions *session.Store, analyzer Analyzer, log zerolog.Logger) *SessionsHandler {
	return &SessionsHandler{sessions: sessions, analyzer: analyzer, log: log}
}

type sessionResponse struct {
	*session.Session
	TransactionCount int              `json:"transaction_count"`
	Transactions     []TransactionDTO `json:"transactions"`
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	s, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sessionResponse{
		Session:          s,
		TransactionCount: len(s.Transactions),
		Transactions:     toDTOs(s.Transactions),
	})
}

// Insight handles POST /api/sessions/{id}/insight?mode=local|remote
func (h *SessionsHandler) Insight(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	switch s.State {
	case session.StateNoData:
		middleware.WriteError(w, http.StatusConflict, "Load a statement before requesting an insight")
		return
	case session.StateEmpty:
		middleware.WriteError(w, http.StatusConflict, "The loaded statement has no transactions")
		return
	}

	// The analysis runs without holding the store lock.
	result := h.analyzer.Analyze(ctx, s.Transactions, insight.ParseMode(r.URL.Query().Get("mode")))

	updated, err := h.sessions.Update(ctx, sessionID, func(cur *session.Session) error {
		return cur.ApplyInsight(result)
	})
	switch {
	case errors.Is(err, session.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	case errors.Is(err, session.ErrNotLoaded), errors.Is(err, session.ErrNoTransactions):
		middleware.WriteError(w, http.StatusConflict, "Load a statement before requesting an insight")
		return
	case err != nil:
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to apply insight")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to apply insight")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": updated.ID,
		"state":      updated.State,
		"result":     result,
	})
}

// Chart handles GET /api/sessions/{id}/chart.png. ?kind=monthly renders
// monthly income and expense instead of the category pie.
func (h *SessionsHandler) Chart(w http.ResponseWriter, r *http.Request, sessionID string) {
	s, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	var png []byte
	if r.URL.Query().Get("kind") == "monthly" {
		if len(s.Summary.ByMonth) == 0 {
			middleware.WriteError(w, http.StatusNotFound, "No data to chart")
			return
		}
		png, err = chart.RenderMonthly(s.Summary.ByMonth)
	} else {
		slices := chart.PieSlices(s.Summary, chart.DefaultSlices)
		if len(slices) == 0 {
			middleware.WriteError(w, http.StatusNotFound, "No expenses to chart")
			return
		}
		png, err = chart.RenderPie(slices)
	}
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to render chart")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
