package handlers

import (
	"net/http"

	"github.com/dvloznov/spend-insight/internal/api/middleware"
	"github.com/dvloznov/spend-insight/internal/session"
)

// Health handles GET /health
func Health(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": sessions.Len(),
		})
	}
}
