// Package api assembles the HTTP server routes.
package api

import (
	"net/http"

	"github.com/dvloznov/spend-insight/internal/api/handlers"
	"github.com/dvloznov/spend-insight/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Options are the collaborators of the router.
type Options struct {
	Spend    *handlers.SpendHandler
	Sessions *handlers.SessionsHandler
	Imports  *handlers.ImportsHandler // nil disables /api/imports
	Jobs     *handlers.JobsHandler    // nil disables /api/jobs
	Health   http.HandlerFunc
	Metrics  http.Handler // nil disables /metrics

	Observer       middleware.HTTPObserver
	AllowedOrigins []string
	MaxBodyBytes   int64
	Log            zerolog.Logger
}

// NewRouter registers all routes and wraps them in the middleware chain
// Recovery → Logger → Metrics → RequestID → CORS → MaxBody.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	if opts.Health != nil {
		mux.HandleFunc("GET /health", opts.Health)
	}
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	mux.HandleFunc("POST /api/spend/csv", opts.Spend.ImportCSV)
	mux.HandleFunc("POST /api/spend/pdf", opts.Spend.ImportPDF)
	mux.HandleFunc("POST /api/spend/pdf-text", opts.Spend.ImportPDFText)
	mux.HandleFunc("POST /api/spend/ai", opts.Spend.AnalyzeAI)
	mux.HandleFunc("POST /api/spend/local", opts.Spend.AnalyzeLocal)

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		opts.Sessions.GetSession(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("POST /api/sessions/{id}/insight", func(w http.ResponseWriter, r *http.Request) {
		opts.Sessions.Insight(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET /api/sessions/{id}/chart.png", func(w http.ResponseWriter, r *http.Request) {
		opts.Sessions.Chart(w, r, r.PathValue("id"))
	})

	if opts.Imports != nil {
		mux.HandleFunc("POST /api/imports", opts.Imports.EnqueueImport)
		mux.HandleFunc("POST /api/imports/upload", opts.Imports.UploadAndImport)
	}
	if opts.Jobs != nil {
		mux.HandleFunc("GET /api/jobs", opts.Jobs.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
			opts.Jobs.GetJob(w, r, r.PathValue("id"))
		})
	}

	chain := []middleware.Middleware{
		middleware.Recovery(opts.Log),
		middleware.Logger(opts.Log),
	}
	if opts.Observer != nil {
		chain = append(chain, middleware.Metrics(opts.Observer))
	}
	chain = append(chain,
		middleware.RequestID,
		middleware.CORS(opts.AllowedOrigins),
		middleware.MaxBody(opts.MaxBodyBytes),
	)
	return middleware.Chain(mux, chain...)
}
