package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/spend-insight/internal/api"
	"github.com/dvloznov/spend-insight/internal/api/handlers"
	"github.com/dvloznov/spend-insight/internal/app"
	"github.com/dvloznov/spend-insight/internal/config"
	"github.com/dvloznov/spend-insight/internal/gcsuploader"
	infraBQ "github.com/dvloznov/spend-insight/internal/infra/bigquery"
	"github.com/dvloznov/spend-insight/internal/jobs"
	"github.com/dvloznov/spend-insight/internal/jobs/inmemory"
	"github.com/dvloznov/spend-insight/internal/logger"
	"github.com/dvloznov/spend-insight/internal/metrics"
	"github.com/dvloznov/spend-insight/internal/pipeline"
	"github.com/dvloznov/spend-insight/internal/session"
	"github.com/rs/zerolog"
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "HTTP server port (overrides SERVER_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log := app.NewLogger(cfg.Log)
	ctx := context.Background()

	recorder := metrics.New()

	classifier, err := app.LoadClassifier(cfg.Rules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	analyzer, err := app.NewAnalyzer(ctx, cfg.AI, classifier, recorder, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create insight analyzer")
	}

	sessions := session.NewStore()

	// Session pruning
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go pruneSessions(workerCtx, sessions, cfg.Server.SessionTTL, log)

	opts := api.Options{
		Spend:          handlers.NewSpendHandler(sessions, analyzer, classifier, recorder, cfg.Server.MaxUploadBytes, logger.Component(log, "spend")),
		Sessions:       handlers.NewSessionsHandler(sessions, analyzer, logger.Component(log, "sessions")),
		Health:         handlers.Health(sessions),
		Metrics:        recorder.Handler(),
		Observer:       recorder,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxUploadBytes,
		Log:            log,
	}

	// Async imports need both BigQuery and GCS.
	var jobQueue *inmemory.Queue
	if cfg.Storage.StorageConfigured() {
		repo, err := infraBQ.NewBigQueryRepository(ctx, cfg.Storage.ProjectID, cfg.Storage.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()

		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()

		jobStore := inmemory.NewStore()
		jobQueue = inmemory.NewQueue(100, jobStore, inmemory.WithObserver(func(job jobs.ImportStatementJob) {
			recorder.RecordJob(string(job.GetType()), string(job.Status))
		}))

		jobHandler := pipeline.NewJobHandler(pipeline.Deps{Storage: storage, Repo: repo, Classifier: classifier}, recorder, logger.Component(log, "worker"))

		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job worker")
		}

		opts.Imports = handlers.NewImportsHandler(jobQueue, storage, cfg.Storage.Bucket, logger.Component(log, "imports"))
		opts.Jobs = handlers.NewJobsHandler(jobStore, log)
	} else {
		log.Warn().Msg("GCP_PROJECT or GCS_BUCKET not set - async imports are disabled")
	}

	// Create HTTP server
	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}

	cancelWorker()

	log.Info().Msg("Server exited")
}

func pruneSessions(ctx context.Context, sessions *session.Store, ttl time.Duration, log zerolog.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessions.Prune(now.Add(-ttl)); n > 0 {
				log.Debug().Int("removed", n).Int("remaining", sessions.Len()).Msg("Pruned idle sessions")
			}
		}
	}
}
