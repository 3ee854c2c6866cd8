package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dvloznov/spend-insight/internal/app"
	"github.com/dvloznov/spend-insight/internal/config"
	"github.com/dvloznov/spend-insight/internal/gcsuploader"
	infraBQ "github.com/dvloznov/spend-insight/internal/infra/bigquery"
	"github.com/dvloznov/spend-insight/internal/jobs"
	"github.com/dvloznov/spend-insight/internal/jobs/inmemory"
	"github.com/dvloznov/spend-insight/internal/logger"
	"github.com/dvloznov/spend-insight/internal/pipeline"
)

// The worker imports a batch of gs:// URIs given as arguments or one per
// line on stdin, then exits once every job is completed or failed.
func main() {
	var (
		workers = flag.Int("workers", 5, "number of concurrent imports")
		format  = flag.String("format", "", "force csv or pdf instead of detecting from the object name")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := app.NewLogger(cfg.Log)

	uris, err := collectURIs(flag.Args())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read URIs")
	}
	if len(uris) == 0 {
		fmt.Fprintln(os.Stderr, "usage: worker [-workers N] [-format csv|pdf] gs://bucket/object ... (or URIs on stdin)")
		os.Exit(2)
	}
	if cfg.Storage.ProjectID == "" {
		log.Fatal().Msg("GCP_PROJECT is required")
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	classifier, err := app.LoadClassifier(cfg.Rules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

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

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	wg.Add(len(uris))

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(uris), jobStore,
		inmemory.WithWorkers(*workers),
		inmemory.WithObserver(func(job jobs.ImportStatementJob) {
			if job.Status == jobs.JobStatusFailed {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			wg.Done()
		}),
	)

	handler := pipeline.NewJobHandler(pipeline.Deps{Storage: storage, Repo: repo, Classifier: classifier}, nil, logger.Component(log, "worker"))
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	for _, uri := range uris {
		job := &jobs.ImportStatementJob{GCSURI: uri, Format: *format}
		if err := jobQueue.PublishImportStatement(ctx, job); err != nil {
			log.Fatal().Err(err).Str("gcs_uri", uri).Msg("Failed to enqueue import")
		}
	}
	log.Info().Int("jobs", len(uris)).Msg("Worker started, waiting for jobs...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Interrupted, waiting for in-flight imports")
	}

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	list, _ := jobStore.ListJobs(shutdownCtx, jobs.JobFilter{})
	for _, job := range list {
		log.Info().
			Str("gcs_uri", job.GCSURI).
			Str("import_id", job.ImportID).
			Str("status", string(job.Status)).
			Int("transactions", job.Transactions).
			Str("error", job.Error).
			Msg("Import result")
	}

	mu.Lock()
	defer mu.Unlock()
	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Worker finished with failures")
		os.Exit(1)
	}
	log.Info().Msg("Worker finished")
}

func collectURIs(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return nil, nil
	}

	var uris []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			uris = append(uris, line)
		}
	}
	return uris, scanner.Err()
}
