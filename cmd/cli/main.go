package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/app"
	"github.com/dvloznov/spend-insight/internal/chart"
	"github.com/dvloznov/spend-insight/internal/config"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/gcsuploader"
	infraBQ "github.com/dvloznov/spend-insight/internal/infra/bigquery"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/dvloznov/spend-insight/internal/logger"
	"github.com/dvloznov/spend-insight/internal/notionsync"
	"github.com/dvloznov/spend-insight/internal/pipeline"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := app.NewLogger(cfg.Log)

	args := os.Args[2:]
	switch os.Args[1] {
	case "import":
		runImport(cfg, log, args)
	case "analyze":
		runAnalyze(cfg, log, args)
	case "chart":
		runChart(cfg, log, args)
	case "upload":
		runUpload(cfg, log, args)
	case "ingest":
		runIngest(cfg, log, args)
	case "report":
		runReport(cfg, log, args)
	case "notion-sync":
		runNotionSync(cfg, log, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Spend Insight CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import       Load a local CSV or PDF and print the summary")
	fmt.Println("  analyze      Print the category insight for a local file")
	fmt.Println("  chart        Write the expense pie or monthly chart as PNG")
	fmt.Println("  upload       Upload a statement file to GCS")
	fmt.Println("  ingest       Import a gs:// statement into BigQuery")
	fmt.Println("  report       Summarize stored transactions for a date range")
	fmt.Println("  notion-sync  Upsert monthly totals into a Notion database")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// loadFile imports a local statement, picking the parser from the extension
// unless format forces one.
func loadFile(path, format string) (ingest.ImportResult, error) {
	src := ingest.Source(strings.ToLower(format))
	if src == "" {
		src = ingest.DetectSource(path, "")
	}

	if src == ingest.SourcePDF {
		text, err := ingest.ExtractPDFFile(path)
		if err != nil {
			return ingest.ImportResult{Source: ingest.SourcePDF, Hint: ingest.HintPDFEmpty}, fmt.Errorf("loadFile: %w", err)
		}
		return ingest.ImportStatementText(text), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.ImportResult{}, fmt.Errorf("loadFile: %w", err)
	}
	return ingest.ImportCSV(string(data)), nil
}

// parseDateRange parses inclusive YYYY-MM-DD bounds.
func parseDateRange(start, end string) (civil.Date, civil.Date, error) {
	if start == "" || end == "" {
		return civil.Date{}, civil.Date{}, errors.New("both --start-date and --end-date are required")
	}
	s, err := civil.ParseDate(start)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid start-date %q, expected YYYY-MM-DD", start)
	}
	e, err := civil.ParseDate(end)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid end-date %q, expected YYYY-MM-DD", end)
	}
	if e.Before(s) {
		return civil.Date{}, civil.Date{}, errors.New("end-date must not be before start-date")
	}
	return s, e, nil
}

func mustLoad(log zerolog.Logger, path, format string) ingest.ImportResult {
	if path == "" {
		log.Fatal().Msg("Error: --file is required")
	}
	res, err := loadFile(path, format)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read statement")
	}
	return res
}

func runImport(cfg config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "Path to a CSV or PDF statement")
	format := fs.String("format", "", "Force csv or pdf")
	fs.Parse(args)

	classifier, err := app.LoadClassifier(cfg.Rules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	res := mustLoad(log, *file, *format)
	printImport(os.Stdout, res)
	if res.Empty() {
		return
	}
	printSummary(os.Stdout, aggregate.SummarizeWith(classifier, res.Transactions))
}

func runAnalyze(cfg config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fs.String("file", "", "Path to a CSV or PDF statement")
	format := fs.String("format", "", "Force csv or pdf")
	ai := fs.Bool("ai", false, "Ask the remote provider, falling back to local analysis")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	classifier, err := app.LoadClassifier(cfg.Rules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}
	analyzer, err := app.NewAnalyzer(ctx, cfg.AI, classifier, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analyzer")
	}

	res := mustLoad(log, *file, *format)
	if res.Empty() {
		printImport(os.Stdout, res)
		return
	}

	mode := insight.ModeLocal
	if *ai {
		mode = insight.ModeRemote
	}
	printInsight(os.Stdout, analyzer.Analyze(ctx, res.Transactions, mode))
}

func runChart(cfg config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("chart", flag.ExitOnError)
	file := fs.String("file", "", "Path to a CSV or PDF statement")
	format := fs.String("format", "", "Force csv or pdf")
	kind := fs.String("kind", "pie", "pie or monthly")
	out := fs.String("out", "chart.png", "Output PNG path")
	fs.Parse(args)

	classifier, err := app.LoadClassifier(cfg.Rules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	res := mustLoad(log, *file, *format)
	summary := aggregate.SummarizeWith(classifier, res.Transactions)

	var png []byte
	switch *kind {
	case "monthly":
		png, err = chart.RenderMonthly(summary.ByMonth)
	case "pie":
		png, err = chart.RenderPie(chart.PieSlices(summary, chart.DefaultSlices))
	default:
		log.Fatal().Str("kind", *kind).Msg("Error: --kind must be pie or monthly")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render chart")
	}

	if err := os.WriteFile(*out, png, 0o644); err != nil {
		log.Fatal().Err(err).Str("out", *out).Msg("Failed to write chart")
	}
	green.Printf("Chart written to %s\n", *out)
}

func runUpload(cfg config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucket := fs.String("bucket", cfg.Storage.Bucket, "GCS bucket name")
	object := fs.String("object", "", "Object name (defaults to statements/YYYY/MM/<uuid>-<file>)")
	file := fs.String("file", "", "Path to a local statement")
	fs.Parse(args)

	if *bucket == "" || *file == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}
	if *object == "" {
		*object = gcsuploader.ObjectName(filepath.Base(*file), time.Now())
	}

	ctx := logger.WithContext(context.Background(), log)

	svc, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer svc.Close()

	uri, err := svc.UploadFile(ctx, *bucket, *object, *file)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
	green.Printf("Uploaded %s to %s\n", *file, uri)
}

func runIngest(cfg config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	gcsURI := fs.String("gcs-uri", "", "gs:// URI of the statement")
	format := fs.String("format", "", "Force csv or pdf")
	fs.Parse(args)

	if *gcsURI == "" {
		log.Fatal().Msg("Error: --gcs-uri is required")
	}
	if !cfg.Storage.StorageConfigured() {
		log.Fatal().Msg("Error: GCP_PROJECT_ID and GCS_BUCKET must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	classifier, err := app.LoadClassifier(cfg.Rules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	repo, err := infraBQ.NewBigQueryRepository(ctx, cfg.Storage.ProjectID, cfg.Storage.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer storage.Close()

	state, err := pipeline.IngestStatementFromGCSWithDeps(ctx, *gcsURI, *format, pipeline.Deps{
		Storage:    storage,
		Repo:       repo,
		Classifier: classifier,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	printImport(os.Stdout, state.Result)
	fmt.Printf("Import ID: %s\n", state.ImportID())
}

func runReport(cfg config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	start := fs.String("start-date", "", "Start date in YYYY-MM-DD format")
	end := fs.String("end-date", "", "End date in YYYY-MM-DD format")
	fs.Parse(args)

	summary := querySummary(cfg, log, *start, *end)
	printSummary(os.Stdout, summary)
}

func runNotionSync(cfg config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("notion-sync", flag.ExitOnError)
	start := fs.String("start-date", "", "Start date in YYYY-MM-DD format")
	end := fs.String("end-date", "", "End date in YYYY-MM-DD format")
	token := fs.String("notion-token", cfg.Notion.Token, "Notion API token")
	dbID := fs.String("notion-db-id", cfg.Notion.SummaryDatabaseID, "Notion summary database ID")
	dryRun := fs.Bool("dry-run", false, "Print the months without writing to Notion")
	fs.Parse(args)

	if *token == "" || *dbID == "" {
		log.Fatal().Msg("Error: --notion-token and --notion-db-id are required")
	}

	summary := querySummary(cfg, log, *start, *end)
	if *dryRun {
		printSummary(os.Stdout, summary)
		yellow.Printf("[DRY RUN] %d months would be synced\n", len(summary.ByMonth))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	res, err := notionsync.SyncMonthlySummary(ctx, notionsync.NewNotionClient(*token), *dbID, summary)
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}
	green.Printf("Notion: %d created, %d updated", res.Created, res.Updated)
	if res.Failed > 0 {
		red.Printf(", %d failed", res.Failed)
	}
	fmt.Println()
}

// querySummary reads the deduplicated transactions of a date range from
// BigQuery and folds them into a summary.
func querySummary(cfg config.Config, log zerolog.Logger, start, end string) domain.AggregateSummary {
	from, to, err := parseDateRange(start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid date range")
	}
	if cfg.Storage.ProjectID == "" {
		log.Fatal().Msg("Error: GCP_PROJECT_ID must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	classifier, err := app.LoadClassifier(cfg.Rules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	repo, err := infraBQ.NewBigQueryRepository(ctx, cfg.Storage.ProjectID, cfg.Storage.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	rows, err := repo.QueryTransactionsByDateRange(ctx, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}
	txs, err := infraBQ.ToTransactions(rows)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to convert transactions")
	}

	log.Info().Str("start_date", start).Str("end_date", end).Int("transactions", len(txs)).Msg("Loaded stored transactions")
	return aggregate.SummarizeWith(classifier, txs)
}
