package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/categorize"
	"github.com/dvloznov/spend-insight/internal/domain"
	infra "github.com/dvloznov/spend-insight/internal/infra/bigquery"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/google/uuid"
)

// PipelineStep represents a single step in the import pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	GCSURI   string
	Format   string // csv | pdf, empty to detect from the file name
	Filename string
	Data     []byte

	Result   ingest.ImportResult
	Recorded bool // an imports row exists and can be marked FAILED

	Summary domain.AggregateSummary
	Insight domain.Insight
}

// ImportID returns the ID of the import being processed.
func (s *PipelineState) ImportID() string {
	return s.Result.ID
}

// FetchStatementStep downloads the statement from GCS.
type FetchStatementStep struct {
	Storage StorageService
}

func (s *FetchStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.Storage.FetchFromGCS(ctx, state.GCSURI)
	if err != nil {
		return fmt.Errorf("fetch statement: %w", err)
	}
	state.Data = data
	state.Filename = s.Storage.ExtractFilenameFromGCSURI(state.GCSURI)
	return nil
}

// ExtractTransactionsStep turns the downloaded bytes into transactions.
type ExtractTransactionsStep struct{}

func (s *ExtractTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	source := ingest.Source(state.Format)
	if source != ingest.SourceCSV && source != ingest.SourcePDF {
		source = ingest.DetectSource(state.Filename, "")
	}

	switch source {
	case ingest.SourcePDF:
		res, err := ingest.ImportPDF(bytes.NewReader(state.Data), int64(len(state.Data)))
		if err != nil {
			return fmt.Errorf("extract transactions: %w", err)
		}
		state.Result = res
	default:
		state.Result = ingest.ImportCSV(string(state.Data))
	}
	return nil
}

// RecordImportStep writes the imports row with status RUNNING.
type RecordImportStep struct {
	Repo Repository
}

func (s *RecordImportStep) Execute(ctx context.Context, state *PipelineState) error {
	res := state.Result
	row := &infra.ImportRow{
		ImportID:         res.ID,
		Source:           string(res.Source),
		GCSURI:           state.GCSURI,
		OriginalFilename: state.Filename,
		Hint:             res.Hint,
		RowsSeen:         int64(res.RowsSeen),
		RowsDropped:      int64(res.RowsDropped),
		TransactionCount: int64(len(res.Transactions)),
		StartedTS:        time.Now(),
	}
	if err := s.Repo.InsertImport(ctx, row); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	state.Recorded = true
	return nil
}

// InsertTransactionsStep stores the categorized transactions.
type InsertTransactionsStep struct {
	Repo       Repository
	Classifier aggregate.Classifier
}

func (s *InsertTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	category := func(tx domain.Transaction) string {
		if tx.IsIncome() {
			return categorize.IncomeLabel
		}
		return s.Classifier.Classify(tx.Description)
	}

	rows, err := infra.ToTransactionRows(state.ImportID(), state.Result.Transactions, category, time.Now())
	if err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	if err := s.Repo.InsertTransactions(ctx, rows); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	return nil
}

// StoreInsightStep computes the summary and the local insight and stores them.
type StoreInsightStep struct {
	Repo       Repository
	Classifier aggregate.Classifier
}

func (s *StoreInsightStep) Execute(ctx context.Context, state *PipelineState) error {
	txs := state.Result.Transactions
	state.Summary = aggregate.SummarizeWith(s.Classifier, txs)
	state.Insight = insight.LocalWith(s.Classifier, txs)

	row, err := infra.ToInsightRunRow(uuid.NewString(), state.ImportID(), string(insight.SourceLocal), "", "", state.Summary, state.Insight, time.Now())
	if err != nil {
		return fmt.Errorf("store insight: %w", err)
	}
	if err := s.Repo.InsertInsightRun(ctx, row); err != nil {
		return fmt.Errorf("store insight: %w", err)
	}
	return nil
}

// MarkSuccessStep marks the import as SUCCESS.
type MarkSuccessStep struct {
	Repo Repository
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Repo.MarkImportSucceeded(ctx, state.ImportID(), len(state.Result.Transactions)); err != nil {
		return fmt.Errorf("mark success: %w", err)
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps   []PipelineStep
	onError func(ctx context.Context, state *PipelineState, err error)
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			err = fmt.Errorf("pipeline step %d failed: %w", i+1, err)
			if p.onError != nil {
				p.onError(ctx, state, err)
			}
			return err
		}
	}
	return nil
}

// NewStatementImportPipeline creates the standard six-step import pipeline.
// Once the import row is recorded, a failing step marks it FAILED.
func NewStatementImportPipeline(deps Deps) *Pipeline {
	classifier := deps.Classifier
	if classifier == nil {
		classifier = categorize.Default()
	}

	p := NewPipeline(
		&FetchStatementStep{Storage: deps.Storage},
		&ExtractTransactionsStep{},
		&RecordImportStep{Repo: deps.Repo},
		&InsertTransactionsStep{Repo: deps.Repo, Classifier: classifier},
		&StoreInsightStep{Repo: deps.Repo, Classifier: classifier},
		&MarkSuccessStep{Repo: deps.Repo},
	)
	p.onError = func(ctx context.Context, state *PipelineState, err error) {
		if state.Recorded {
			deps.Repo.MarkImportFailed(ctx, state.ImportID(), err)
		}
	}
	return p
}
