package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Repository is the storage used by the import pipeline and the report
// command. Implementations must be safe for concurrent use.
type Repository interface {
	InsertImport(ctx context.Context, row *ImportRow) error
	MarkImportFailed(ctx context.Context, importID string, importErr error)
	MarkImportSucceeded(ctx context.Context, importID string, transactionCount int) error

	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
	DeleteTransactionsByImport(ctx context.Context, importID string) error
	QueryTransactionsByDateRange(ctx context.Context, start, end civil.Date) ([]*TransactionRow, error)

	InsertInsightRun(ctx context.Context, row *InsightRunRow) error
	DeleteImport(ctx context.Context, importID string) error
}

// BigQueryRepository implements Repository on top of one shared client.
type BigQueryRepository struct {
	client  *bigquery.Client
	dataset Dataset
}

var _ Repository = (*BigQueryRepository)(nil)

// NewBigQueryRepository creates a repository for project and dataset.
func NewBigQueryRepository(ctx context.Context, project, dataset string) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{
		client:  client,
		dataset: Dataset{Project: project, Name: dataset},
	}, nil
}

// Client exposes the underlying client, used by the migrate command.
func (r *BigQueryRepository) Client() *bigquery.Client {
	return r.client
}

// Dataset returns the dataset the repository writes to.
func (r *BigQueryRepository) Dataset() Dataset {
	return r.dataset
}

// Close releases the client.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryRepository) InsertImport(ctx context.Context, row *ImportRow) error {
	return InsertImportWithClient(ctx, r.client, r.dataset, row)
}

func (r *BigQueryRepository) MarkImportFailed(ctx context.Context, importID string, importErr error) {
	MarkImportFailedWithClient(ctx, r.client, r.dataset, importID, importErr)
}

func (r *BigQueryRepository) MarkImportSucceeded(ctx context.Context, importID string, transactionCount int) error {
	return MarkImportSucceededWithClient(ctx, r.client, r.dataset, importID, transactionCount)
}

func (r *BigQueryRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, r.dataset, rows)
}

func (r *BigQueryRepository) DeleteTransactionsByImport(ctx context.Context, importID string) error {
	return DeleteTransactionsByImportWithClient(ctx, r.client, r.dataset, importID)
}

func (r *BigQueryRepository) QueryTransactionsByDateRange(ctx context.Context, start, end civil.Date) ([]*TransactionRow, error) {
	return QueryTransactionsByDateRangeWithClient(ctx, r.client, r.dataset, start, end)
}

func (r *BigQueryRepository) InsertInsightRun(ctx context.Context, row *InsightRunRow) error {
	return InsertInsightRunWithClient(ctx, r.client, r.dataset, row)
}

func (r *BigQueryRepository) DeleteImport(ctx context.Context, importID string) error {
	return DeleteImportWithClient(ctx, r.client, r.dataset, importID)
}
