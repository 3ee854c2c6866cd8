package pipeline

import (
	"context"

	infra "github.com/dvloznov/spend-insight/internal/infra/bigquery"
)

// StorageService is the part of the object store the pipeline reads from.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}

// Repository is the part of the BigQuery repository the pipeline writes to.
type Repository interface {
	InsertImport(ctx context.Context, row *infra.ImportRow) error
	MarkImportFailed(ctx context.Context, importID string, importErr error)
	MarkImportSucceeded(ctx context.Context, importID string, transactionCount int) error
	InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error
	InsertInsightRun(ctx context.Context, row *infra.InsightRunRow) error
}
