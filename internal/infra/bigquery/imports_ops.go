package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/spend-insight/internal/logger"
)

// InsertImportWithClient records a new import with status RUNNING. DML is used
// rather than streaming so the row can be updated right away.
func InsertImportWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *ImportRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			import_id, source, gcs_uri, original_filename,
			status, hint, rows_seen, rows_dropped, transaction_count, started_ts
		)
		VALUES (
			@import_id, @source, @gcs_uri, @original_filename,
			@status, @hint, @rows_seen, @rows_dropped, @transaction_count, @started_ts
		)
	`, ds.Table(importsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "import_id", Value: row.ImportID},
		{Name: "source", Value: row.Source},
		{Name: "gcs_uri", Value: row.GCSURI},
		{Name: "original_filename", Value: row.OriginalFilename},
		{Name: "status", Value: ImportStatusRunning},
		{Name: "hint", Value: row.Hint},
		{Name: "rows_seen", Value: row.RowsSeen},
		{Name: "rows_dropped", Value: row.RowsDropped},
		{Name: "transaction_count", Value: row.TransactionCount},
		{Name: "started_ts", Value: row.StartedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertImport: %w", err)
	}
	return nil
}

// MarkImportFailedWithClient sets status=FAILED, finished_ts and error_message.
// Failures are logged rather than returned since the caller is already
// handling an error.
func MarkImportFailedWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, importID string, importErr error) {
	log := logger.FromContext(ctx)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE import_id = @import_id
	`, ds.Table(importsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: ImportStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(importErr)},
		{Name: "import_id", Value: importID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("import_id", importID).
			Msg("MarkImportFailed: update failed")
	}
}

// MarkImportSucceededWithClient sets status=SUCCESS, finished_ts and the final transaction count.
func MarkImportSucceededWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, importID string, transactionCount int) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    transaction_count = @transaction_count,
		    error_message = ""
		WHERE import_id = @import_id
	`, ds.Table(importsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: ImportStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "transaction_count", Value: int64(transactionCount)},
		{Name: "import_id", Value: importID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkImportSucceeded: %w", err)
	}
	return nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
