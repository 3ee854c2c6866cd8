package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// DeleteImportWithClient deletes an import and everything derived from it.
// Children go first so a partial failure never leaves orphans behind.
func DeleteImportWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, importID string) error {
	if err := DeleteTransactionsByImportWithClient(ctx, client, ds, importID); err != nil {
		return fmt.Errorf("deleting transactions: %w", err)
	}

	if err := deleteByImport(ctx, client, ds, insightRunsTable, importID); err != nil {
		return fmt.Errorf("deleting insight runs: %w", err)
	}

	if err := deleteByImport(ctx, client, ds, importsTable, importID); err != nil {
		return fmt.Errorf("deleting import: %w", err)
	}

	return nil
}

// DeleteTransactionsByImportWithClient removes the transactions of one import.
func DeleteTransactionsByImportWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, importID string) error {
	return deleteByImport(ctx, client, ds, transactionsTable, importID)
}

func deleteByImport(ctx context.Context, client *bigquery.Client, ds Dataset, table, importID string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE import_id = @import_id
	`, ds.Table(table)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "import_id", Value: importID},
	}

	return runDML(ctx, q)
}
