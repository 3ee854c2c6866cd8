package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// InsertInsightRunWithClient inserts one insight run using DML.
func InsertInsightRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *InsightRunRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			insight_run_id, import_id, source, model_name, warning,
			summary_json, insight_json, created_ts
		)
		VALUES (
			@insight_run_id, @import_id, @source, @model_name, @warning,
			SAFE.PARSE_JSON(@summary_json), SAFE.PARSE_JSON(@insight_json), @created_ts
		)
	`, ds.Table(insightRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "insight_run_id", Value: row.InsightRunID},
		{Name: "import_id", Value: row.ImportID},
		{Name: "source", Value: row.Source},
		{Name: "model_name", Value: row.ModelName},
		{Name: "warning", Value: row.Warning},
		{Name: "summary_json", Value: row.SummaryJSON.JSONVal},
		{Name: "insight_json", Value: row.InsightJSON.JSONVal},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertInsightRun: %w", err)
	}
	return nil
}
