package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// InsightRunRow stores the summary and insight computed for one import.
type InsightRunRow struct {
	InsightRunID string `bigquery:"insight_run_id"` // REQUIRED
	ImportID     string `bigquery:"import_id"`      // REQUIRED

	Source    string              `bigquery:"source"`     // local | remote
	ModelName bigquery.NullString `bigquery:"model_name"` // NULLABLE
	Warning   bigquery.NullString `bigquery:"warning"`    // NULLABLE

	SummaryJSON bigquery.NullJSON `bigquery:"summary_json"` // AggregateSummary
	InsightJSON bigquery.NullJSON `bigquery:"insight_json"` // Insight

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
