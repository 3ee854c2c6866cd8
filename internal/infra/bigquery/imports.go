package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Import statuses.
const (
	ImportStatusRunning = "RUNNING"
	ImportStatusSuccess = "SUCCESS"
	ImportStatusFailed  = "FAILED"
)

// ImportRow is one file import attempt.
type ImportRow struct {
	ImportID         string `bigquery:"import_id"`         // REQUIRED
	Source           string `bigquery:"source"`            // REQUIRED csv|pdf
	GCSURI           string `bigquery:"gcs_uri"`           // NULLABLE
	OriginalFilename string `bigquery:"original_filename"` // NULLABLE

	Status       string `bigquery:"status"`        // REQUIRED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE
	Hint         string `bigquery:"hint"`          // NULLABLE

	RowsSeen         int64 `bigquery:"rows_seen"`
	RowsDropped      int64 `bigquery:"rows_dropped"`
	TransactionCount int64 `bigquery:"transaction_count"`

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE
}
