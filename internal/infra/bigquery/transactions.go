package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRow is one stored transaction. TransactionID is the content
// fingerprint, so the same bank line imported twice has the same ID.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	ImportID      string `bigquery:"import_id"`      // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount    *big.Rat `bigquery:"amount"`    // REQUIRED NUMERIC, signed
	Currency  string   `bigquery:"currency"`  // REQUIRED
	Direction string   `bigquery:"direction"` // IN | OUT

	RawDescription string              `bigquery:"raw_description"` // REQUIRED
	CategoryName   string              `bigquery:"category_name"`   // REQUIRED
	StatementKind  bigquery.NullString `bigquery:"statement_kind"`  // NULLABLE

	CreatedTS time.Time         `bigquery:"created_ts"` // REQUIRED
	Extra     bigquery.NullJSON `bigquery:"extra"`      // NULLABLE raw columns
}
