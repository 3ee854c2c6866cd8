package bigquery

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/shopspring/decimal"
)

// Currency stored with every transaction.
const Currency = "KZT"

// Direction values.
const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

// CategoryFunc names the category of a transaction.
type CategoryFunc func(tx domain.Transaction) string

// ToTransactionRows converts the transactions of one import into rows.
func ToTransactionRows(importID string, txs []domain.Transaction, category CategoryFunc, now time.Time) ([]*TransactionRow, error) {
	rows := make([]*TransactionRow, 0, len(txs))
	for i, tx := range txs {
		row := &TransactionRow{
			TransactionID:   ingest.Fingerprint(tx),
			ImportID:        importID,
			TransactionDate: tx.Date,
			Amount:          decimalToRat(tx.Amount),
			Currency:        Currency,
			Direction:       DirectionOut,
			RawDescription:  tx.Description,
			CreatedTS:       now,
		}
		if tx.IsIncome() {
			row.Direction = DirectionIn
		}
		if category != nil {
			row.CategoryName = category(tx)
		}
		if tx.Kind != "" {
			row.StatementKind = bigquery.NullString{StringVal: tx.Kind, Valid: true}
		}
		if len(tx.Raw) > 0 {
			extra, err := json.Marshal(tx.Raw)
			if err != nil {
				return nil, fmt.Errorf("ToTransactionRows: row %d: marshal raw fields: %w", i, err)
			}
			row.Extra = bigquery.NullJSON{JSONVal: string(extra), Valid: true}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ToTransactions converts stored rows back into domain transactions.
func ToTransactions(rows []*TransactionRow) ([]domain.Transaction, error) {
	txs := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		tx := domain.Transaction{
			Date:        r.TransactionDate,
			Description: r.RawDescription,
			Amount:      ratToDecimal(r.Amount),
		}
		if r.StatementKind.Valid {
			tx.Kind = r.StatementKind.StringVal
		}
		if r.Extra.Valid && r.Extra.JSONVal != "" {
			if err := json.Unmarshal([]byte(r.Extra.JSONVal), &tx.Raw); err != nil {
				return nil, fmt.Errorf("ToTransactions: %s: decode extra: %w", r.TransactionID, err)
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// ToInsightRunRow builds the insight_runs row for an import.
func ToInsightRunRow(runID, importID, source, model, warning string, summary domain.AggregateSummary, insight domain.Insight, now time.Time) (*InsightRunRow, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("ToInsightRunRow: marshal summary: %w", err)
	}
	insightJSON, err := json.Marshal(insight)
	if err != nil {
		return nil, fmt.Errorf("ToInsightRunRow: marshal insight: %w", err)
	}

	return &InsightRunRow{
		InsightRunID: runID,
		ImportID:     importID,
		Source:       source,
		ModelName:    bigquery.NullString{StringVal: model, Valid: model != ""},
		Warning:      bigquery.NullString{StringVal: warning, Valid: warning != ""},
		SummaryJSON:  bigquery.NullJSON{JSONVal: string(summaryJSON), Valid: true},
		InsightJSON:  bigquery.NullJSON{JSONVal: string(insightJSON), Valid: true},
		CreatedTS:    now,
	}, nil
}

// NUMERIC columns are read and written as *big.Rat.
func decimalToRat(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(r.Num(), 0).DivRound(decimal.NewFromBigInt(r.Denom(), 0), 2)
}
