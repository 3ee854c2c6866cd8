package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/normalize"
	"github.com/shopspring/decimal"
)

// placeholderDescription is used when a row has no description text.
const placeholderDescription = "-"

// BuildTransactions turns parsed records (header first) into transactions
// sorted by date. Rows without a parseable date or with a zero amount are
// dropped silently.
func BuildTransactions(records [][]string) []domain.Transaction {
	if len(records) <= 1 {
		return nil
	}

	header := records[0]
	cols := ResolveHeaders(header)

	txs := make([]domain.Transaction, 0, len(records)-1)
	for _, row := range records[1:] {
		if tx, ok := parseRow(header, cols, row); ok {
			txs = append(txs, tx)
		}
	}

	SortByDate(txs)
	return txs
}

// parseRow builds one transaction, or reports false when the row must be dropped.
func parseRow(header []string, cols ColumnMap, row []string) (domain.Transaction, bool) {
	dateCol := cols.Date
	if dateCol == NotFound {
		dateCol = 0
	}
	date, ok := normalize.ParseDate(field(row, dateCol))
	if !ok {
		return domain.Transaction{}, false
	}

	descCol := cols.Description
	if descCol == NotFound {
		descCol = 1
	}
	description := field(row, descCol)
	if description == "" {
		description = placeholderDescription
	}

	amount, ok := rowAmount(cols, row)
	if !ok || amount.IsZero() {
		return domain.Transaction{}, false
	}

	return domain.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Raw:         rawFields(header, row),
	}, true
}

// rowAmount prefers the unified amount column. Without one, a nonzero credit
// is taken as is and otherwise the debit magnitude is negated.
func rowAmount(cols ColumnMap, row []string) (decimal.Decimal, bool) {
	if cols.Amount != NotFound {
		return normalize.ParseAmount(field(row, cols.Amount))
	}
	if cols.Credit == NotFound && cols.Debit == NotFound {
		return decimal.Zero, false
	}

	credit := optionalAmount(row, cols.Credit)
	if !credit.IsZero() {
		return credit, true
	}
	return optionalAmount(row, cols.Debit).Abs().Neg(), true
}

func optionalAmount(row []string, col int) decimal.Decimal {
	if col == NotFound {
		return decimal.Zero
	}
	v, ok := normalize.ParseAmount(field(row, col))
	if !ok {
		return decimal.Zero
	}
	return v
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func rawFields(header, row []string) map[string]string {
	raw := make(map[string]string, len(header))
	for i, label := range header {
		if label == "" {
			label = fmt.Sprintf("column_%d", i+1)
		}
		raw[label] = field(row, i)
	}
	return raw
}

// SortByDate orders transactions by ascending date in place.
func SortByDate(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
}

// Fingerprint identifies a transaction by date, amount and description so
// that re-importing the same statement produces the same key.
func Fingerprint(tx domain.Transaction) string {
	key := fmt.Sprintf("%s|%s|%s", tx.Date, tx.Amount.StringFixed(2), strings.ToLower(strings.TrimSpace(tx.Description)))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
