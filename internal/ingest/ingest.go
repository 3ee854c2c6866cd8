// Package ingest turns bank exports into normalized transactions.
//
// CSV text goes through ParseRecords, ResolveHeaders and BuildTransactions.
// Statement text (usually the text layer of a PDF) goes through
// ExtractStatement. Both paths are best effort: bad rows are dropped and an
// empty result is reported as a user-facing hint rather than an error.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/google/uuid"
)

// Source identifies the input format of an import.
type Source string

const (
	SourceCSV Source = "csv"
	SourcePDF Source = "pdf"
)

// User-facing hints attached to an ImportResult.
const (
	HintNoInput       = "Загрузите CSV или PDF (текстовый, не скан)."
	HintCSVUnreadable = "Не удалось распознать CSV. Проверьте, чтобы это был именно CSV."
	HintPDFEmpty      = "Из PDF ничего не извлечено. Возможно, это скан (нужен OCR)."
	hintImported      = "Импортировано операций: %d"
)

// ImportResult is the outcome of loading one file. An empty Transactions
// slice with a Hint is a valid result, distinct from nothing being loaded.
type ImportResult struct {
	ID           string               `json:"id"`
	Source       Source               `json:"source"`
	Transactions []domain.Transaction `json:"-"`
	RowsSeen     int                  `json:"rows_seen"`
	RowsDropped  int                  `json:"rows_dropped"`
	Hint         string               `json:"hint"`
}

// Empty reports whether the import produced no transactions.
func (r ImportResult) Empty() bool {
	return len(r.Transactions) == 0
}

// ImportCSV parses delimited text into transactions.
func ImportCSV(text string) ImportResult {
	res := ImportResult{ID: uuid.New().String(), Source: SourceCSV}
	if strings.TrimSpace(text) == "" {
		res.Hint = HintNoInput
		return res
	}

	records, ok := ParseRecords(text)
	if !ok {
		res.Hint = HintCSVUnreadable
		return res
	}

	res.RowsSeen = len(records) - 1
	res.Transactions = BuildTransactions(records)
	res.RowsDropped = res.RowsSeen - len(res.Transactions)
	res.Hint = importedHint(res, HintCSVUnreadable)
	return res
}

// ImportStatementText extracts transactions from already extracted statement text.
func ImportStatementText(text string) ImportResult {
	res := ImportResult{ID: uuid.New().String(), Source: SourcePDF}
	if strings.TrimSpace(text) == "" {
		res.Hint = HintPDFEmpty
		return res
	}

	res.RowsSeen = len(splitLines(text))
	res.Transactions = ExtractStatement(text)
	SortByDate(res.Transactions)
	res.RowsDropped = res.RowsSeen - len(res.Transactions)
	res.Hint = importedHint(res, HintPDFEmpty)
	return res
}

// ImportPDF reads the text layer of a PDF and extracts statement lines from it.
// The error is only set when the document cannot be read at all; the
// returned result still carries a hint in that case.
func ImportPDF(r io.ReaderAt, size int64) (ImportResult, error) {
	text, err := ExtractPDFText(r, size)
	if err != nil {
		return ImportResult{ID: uuid.New().String(), Source: SourcePDF, Hint: HintPDFEmpty}, fmt.Errorf("ImportPDF: %w", err)
	}
	return ImportStatementText(text), nil
}

// DetectSource guesses the input format from a file name or content type.
func DetectSource(name, contentType string) Source {
	name = strings.ToLower(name)
	if strings.HasSuffix(name, ".pdf") || strings.Contains(contentType, "pdf") {
		return SourcePDF
	}
	return SourceCSV
}

func importedHint(res ImportResult, emptyHint string) string {
	if res.Empty() {
		return emptyHint
	}
	return fmt.Sprintf(hintImported, len(res.Transactions))
}
