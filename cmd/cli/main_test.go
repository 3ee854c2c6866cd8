package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantErr    bool
	}{
		{name: "valid", start: "2024-01-01", end: "2024-01-31"},
		{name: "same day", start: "2024-01-01", end: "2024-01-01"},
		{name: "missing end", start: "2024-01-01", wantErr: true},
		{name: "bad start", start: "01.01.2024", end: "2024-01-31", wantErr: true},
		{name: "reversed", start: "2024-02-01", end: "2024-01-31", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e, err := parseDateRange(tt.start, tt.end)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, s.String())
			assert.Equal(t, tt.end, e.String())
		})
	}
}

func TestLoadFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaspi.csv")
	csv := "Дата;Назначение;Сумма\n01.01.2024;Зарплата;500000\n02.01.2024;Magnum;-15000\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	res, err := loadFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, ingest.SourceCSV, res.Source)
	assert.Len(t, res.Transactions, 2)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := loadFile(filepath.Join(t.TempDir(), "nope.csv"), "")
	assert.Error(t, err)
}

func TestLoadFile_UnreadablePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))

	res, err := loadFile(path, "")
	assert.Error(t, err)
	assert.Equal(t, ingest.HintPDFEmpty, res.Hint)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, domain.AggregateSummary{
		Income:     500000,
		Expense:    15000,
		Net:        485000,
		ByMonth:    []domain.MonthTotals{{YearMonth: "2024-01", Income: 500000, Expense: 15000}},
		ByCategory: []domain.CategoryTotal{{Category: "Продукты", Total: 15000}},
		Tips:       []string{"совет"},
	})

	out := buf.String()
	assert.Contains(t, out, "2024-01")
	assert.Contains(t, out, "Продукты")
	assert.Contains(t, out, "совет")
}

func TestPrintInsight_ShowsWarning(t *testing.T) {
	var buf bytes.Buffer
	printInsight(&buf, insight.Result{
		Source:  insight.SourceLocal,
		Warning: "AI недоступен",
		Value: domain.Insight{
			Categories: []domain.InsightCategory{{Name: "Кафе", Total: 3000, Kind: domain.KindExpense, Examples: []string{"Coffee"}}},
			Habits:     []string{"меньше кафе"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "AI недоступен")
	assert.Contains(t, out, "Кафе")
	assert.Contains(t, out, "меньше кафе")
}
