// Package chart renders summary charts as PNG images.
package chart

import (
	"bytes"
	"fmt"

	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DefaultSlices is how many categories the pie shows.
const DefaultSlices = 8

// Slice is one pie segment.
type Slice struct {
	Category string  `json:"category"`
	Total    int64   `json:"total"`
	Percent  float64 `json:"percent"` // share of all categorized expense, 0..100
}

var palette = []drawing.Color{
	drawing.ColorFromHex("2563eb"),
	drawing.ColorFromHex("16a34a"),
	drawing.ColorFromHex("f59e0b"),
	drawing.ColorFromHex("dc2626"),
	drawing.ColorFromHex("7c3aed"),
	drawing.ColorFromHex("0891b2"),
	drawing.ColorFromHex("db2777"),
	drawing.ColorFromHex("65a30d"),
}

// PieSlices takes the n largest expense categories of summary. Percentages
// are relative to the whole category breakdown, not just the shown slices.
func PieSlices(summary domain.AggregateSummary, n int) []Slice {
	if n <= 0 {
		n = DefaultSlices
	}

	var total int64
	for _, c := range summary.ByCategory {
		total += c.Total
	}
	if total <= 0 {
		return nil
	}

	limit := min(n, len(summary.ByCategory))
	out := make([]Slice, 0, limit)
	for _, c := range summary.ByCategory[:limit] {
		if c.Total <= 0 {
			continue
		}
		out = append(out, Slice{
			Category: c.Category,
			Total:    c.Total,
			Percent:  float64(c.Total) * 100 / float64(total),
		})
	}
	return out
}

// RenderPie renders slices as a PNG pie chart.
func RenderPie(slices []Slice) ([]byte, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("need at least 1 slice, got 0")
	}

	values := make([]chart.Value, 0, len(slices))
	for i, s := range slices {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.0f%%", s.Category, s.Percent),
			Value: float64(s.Total),
			Style: chart.Style{
				FillColor:   palette[i%len(palette)],
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}

	graph := chart.PieChart{
		Title:  "Расходы по категориям",
		Width:  640,
		Height: 640,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderMonthly renders monthly expense as a PNG bar chart.
func RenderMonthly(months []domain.MonthTotals) ([]byte, error) {
	if len(months) == 0 {
		return nil, fmt.Errorf("need at least 1 month, got 0")
	}

	bars := make([]chart.Value, 0, len(months))
	var peak int64
	for _, m := range months {
		bars = append(bars, chart.Value{
			Label: m.YearMonth,
			Value: float64(m.Expense),
			Style: chart.Style{FillColor: palette[3], StrokeColor: palette[3]},
		})
		peak = max(peak, m.Expense)
	}

	graph := chart.BarChart{
		Title:  "Расходы по месяцам",
		Width:  max(400, 80*len(months)),
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth: 40,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max(peak, 1))},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return aggregate.FormatTenge(int64(f))
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
