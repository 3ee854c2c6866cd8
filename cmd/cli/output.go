package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow, color.Bold)
	bold   = color.New(color.Bold)
	faint  = color.New(color.Faint)
)

func header(w io.Writer, text string) {
	line := strings.Repeat("=", 48)
	bold.Fprintf(w, "\n%s\n%s\n%s\n", line, text, line)
}

func printImport(w io.Writer, res ingest.ImportResult) {
	header(w, "Импорт")
	fmt.Fprintf(w, "Источник:   %s\n", res.Source)
	fmt.Fprintf(w, "Строк:      %d (отброшено %d)\n", res.RowsSeen, res.RowsDropped)
	if res.Empty() {
		yellow.Fprintf(w, "  ⚠ %s\n", res.Hint)
		return
	}
	green.Fprintf(w, "  → %s\n", res.Hint)
}

func printSummary(w io.Writer, s domain.AggregateSummary) {
	header(w, "Сводка")
	green.Fprintf(w, "Доход:   %s\n", aggregate.FormatTenge(s.Income))
	red.Fprintf(w, "Расход:  %s\n", aggregate.FormatTenge(s.Expense))
	net := green
	if s.Net < 0 {
		net = red
	}
	net.Fprintf(w, "Баланс:  %s\n", aggregate.FormatTenge(s.Net))

	if len(s.ByMonth) > 0 {
		bold.Fprintln(w, "\nПо месяцам")
		for _, m := range s.ByMonth {
			fmt.Fprintf(w, "  %s  +%s  -%s\n", m.YearMonth, aggregate.FormatTenge(m.Income), aggregate.FormatTenge(m.Expense))
		}
	}

	if len(s.ByCategory) > 0 {
		bold.Fprintln(w, "\nКатегории")
		for _, c := range s.ByCategory {
			fmt.Fprintf(w, "  %-24s %s\n", c.Category, aggregate.FormatTenge(c.Total))
		}
	}

	if len(s.Tips) > 0 {
		bold.Fprintln(w, "\nСоветы")
		for _, tip := range s.Tips {
			yellow.Fprintf(w, "  • %s\n", tip)
		}
	}
}

func printInsight(w io.Writer, res insight.Result) {
	header(w, fmt.Sprintf("Анализ (%s)", res.Source))
	if res.Warning != "" {
		yellow.Fprintf(w, "  ⚠ %s\n", res.Warning)
	}
	for _, c := range res.Value.Categories {
		paint := red
		if c.Kind == domain.KindIncome {
			paint = green
		}
		paint.Fprintf(w, "  %-24s %12.0f ₸\n", c.Name, c.Total)
		if len(c.Examples) > 0 {
			faint.Fprintf(w, "      %s\n", strings.Join(c.Examples, "; "))
		}
	}
	if len(res.Value.Habits) > 0 {
		bold.Fprintln(w, "\nПривычки")
		for _, h := range res.Value.Habits {
			fmt.Fprintf(w, "  • %s\n", h)
		}
	}
}
