// Package aggregate folds transactions into income, expense, monthly and
// per-category totals.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/dvloznov/spend-insight/internal/categorize"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/normalize"
	"github.com/shopspring/decimal"
)

// Classifier maps a description to a category label.
type Classifier interface {
	Classify(description string) string
}

type monthBucket struct {
	income  decimal.Decimal
	expense decimal.Decimal
}

// Summarize aggregates transactions using the default category rules.
func Summarize(txs []domain.Transaction) domain.AggregateSummary {
	return SummarizeWith(categorize.Default(), txs)
}

// SummarizeWith aggregates transactions in a single pass. Totals are
// accumulated exactly and rounded to whole tenge only when emitted. Income
// never enters ByCategory.
func SummarizeWith(c Classifier, txs []domain.Transaction) domain.AggregateSummary {
	income, expense := decimal.Zero, decimal.Zero
	months := make(map[string]*monthBucket)
	categories := make(map[string]decimal.Decimal)

	for _, tx := range txs {
		key := normalize.YearMonth(tx.Date)
		m, ok := months[key]
		if !ok {
			m = &monthBucket{}
			months[key] = m
		}

		if tx.IsIncome() {
			income = income.Add(tx.Amount)
			m.income = m.income.Add(tx.Amount)
			continue
		}

		magnitude := tx.Amount.Abs()
		expense = expense.Add(magnitude)
		m.expense = m.expense.Add(magnitude)

		cat := c.Classify(tx.Description)
		categories[cat] = categories[cat].Add(magnitude)
	}

	summary := domain.AggregateSummary{
		Income:     whole(income),
		Expense:    whole(expense),
		ByMonth:    make([]domain.MonthTotals, 0, len(months)),
		ByCategory: make([]domain.CategoryTotal, 0, len(categories)),
	}
	summary.Net = summary.Income - summary.Expense

	for key, m := range months {
		summary.ByMonth = append(summary.ByMonth, domain.MonthTotals{
			YearMonth: key,
			Income:    whole(m.income),
			Expense:   whole(m.expense),
		})
	}
	slices.SortFunc(summary.ByMonth, func(a, b domain.MonthTotals) int {
		return cmp.Compare(a.YearMonth, b.YearMonth)
	})

	for name, total := range categories {
		summary.ByCategory = append(summary.ByCategory, domain.CategoryTotal{
			Category: name,
			Total:    whole(total),
		})
	}
	slices.SortFunc(summary.ByCategory, func(a, b domain.CategoryTotal) int {
		if a.Total != b.Total {
			return cmp.Compare(b.Total, a.Total)
		}
		return cmp.Compare(a.Category, b.Category)
	})

	summary.Tips = Tips(income, expense, summary.ByCategory, summary.ByMonth)
	return summary
}

// whole rounds to the nearest tenge, halves away from zero.
func whole(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
