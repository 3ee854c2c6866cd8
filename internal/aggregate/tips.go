package aggregate

import (
	"fmt"

	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	tipLowSavings    = "Низкая норма сбережений (<10%). Попробуйте правило 50/30/20 или задайте фиксированную автоперевод-копилку."
	tipTopCategory   = "Самая крупная категория — **%s** (%s). Проверьте регулярные платежи и ищите акции."
	tipSubscriptions = "Подписки: отключите неиспользуемые, сведите к годовому тарифу — так дешевле."
	tipMonthlySpike  = "В последний месяц расходы выросли >30% к среднему — проверьте разовые крупные траты."

	subscriptionsCategory = "Подписки"
)

var (
	savingsFloor = decimal.NewFromInt(10)
	spikeFactor  = decimal.RequireFromString("1.3")
	hundred      = decimal.NewFromInt(100)
)

var ruPrinter = message.NewPrinter(language.Russian)

// FormatTenge renders a whole amount with Russian digit grouping and the tenge sign.
func FormatTenge(n int64) string {
	return ruPrinter.Sprintf("%d", n) + " ₸"
}

// Tips derives summary-level advice: a low savings rate, the largest
// category, subscriptions among the top three, and a spike of the last month
// over the mean of the two before it.
func Tips(income, expense decimal.Decimal, byCategory []domain.CategoryTotal, byMonth []domain.MonthTotals) []string {
	tips := []string{}

	rate := decimal.Zero
	if income.IsPositive() {
		rate = income.Sub(expense).Mul(hundred).Div(income)
	}
	if rate.LessThan(savingsFloor) {
		tips = append(tips, tipLowSavings)
	}

	top := byCategory
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) > 0 {
		tips = append(tips, fmt.Sprintf(tipTopCategory, top[0].Category, FormatTenge(top[0].Total)))
	}
	for _, c := range top {
		if c.Category == subscriptionsCategory {
			tips = append(tips, tipSubscriptions)
			break
		}
	}

	if n := len(byMonth); n >= 3 {
		last3 := byMonth[n-3:]
		avgPrev := decimal.NewFromInt(last3[0].Expense + last3[1].Expense).Div(decimal.NewFromInt(2))
		if avgPrev.IsPositive() && decimal.NewFromInt(last3[2].Expense).GreaterThan(avgPrev.Mul(spikeFactor)) {
			tips = append(tips, tipMonthlySpike)
		}
	}

	return tips
}
