package insight

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/categorize"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	maxExamples = 3
	minHabits   = 3
)

// Local habit advisories, in evaluation order.
const (
	HabitDining        = "Снизить траты на кафе: готовить дома 2–3 раза в неделю, брать обеды с собой."
	HabitGroceries     = "Составлять список покупок и план питания на неделю — меньше импульсивных покупок."
	HabitConnectivity  = "Проверить тарифы у оператора: часто есть пакет дешевле при автооплате или годовой оплате."
	HabitEntertainment = "Ограничить подписки и микроплатежи: раз в месяц аудит активных подписок."
	HabitTransport     = "Чаще использовать общественный транспорт/каршеринг; объединять поездки, планировать маршруты."
	HabitShopping      = "Правило «24 часа»: если вещь не первой необходимости — подождать сутки перед покупкой."
	HabitUtilities     = "Для коммунальных: оплата без просрочек и учет показаний — без штрафов и переплат."
	HabitSavingsRate   = "Попробовать метод 50/30/20: 50% — базовые нужды, 30% — жизнь, 20% — накопления."
	HabitFillerLimits  = "Ввести лимиты по категориям и напоминание о достижении 80% лимита."
	HabitFillerSavings = "Автоматический перевод 10–15% дохода в накопления в день зарплаты."
)

// shareRules fire when a category exceeds the given share of total expense.
var shareRules = []struct {
	category  string
	threshold decimal.Decimal
	habit     string
}{
	{"Обеды/кафе", decimal.RequireFromString("0.15"), HabitDining},
	{"Продукты", decimal.RequireFromString("0.35"), HabitGroceries},
	{"Связь/интернет", decimal.RequireFromString("0.08"), HabitConnectivity},
	{"Развлечения", decimal.RequireFromString("0.10"), HabitEntertainment},
	{"Транспорт", decimal.RequireFromString("0.12"), HabitTransport},
	{"Шоппинг", decimal.RequireFromString("0.10"), HabitShopping},
}

var (
	utilitiesName      = regexp.MustCompile(`(?i)коммун`)
	expenseToIncomeMax = decimal.RequireFromString("0.9")
)

type bucket struct {
	name     string
	kind     domain.Kind
	total    decimal.Decimal
	examples []string
}

// Local computes an Insight with the default category rules and no network access.
func Local(txs []domain.Transaction) domain.Insight {
	return LocalWith(categorize.Default(), txs)
}

// LocalWith buckets inflows into a synthetic income category and outflows by
// category, then applies the share and savings-rate habit rules. When fewer
// than three habits fire, two generic ones are appended.
func LocalWith(c aggregate.Classifier, txs []domain.Transaction) domain.Insight {
	buckets := make(map[string]*bucket)
	for _, tx := range txs {
		name, kind := categorize.InsightIncomeLabel, domain.KindIncome
		if !tx.IsIncome() {
			name, kind = c.Classify(tx.Description), domain.KindExpense
		}

		b, ok := buckets[name]
		if !ok {
			b = &bucket{name: name, kind: kind}
			buckets[name] = b
		}
		b.total = b.total.Add(tx.Amount.Abs())
		if desc := strings.TrimSpace(tx.Description); desc != "" && len(b.examples) < maxExamples {
			b.examples = append(b.examples, desc)
		}
	}

	sorted := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		sorted = append(sorted, b)
	}
	slices.SortFunc(sorted, func(a, b *bucket) int {
		if d := b.total.Cmp(a.total); d != 0 {
			return d
		}
		return cmp.Compare(a.name, b.name)
	})

	insight := domain.Insight{
		Categories: make([]domain.InsightCategory, 0, len(sorted)),
		Habits:     habits(sorted),
	}
	for _, b := range sorted {
		examples := b.examples
		if examples == nil {
			examples = []string{}
		}
		insight.Categories = append(insight.Categories, domain.InsightCategory{
			Name:     b.name,
			Total:    b.total.Round(2).InexactFloat64(),
			Kind:     b.kind,
			Examples: examples,
		})
	}

	return insight
}

func habits(buckets []*bucket) []string {
	totalExpense, income := decimal.Zero, decimal.Zero
	expenses := make(map[string]decimal.Decimal)
	for _, b := range buckets {
		if b.kind == domain.KindIncome {
			income = income.Add(b.total)
			continue
		}
		totalExpense = totalExpense.Add(b.total)
		expenses[b.name] = b.total
	}
	if totalExpense.IsZero() {
		totalExpense = decimal.NewFromInt(1)
	}

	out := []string{}
	for _, rule := range shareRules {
		if expenses[rule.category].Div(totalExpense).GreaterThan(rule.threshold) {
			out = append(out, rule.habit)
		}
	}

	for _, b := range buckets {
		if utilitiesName.MatchString(b.name) {
			out = append(out, HabitUtilities)
			break
		}
	}

	if income.IsPositive() && totalExpense.Div(income).GreaterThan(expenseToIncomeMax) {
		out = append(out, HabitSavingsRate)
	}

	if len(out) < minHabits {
		out = append(out, HabitFillerLimits, HabitFillerSavings)
	}
	return out
}
