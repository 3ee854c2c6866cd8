package domain

// MonthTotals holds the income and expense of one calendar month.
type MonthTotals struct {
	YearMonth string `json:"ym"` // YYYY-MM
	Income    int64  `json:"income"`
	Expense   int64  `json:"expense"`
}

// CategoryTotal is the absolute expense attributed to one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// AggregateSummary is the folded view of a transaction list.
// All amounts are whole tenge and Net always equals Income - Expense.
type AggregateSummary struct {
	Income     int64           `json:"income"`
	Expense    int64           `json:"expense"`
	Net        int64           `json:"net"`
	ByMonth    []MonthTotals   `json:"byMonth"`    // ascending by YearMonth
	ByCategory []CategoryTotal `json:"byCategory"` // descending by Total, income excluded
	Tips       []string        `json:"tips"`
}

// Kind tells whether an insight category collects inflows or outflows.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// InsightCategory is one bucket of an Insight.
type InsightCategory struct {
	Name     string   `json:"name" validate:"required"`
	Total    float64  `json:"total"`
	Kind     Kind     `json:"kind" validate:"oneof=expense income"`
	Examples []string `json:"examples" validate:"max=3"`
}

// Insight is the category breakdown plus advisory habits shown to the user.
// Both the local and the remote producer return this shape.
type Insight struct {
	Categories []InsightCategory `json:"categories" validate:"required,dive"`
	Habits     []string          `json:"habits" validate:"required"`
}
