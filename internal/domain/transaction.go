package domain

import (
	"regexp"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction represents one normalized money movement built from a CSV row
// or a statement line. Amount is never zero: positive is an inflow, negative
// is an outflow.
type Transaction struct {
	Date        civil.Date        // calendar date, no time-of-day
	Description string            // free text from the description column or statement line
	Amount      decimal.Decimal   // signed tenge amount
	Kind        string            // statement kind keyword (Purchases, Transfers, ...), empty for CSV rows
	Raw         map[string]string // original header -> field map, CSV rows only
}

// IsIncome reports whether the transaction is an inflow.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// CategoryRule maps description patterns to a category label.
// Rules are evaluated top to bottom and the first rule with a matching pattern wins.
type CategoryRule struct {
	Name     string
	Matchers []*regexp.Regexp
}

// Match reports whether any of the rule's patterns matches the description.
func (r CategoryRule) Match(description string) bool {
	for _, m := range r.Matchers {
		if m.MatchString(description) {
			return true
		}
	}
	return false
}
