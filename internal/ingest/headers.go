package ingest

import (
	"regexp"
	"strings"
)

// NotFound marks a column role that no header label matched.
const NotFound = -1

// ColumnMap holds the index of each semantic column, or NotFound.
type ColumnMap struct {
	Date        int
	Description int
	Amount      int
	Credit      int
	Debit       int
	Currency    int
}

// HasAmount reports whether any column can produce an amount.
func (c ColumnMap) HasAmount() bool {
	return c.Amount != NotFound || c.Credit != NotFound || c.Debit != NotFound
}

var (
	dateLabels        = regexp.MustCompile(`date|дата`)
	descriptionLabels = regexp.MustCompile(`description|назначение|категория|details|контрагент`)
	amountLabels      = regexp.MustCompile(`amount|сумма|итого|total`)
	creditLabels      = regexp.MustCompile(`credit|поступление|приход`)
	debitLabels       = regexp.MustCompile(`debit|списание|расход`)
	currencyLabels    = regexp.MustCompile(`currency|валюта`)
)

// ResolveHeaders maps header labels to column roles. Every role gets the
// first matching column independently, so one label may serve several roles.
func ResolveHeaders(header []string) ColumnMap {
	cols := ColumnMap{
		Date:        NotFound,
		Description: NotFound,
		Amount:      NotFound,
		Credit:      NotFound,
		Debit:       NotFound,
		Currency:    NotFound,
	}

	roles := []struct {
		pattern *regexp.Regexp
		index   *int
	}{
		{dateLabels, &cols.Date},
		{descriptionLabels, &cols.Description},
		{amountLabels, &cols.Amount},
		{creditLabels, &cols.Credit},
		{debitLabels, &cols.Debit},
		{currencyLabels, &cols.Currency},
	}

	for i, label := range header {
		label = strings.ToLower(label)
		for _, role := range roles {
			if *role.index == NotFound && role.pattern.MatchString(label) {
				*role.index = i
			}
		}
	}

	return cols
}
