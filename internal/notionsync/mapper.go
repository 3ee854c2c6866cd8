package notionsync

import (
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the monthly summary database.
const (
	PropMonth   = "Month"
	PropIncome  = "Income"
	PropExpense = "Expense"
	PropNet     = "Net"
)

// MonthToNotionProperties converts one month of totals into page properties.
// Net is derived here so it always equals Income - Expense for that month.
func MonthToNotionProperties(m domain.MonthTotals) notionapi.Properties {
	return notionapi.Properties{
		PropMonth: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: m.YearMonth},
				},
			},
		},
		PropIncome:  notionapi.NumberProperty{Number: float64(m.Income)},
		PropExpense: notionapi.NumberProperty{Number: float64(m.Expense)},
		PropNet:     notionapi.NumberProperty{Number: float64(m.Income - m.Expense)},
	}
}

// extractMonth reads the Month title of an existing page.
func extractMonth(page notionapi.Page) string {
	prop, ok := page.Properties[PropMonth]
	if !ok {
		return ""
	}
	switch title := prop.(type) {
	case *notionapi.TitleProperty:
		return plainText(title.Title)
	case notionapi.TitleProperty:
		return plainText(title.Title)
	}
	return ""
}

func plainText(parts []notionapi.RichText) string {
	var s string
	for _, p := range parts {
		if p.PlainText != "" {
			s += p.PlainText
		} else if p.Text != nil {
			s += p.Text.Content
		}
	}
	return s
}
