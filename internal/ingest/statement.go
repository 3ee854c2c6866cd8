package ingest

import (
	"regexp"
	"strings"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/normalize"
	"github.com/shopspring/decimal"
)

// statementLine matches lines like
// "05.01.24 - 15 000,00 ₸ Purchases Magnum Astana".
var statementLine = regexp.MustCompile(
	`(?i)(?P<date>\b\d{2}\.\d{2}\.(?:\d{4}|\d{2})\b)\s+` +
		`(?P<sign>[+-])\s*(?P<amount>[\d\s]+[.,]\d{2})\s*₸?\s+` +
		`(?P<kind>Purchases|Transfers|Replenishment|Withdrawals|Others)\s+` +
		`(?P<desc>.+)$`)

var (
	dateGroup   = statementLine.SubexpIndex("date")
	signGroup   = statementLine.SubexpIndex("sign")
	amountGroup = statementLine.SubexpIndex("amount")
	kindGroup   = statementLine.SubexpIndex("kind")
	descGroup   = statementLine.SubexpIndex("desc")
)

// StatementKinds lists the operation kinds a statement line may carry.
var StatementKinds = []string{"Purchases", "Transfers", "Replenishment", "Withdrawals", "Others"}

// ParseStatementLine extracts a transaction from one line of statement text.
// Lines that do not follow the statement grammar report false.
func ParseStatementLine(line string) (domain.Transaction, bool) {
	line = strings.TrimSpace(flattenSpaces(line))
	m := statementLine.FindStringSubmatch(line)
	if m == nil {
		return domain.Transaction{}, false
	}

	date, ok := parseStatementDate(m[dateGroup])
	if !ok {
		return domain.Transaction{}, false
	}

	amountText := strings.ReplaceAll(strings.ReplaceAll(m[amountGroup], " ", ""), ",", ".")
	amount, err := decimal.NewFromString(amountText)
	if err != nil || amount.IsZero() {
		return domain.Transaction{}, false
	}
	if m[signGroup] == "-" {
		amount = amount.Neg()
	}

	return domain.Transaction{
		Date:        date,
		Description: strings.Join(strings.Fields(m[descGroup]), " "),
		Amount:      amount,
		Kind:        canonicalKind(m[kindGroup]),
	}, true
}

// ExtractStatement runs ParseStatementLine over every line of text and keeps
// the matches in their original order.
func ExtractStatement(text string) []domain.Transaction {
	var txs []domain.Transaction
	for _, line := range strings.Split(text, "\n") {
		if tx, ok := ParseStatementLine(line); ok {
			txs = append(txs, tx)
		}
	}
	return txs
}

// parseStatementDate accepts DD.MM.YY and DD.MM.YYYY; two digit years are in the 2000s.
func parseStatementDate(s string) (civil.Date, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return civil.Date{}, false
	}
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return normalize.ParseDate(year + "-" + parts[1] + "-" + parts[0])
}

func canonicalKind(kind string) string {
	for _, k := range StatementKinds {
		if strings.EqualFold(k, kind) {
			return k
		}
	}
	return kind
}

// flattenSpaces turns every Unicode space (NBSP, thin space, tabs) into ' '
// since PDF text layers rarely use plain ASCII spaces.
func flattenSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}
