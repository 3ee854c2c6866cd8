package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	currencyMarkers = regexp.MustCompile(`(?i)₸|kzt|тг|tg`)
	rangePattern    = regexp.MustCompile(`^(\d+(?:\.\d+)?)[-–—](\d+(?:\.\d+)?)`)
	numberPattern   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	groupedNumber   = regexp.MustCompile(`\d[\d.,]*\d`)

	millionWords  = regexp.MustCompile(`(?i)млн|мил|million|mln`)
	thousandWords = regexp.MustCompile(`(?i)тыс|thousand`)
)

var (
	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
	two      = decimal.NewFromInt(2)
)

// ParseAmount converts a money string to a signed decimal.
//
// Whitespace and tenge markers are removed and digit grouping is resolved by
// normalizeSeparators.
// A "a-b" span is reduced to its mean, and a trailing magnitude word
// (тыс, млн, ...) scales the value; either of those rounds the result to whole
// tenge. Otherwise the first numeric run is returned as written.
// The second result is false when no number could be found, so callers can
// tell a literal zero from garbage.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = stripSpaces(s)
	s = currencyMarkers.ReplaceAllString(s, "")
	if s == "" {
		return decimal.Zero, false
	}

	multiplier := decimal.Zero
	switch {
	case millionWords.MatchString(s):
		multiplier = million
	case thousandWords.MatchString(s):
		multiplier = thousand
	}

	scaledByWord := !multiplier.IsZero()
	s = groupedNumber.ReplaceAllStringFunc(s, func(run string) string {
		return normalizeSeparators(run, scaledByWord)
	})

	var value decimal.Decimal
	scaled := !multiplier.IsZero()

	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, errLo := decimal.NewFromString(m[1])
		hi, errHi := decimal.NewFromString(m[2])
		if errLo != nil || errHi != nil {
			return decimal.Zero, false
		}
		value = lo.Add(hi).Div(two)
		scaled = true
	} else {
		run := numberPattern.FindString(s)
		if run == "" {
			return decimal.Zero, false
		}
		v, err := decimal.NewFromString(run)
		if err != nil {
			return decimal.Zero, false
		}
		value = v
	}

	if !multiplier.IsZero() {
		value = value.Mul(multiplier)
	}
	if scaled {
		value = value.Round(0)
	}
	return value, true
}

// normalizeSeparators rewrites one digit run so that '.' is the only
// decimal separator and grouping marks are gone.
//
//	1,234.56 and 1.234,56 -> 1234.56 (the last mark is the decimal one)
//	1,234,567 and 1.234.567 -> 1234567
//	12,500 -> 12500 (one comma followed by exactly three digits)
//	1234,56 and "1,2 млн" -> 1234.56 and 1.2
func normalizeSeparators(run string, scaledByWord bool) string {
	commas := strings.Count(run, ",")
	dots := strings.Count(run, ".")

	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(run, ",") > strings.LastIndex(run, ".") {
			run = strings.ReplaceAll(run, ".", "")
			return strings.Replace(run, ",", ".", 1)
		}
		return strings.ReplaceAll(run, ",", "")
	case commas > 1:
		return strings.ReplaceAll(run, ",", "")
	case dots > 1:
		return strings.ReplaceAll(run, ".", "")
	case commas == 1:
		i := strings.Index(run, ",")
		if !scaledByWord && len(run)-i-1 == 3 && i <= 3 {
			return strings.Replace(run, ",", "", 1)
		}
		return strings.Replace(run, ",", ".", 1)
	}
	return run
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
