package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	dayFirstDatePattern = regexp.MustCompile(`^(\d{2})[./](\d{2})[./](\d{4})`)
)

// fallbackDateLayouts are tried in order once the ISO and day-first forms fail.
var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2.1.2006",
	"02.01.06",
	"02-01-2006",
	"1/2/2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// ParseDate converts a bank date string to a calendar date.
// It tries YYYY-MM-DD first, then DD.MM.YYYY / DD/MM/YYYY, then a list of
// common layouts. The second result is false when nothing matched or the
// matched fields do not form a real date.
func ParseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return makeDate(m[1], m[2], m[3])
	}
	if m := dayFirstDatePattern.FindStringSubmatch(s); m != nil {
		return makeDate(m[3], m[2], m[1])
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}

	return civil.Date{}, false
}

func makeDate(year, month, day string) (civil.Date, bool) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return civil.Date{}, false
	}

	date := civil.Date{Year: y, Month: time.Month(m), Day: d}
	if !date.IsValid() {
		return civil.Date{}, false
	}
	return date, true
}

// YearMonth returns the YYYY-MM bucket key of a date.
func YearMonth(d civil.Date) string {
	return d.String()[:7]
}
