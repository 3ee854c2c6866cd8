package ingest

import (
	"strings"
)

// GuessDelimiter picks ';' when the line holds strictly more semicolons than
// commas, and ',' otherwise.
func GuessDelimiter(line string) rune {
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

// ParseRecords splits delimited text into rows of trimmed fields.
//
// The delimiter is guessed from the first non-blank line. A double quote
// toggles quoted mode, so a delimiter inside quotes does not end the field;
// quote characters never reach the output. Blank lines are skipped.
// The header row is returned as records[0]. ok is false when the text holds
// no data row, which is not an error.
func ParseRecords(text string) (records [][]string, ok bool) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, false
	}

	delim := GuessDelimiter(lines[0])
	records = make([][]string, 0, len(lines))
	for _, line := range lines {
		records = append(records, splitRecord(line, delim))
	}

	if len(records) <= 1 {
		return nil, false
	}
	return records, true
}

// splitLines returns the non-blank lines of text with line endings removed.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func splitRecord(line string, delim rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(field.String()))

	return fields
}
