package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText returns the text layer of a PDF, one output line per text
// row. Scanned documents without a text layer yield an empty string.
func ExtractPDFText(r io.ReaderAt, size int64) (text string, err error) {
	// The pdf reader panics on some malformed documents.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("ExtractPDFText: malformed document: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("ExtractPDFText: open reader: %w", err)
	}

	return readPages(reader), nil
}

// ExtractPDFFile is ExtractPDFText for a file on disk.
func ExtractPDFFile(path string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("ExtractPDFFile: malformed document %s: %v", path, rec)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("ExtractPDFFile: open %s: %w", path, err)
	}
	defer f.Close()

	return readPages(reader), nil
}

func readPages(reader *pdf.Reader) string {
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err == nil && len(rows) > 0 {
			for _, row := range rows {
				sb.WriteString(joinRow(row.Content))
				sb.WriteString("\n")
			}
			continue
		}

		plain, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(plain)
		sb.WriteString("\n")
	}
	return sb.String()
}

// joinRow concatenates text chunks of one row, inserting a space where the
// horizontal gap between chunks is wider than a fraction of the font size.
func joinRow(chunks pdf.TextHorizontal) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			prev := chunks[i-1]
			if c.X-(prev.X+prev.W) > prev.FontSize*0.2 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(c.S)
	}
	return sb.String()
}
