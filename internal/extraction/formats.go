package extraction

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/test-writer/internal/fetch"
)

// Content types accepted for upload.
const (
	ContentTypePDF      = "application/pdf"
	ContentTypeCSV      = "text/csv"
	ContentTypeXLS      = "application/vnd.ms-excel"
	ContentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeText     = "text/plain"
	ContentTypeMarkdown = "text/markdown"
	ContentTypeHTML     = "text/html"
)

// MaxDocumentBytes is the upload size cap.
const MaxDocumentBytes = 10 << 20

// TypeByExtension maps a filename extension to the matching upload
// content type, or "" when the extension is not one we read. The
// platform mime table is not consulted.
func TypeByExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return ContentTypePDF
	case ".csv":
		return ContentTypeCSV
	case ".xls":
		return ContentTypeXLS
	case ".xlsx":
		return ContentTypeXLSX
	case ".txt":
		return ContentTypeText
	case ".md", ".markdown":
		return ContentTypeMarkdown
	case ".html", ".htm":
		return ContentTypeHTML
	}
	return ""
}

// Supported reports whether a content type has a reader
func Supported(contentType string) bool {
	switch normalizeContentType(contentType) {
	case ContentTypePDF, ContentTypeCSV, ContentTypeXLS, ContentTypeXLSX,
		ContentTypeText, ContentTypeMarkdown, ContentTypeHTML:
		return true
	}
	return false
}

// normalizeContentType strips parameters like "; charset=utf-8"
func normalizeContentType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// readContent dispatches to the reader for the content type
func readContent(contentType string, data []byte) (string, error) {
	switch normalizeContentType(contentType) {
	case ContentTypePDF:
		return readPDF(data)
	case ContentTypeCSV:
		return readCSV(data)
	case ContentTypeXLS:
		// Legacy Excel has no maintained Go reader; the MIME type is a
		// common mislabel for CSV exports, so accept those and reject
		// real .xls payloads.
		if !LooksLikeCSV(data) {
			return "", fmt.Errorf("%w: legacy .xls (upload as CSV or XLSX)", ErrUnsupportedFormat)
		}
		return readCSV(data)
	case ContentTypeXLSX:
		return readXLSX(data)
	case ContentTypeHTML:
		return readHTML(data)
	case ContentTypeText, ContentTypeMarkdown:
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}
}

// readPDF extracts text page by page, marking page boundaries the way
// downstream prompts expect.
func readPDF(data []byte) (text string, err error) {
	// The pdf library panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", ErrUnsupportedFormat, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(pageText) == "" {
			// Pages that cannot be decoded are skipped, not fatal
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", i, strings.TrimSpace(pageText))
	}
	return b.String(), nil
}

// readCSV renders the records as an aligned text table
func readCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: invalid csv: %v", ErrUnsupportedFormat, err)
	}
	return alignRows(rows), nil
}

// readXLSX renders the first sheet as an aligned text table
func readXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: invalid xlsx: %v", ErrUnsupportedFormat, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return alignRows(rows), nil
}

// readHTML extracts the main body text from an HTML document
func readHTML(data []byte) (string, error) {
	text, err := fetch.ExtractMainText(string(data), fetch.DefaultTextSelectors())
	if err != nil {
		return "", fmt.Errorf("%w: invalid html: %v", ErrUnsupportedFormat, err)
	}
	return text, nil
}

// alignRows pads each column to its widest cell so tabular data stays
// readable as plain text.
func alignRows(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	widths := []int{}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			if i < len(row)-1 {
				b.WriteString(fmt.Sprintf("%-*s", widths[i], cell))
			} else {
				b.WriteString(cell)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// LooksLikeCSV sniffs whether a payload is really comma-separated text
func LooksLikeCSV(data []byte) bool {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	if bytes.ContainsRune(sample, 0) {
		return false
	}
	line, _, _ := strings.Cut(string(sample), "\n")
	return strings.Contains(line, ",")
}
