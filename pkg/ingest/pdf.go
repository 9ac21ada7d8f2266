package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docsage/docsage/internal/models"
)

// extractPDF produces one record per page that carries text. Pages without
// extractable text are skipped. The pdf library panics on some malformed
// inputs, so the whole extraction runs under a recover that turns a panic
// into a ParseError.
func extractPDF(path string) (records []models.TextRecord, err error) {
	name := filepath.Base(path)

	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = &ParseError{File: name, Err: fmt.Errorf("malformed PDF: %v", r)}
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &ParseError{File: name, Err: err}
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pageNumber := i
		records = append(records, models.TextRecord{
			Text:       text,
			SourceFile: name,
			PageNumber: &pageNumber,
		})
	}

	return records, nil
}
