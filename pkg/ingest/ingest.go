package ingest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docsage/docsage/internal/models"
)

// UnsupportedTypeError is raised for file extensions the extractor does not
// understand. It recovers per-file: the batch keeps going.
type UnsupportedTypeError struct {
	Ext string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Ext)
}

// ParseError wraps any extraction failure (unreadable file, corrupt PDF,
// OCR failure) with the file it happened on.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// IsImage reports whether the path looks like an image file by extension.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ExtractFile turns one file into text records: a PDF yields one record per
// page with text, a text file one record without a page number, an image
// one record of OCR output. An empty file yields zero records, not an error.
func ExtractFile(path string) ([]models.TextRecord, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case ext == ".pdf":
		return extractPDF(path)
	case ext == ".txt":
		return extractTxt(path)
	case imageExtensions[ext]:
		return extractImage(path)
	default:
		return nil, &UnsupportedTypeError{Ext: ext}
	}
}

// ExtractBatch extracts every path, collecting per-file failures into
// warnings instead of aborting the batch.
func ExtractBatch(paths []string) ([]models.TextRecord, []string) {
	var records []models.TextRecord
	var warnings []string

	for _, path := range paths {
		extracted, err := ExtractFile(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		if len(extracted) == 0 {
			warnings = append(warnings, fmt.Sprintf("No text extracted from %s.", filepath.Base(path)))
			continue
		}
		records = append(records, extracted...)
	}

	return records, warnings
}

func extractTxt(path string) ([]models.TextRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{File: filepath.Base(path), Err: err}
	}

	text := strings.TrimSpace(strings.ToValidUTF8(string(data), "�"))
	if text == "" {
		return nil, nil
	}

	return []models.TextRecord{{
		Text:       text,
		SourceFile: filepath.Base(path),
	}}, nil
}

// extractImage shells out to the tesseract binary, the same engine
// pytesseract wraps. Requires tesseract on PATH.
func extractImage(path string) ([]models.TextRecord, error) {
	bin, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, &ParseError{
			File: filepath.Base(path),
			Err:  fmt.Errorf("tesseract not found on PATH: %w", err),
		}
	}

	out, err := exec.Command(bin, path, "stdout").Output()
	if err != nil {
		return nil, &ParseError{File: filepath.Base(path), Err: err}
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, nil
	}

	return []models.TextRecord{{
		Text:       text,
		SourceFile: filepath.Base(path),
	}}, nil
}
