package citations

import (
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/models"
)

const DefaultPreviewLen = 220

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Format renders one retrieval result as a source reference: a header line
// with the citation tag, provenance and score, then a single-line text
// preview. A previewLen below 1 uses DefaultPreviewLen.
func Format(index int, result models.RetrievalResult, previewLen int) string {
	if previewLen < 1 {
		previewLen = DefaultPreviewLen
	}

	page := "n/a"
	if result.Chunk.PageNumber != nil {
		page = fmt.Sprintf("%d", *result.Chunk.PageNumber)
	}

	preview := newlineReplacer.Replace(strings.TrimSpace(result.Chunk.Text))
	if runes := []rune(preview); len(runes) > previewLen {
		preview = string(runes[:previewLen])
	}

	return fmt.Sprintf("S%d | %s | page=%s | chunk=%d | score=%.3f\n%s",
		index, result.Chunk.SourceFile, page, result.Chunk.ChunkIndex, result.Score, preview)
}
