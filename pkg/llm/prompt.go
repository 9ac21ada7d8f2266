package llm

import (
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/models"
)

const systemPrompt = "Answer with concise, factual responses and explicit citations."

// BuildContext assembles the evidence block handed to a generation backend:
// one block per source with its citation tag, provenance, score and text,
// separated by blank lines, in retrieval rank order. The [S#] tags are
// 1-based and line up with the Sources slice of the final answer.
func BuildContext(sources []models.RetrievalResult) string {
	blocks := make([]string, 0, len(sources))
	for i, source := range sources {
		pageLabel := "p.n/a"
		if source.Chunk.PageNumber != nil {
			pageLabel = fmt.Sprintf("p.%d", *source.Chunk.PageNumber)
		}
		blocks = append(blocks, fmt.Sprintf("[S%d] File=%s %s score=%.3f\n%s",
			i+1, source.Chunk.SourceFile, pageLabel, source.Score, source.Chunk.Text))
	}
	return strings.Join(blocks, "\n\n")
}

func textPrompt(query, contextBlock string) string {
	return fmt.Sprintf("You are a document assistant. Use only the provided context. "+
		"If the context is insufficient, clearly say so. Cite supporting chunks as [S1], [S2], etc.\n\n"+
		"Question: %s\n\nContext:\n%s", query, contextBlock)
}

func multimodalPrompt(query, contextBlock string) string {
	return fmt.Sprintf("Use only the provided context and the attached images. "+
		"If there is insufficient evidence, say so. Include [S#] citations where possible.\n\n"+
		"Question: %s\n\nContext:\n%s", query, contextBlock)
}
