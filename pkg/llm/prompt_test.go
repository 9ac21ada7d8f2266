package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/pkg/llm"
)

func TestBuildContext(t *testing.T) {
	page := 4
	sources := []models.RetrievalResult{
		{
			Chunk: models.DocumentChunk{
				Text:       "Derivatives measure rates of change.",
				SourceFile: "math.pdf",
				PageNumber: &page,
			},
			Score: 0.912,
		},
		{
			Chunk: models.DocumentChunk{
				Text:       "Plain text evidence.",
				SourceFile: "notes.txt",
			},
			Score: 0.654,
		},
	}

	got := llm.BuildContext(sources)

	expected := "[S1] File=math.pdf p.4 score=0.912\nDerivatives measure rates of change.\n\n" +
		"[S2] File=notes.txt p.n/a score=0.654\nPlain text evidence."
	assert.Equal(t, expected, got)
}

func TestBuildContext_Empty(t *testing.T) {
	assert.Equal(t, "", llm.BuildContext(nil))
}
