package chunker_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/pkg/chunker"
)

func newRuneChunker(t *testing.T, size, overlap int) *chunker.Chunker {
	t.Helper()

	c, err := chunker.NewWithConfig(chunker.Config{
		ChunkSize:    size,
		ChunkOverlap: overlap,
		LenFunc:      utf8.RuneCountInString,
	})
	require.NoError(t, err)
	return c
}

func TestChunker_Chunk(t *testing.T) {
	c := newRuneChunker(t, 40, 10)

	page := 2
	records := []models.TextRecord{
		{
			Text:       "Derivatives measure rates of change. Integrals accumulate quantities over an interval. Both are central to calculus.",
			SourceFile: "math.txt",
		},
		{
			Text:       "Photosynthesis converts light energy into chemical energy stored in glucose.",
			SourceFile: "bio.pdf",
			PageNumber: &page,
		},
	}

	chunks, err := c.Chunk(records)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var mathChunks, bioChunks []models.DocumentChunk
	for _, chunk := range chunks {
		switch chunk.SourceFile {
		case "math.txt":
			mathChunks = append(mathChunks, chunk)
		case "bio.pdf":
			bioChunks = append(bioChunks, chunk)
		default:
			t.Fatalf("unexpected source file %q", chunk.SourceFile)
		}
	}

	assert.Greater(t, len(mathChunks), 1, "a 40-unit chunk size should split the math record")
	require.NotEmpty(t, bioChunks)

	for i, chunk := range mathChunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
		assert.Nil(t, chunk.PageNumber)
		assert.Equal(t, "math.txt", chunk.Metadata["source_file"])
		assert.Equal(t, i, chunk.Metadata["chunk_index"])
		assert.NotContains(t, chunk.Metadata, "page_number")
	}

	for i, chunk := range bioChunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		require.NotNil(t, chunk.PageNumber)
		assert.Equal(t, 2, *chunk.PageNumber)
		assert.Equal(t, 2, chunk.Metadata["page_number"])
	}
}

func TestChunker_Deterministic(t *testing.T) {
	records := []models.TextRecord{
		{
			Text:       "The mitochondria is the powerhouse of the cell. Ribosomes assemble proteins from amino acids.",
			SourceFile: "notes.txt",
		},
	}

	first, err := newRuneChunker(t, 30, 5).Chunk(records)
	require.NoError(t, err)
	second, err := newRuneChunker(t, 30, 5).Chunk(records)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Text, second[i].Text)
	}

	seen := make(map[string]bool)
	for _, chunk := range first {
		assert.False(t, seen[chunk.ID], "duplicate chunk id %s", chunk.ID)
		seen[chunk.ID] = true
		assert.Len(t, chunk.ID, 40) // hex-encoded sha1
	}
}

func TestChunker_SkipsEmptyRecords(t *testing.T) {
	c := newRuneChunker(t, 40, 0)

	chunks, err := c.Chunk([]models.TextRecord{
		{Text: "", SourceFile: "empty.txt"},
		{Text: "   \n\t  ", SourceFile: "blank.txt"},
		{Text: "Actual content survives.", SourceFile: "real.txt"},
	})
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "real.txt", chunks[0].SourceFile)
}

func TestChunker_UnknownSourceFallback(t *testing.T) {
	c := newRuneChunker(t, 40, 0)

	chunks, err := c.Chunk([]models.TextRecord{{Text: "No provenance here."}})
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "unknown", chunks[0].SourceFile)
}

func TestNewWithConfig_Invalid(t *testing.T) {
	_, err := chunker.NewWithConfig(chunker.Config{ChunkSize: 0})
	assert.Error(t, err)

	_, err = chunker.NewWithConfig(chunker.Config{ChunkSize: 100, ChunkOverlap: 100})
	assert.Error(t, err)

	_, err = chunker.NewWithConfig(chunker.Config{ChunkSize: 100, ChunkOverlap: -1})
	assert.Error(t, err)
}
