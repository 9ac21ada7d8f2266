package retriever

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
)

// Retrieve runs a top-k similarity search and normalizes the raw hits into
// retrieval results. Result order is the index's relevance rank, best match
// first. An empty index yields an empty slice, not an error.
func Retrieve(ctx context.Context, query string, index types.VectorIndex, k int) ([]models.RetrievalResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}

	hits, err := index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	results := make([]models.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.RetrievalResult{
			Chunk: chunkFromHit(hit),
			Score: hit.Score,
		})
	}
	return results, nil
}

// chunkFromHit rebuilds a DocumentChunk from stored text and metadata.
// Missing metadata fields fall back to safe defaults rather than failing:
// the chunk is still usable as citation evidence.
func chunkFromHit(hit types.Hit) models.DocumentChunk {
	return models.DocumentChunk{
		ID:         metaString(hit.Metadata, "id", ""),
		Text:       hit.Text,
		SourceFile: metaString(hit.Metadata, "source_file", "unknown"),
		PageNumber: metaPage(hit.Metadata),
		ChunkIndex: metaInt(hit.Metadata, "chunk_index", 0),
		Metadata:   hit.Metadata,
	}
}

func metaString(metadata map[string]interface{}, key, fallback string) string {
	if v, ok := metadata[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// metaInt tolerates the numeric types a JSON round trip can produce.
func metaInt(metadata map[string]interface{}, key string, fallback int) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func metaPage(metadata map[string]interface{}) *int {
	v, ok := metadata["page_number"]
	if !ok || v == nil {
		return nil
	}
	page := metaInt(metadata, "page_number", 0)
	return &page
}
