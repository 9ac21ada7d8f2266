package types

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
)

// Embedder is the embedding capability consumed by the pipeline:
// batch document embedding plus single query embedding, fixed dimension
// per provider. The langchaingo interface matches it exactly.
type Embedder = embeddings.Embedder

// IndexDocument is what gets handed to a vector index for storage:
// the chunk text plus the metadata that must survive a retrieval
// round trip (source_file, page_number, chunk_index, id).
type IndexDocument struct {
	Text     string
	Metadata map[string]interface{}
}

// Hit is a raw search result from a vector index, before the retriever
// normalizes it into a DocumentChunk.
type Hit struct {
	Text     string
	Metadata map[string]interface{}
	Score    float64
}

// VectorIndex is an opened handle onto a persisted index. Add upserts by
// id; adding an existing id replaces the prior entry. Search returns up to
// k hits in descending relevance order, and an empty slice (not an error)
// when the index is empty.
type VectorIndex interface {
	Add(ctx context.Context, docs []IndexDocument, ids []string) error
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	Close() error
}

// Generator produces an answer from a query and an assembled context block.
// Multimodal implementations also attach the given image files; text-only
// implementations ignore them. Tag identifies the backend in RAGAnswer.
type Generator interface {
	Tag() string
	Generate(ctx context.Context, query string, contextBlock string, images []string) (string, error)
}
