package pipeline

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/pkg/chunker"
	"github.com/docsage/docsage/pkg/ingest"
	"github.com/docsage/docsage/pkg/store"
)

// Ingest extracts text from the given files, chunks it and upserts the
// chunks into the index at location. One failing file becomes a warning and
// does not abort the rest of the batch; storage failures do abort.
func Ingest(ctx context.Context, paths []string, c *chunker.Chunker, manager *store.Manager, embedder embeddings.Embedder, location string) (*models.IngestReport, error) {
	records, warnings := ingest.ExtractBatch(paths)

	chunks, err := c.Chunk(records)
	if err != nil {
		return nil, fmt.Errorf("chunking failed: %w", err)
	}
	if len(chunks) == 0 {
		warnings = append(warnings, "No chunks were created. Check document content/OCR.")
	}

	if _, err := manager.Upsert(ctx, chunks, embedder, location); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	return &models.IngestReport{
		Files:       len(paths),
		Records:     len(records),
		ChunksAdded: len(chunks),
		Warnings:    warnings,
	}, nil
}
