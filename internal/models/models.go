package models

// TextRecord is one unit of extracted text as produced by the ingestion
// layer: the full text of a .txt file, a single PDF page, or the OCR output
// of one image. PageNumber is nil for sources without page structure.
type TextRecord struct {
	Text       string
	SourceFile string
	PageNumber *int
}

// DocumentChunk is the unit of embedding and retrieval. ID is a
// content-derived hash and doubles as the upsert key: the same text at the
// same position in the same file always hashes to the same ID.
type DocumentChunk struct {
	ID         string
	Text       string
	SourceFile string
	PageNumber *int
	ChunkIndex int
	Metadata   map[string]interface{}
}

// RetrievalResult pairs a chunk reconstructed from the index with the
// relevance score the index assigned to it. Score semantics belong to the
// index backend; higher is always more relevant.
type RetrievalResult struct {
	Chunk DocumentChunk
	Score float64
}

// RAGAnswer is the output of a single answer operation. Sources are in
// retrieval rank order and are the basis for [S#] citation tags.
type RAGAnswer struct {
	AnswerText string
	Sources    []RetrievalResult
	UsedModel  string
	Warnings   []string
}

// IngestReport summarizes one ingestion batch. Per-file failures end up in
// Warnings instead of aborting the batch.
type IngestReport struct {
	Files       int
	Records     int
	ChunksAdded int
	Warnings    []string
}
