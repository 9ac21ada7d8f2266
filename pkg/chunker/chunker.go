package chunker

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/docsage/docsage/internal/models"
)

// separators order the split preference: paragraph, then line, then
// sentence, then word, then a hard character cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	// LenFunc measures text length during splitting. When nil, token
	// counting via the cl100k_base encoding is used, falling back to rune
	// counting if the encoding cannot be initialized.
	LenFunc func(string) int
}

// Chunker splits extracted text records into overlapping, size-bounded
// chunks with deterministic content-derived ids.
type Chunker struct {
	config   Config
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config Config) (*Chunker, error) {
	if config.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", config.ChunkOverlap)
	}
	if config.LenFunc == nil {
		config.LenFunc = defaultLenFunc()
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators(separators),
		textsplitter.WithLenFunc(config.LenFunc),
	)

	return &Chunker{config: config, splitter: splitter}, nil
}

// Chunk splits every record into pieces and assigns provenance. Records
// with empty or whitespace-only text produce no chunks. ChunkIndex restarts
// at 0 for every record. Given the same input the same chunks, in the same
// order with the same ids, come out every time.
func (c *Chunker) Chunk(records []models.TextRecord) ([]models.DocumentChunk, error) {
	var output []models.DocumentChunk

	for _, record := range records {
		text := strings.TrimSpace(record.Text)
		if text == "" {
			continue
		}

		sourceFile := record.SourceFile
		if sourceFile == "" {
			sourceFile = "unknown"
		}

		pieces, err := c.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", sourceFile, err)
		}

		idx := 0
		for _, piece := range pieces {
			if strings.TrimSpace(piece) == "" {
				continue
			}

			metadata := map[string]interface{}{
				"source_file": sourceFile,
				"chunk_index": idx,
			}
			if record.PageNumber != nil {
				metadata["page_number"] = *record.PageNumber
			}

			output = append(output, models.DocumentChunk{
				ID:         chunkID(sourceFile, record.PageNumber, idx, piece),
				Text:       piece,
				SourceFile: sourceFile,
				PageNumber: record.PageNumber,
				ChunkIndex: idx,
				Metadata:   metadata,
			})
			idx++
		}
	}

	return output, nil
}

// chunkID hashes the chunk's position and content, so re-ingesting the same
// file upserts rather than duplicates.
func chunkID(sourceFile string, page *int, index int, text string) string {
	pageLabel := ""
	if page != nil {
		pageLabel = fmt.Sprintf("%d", *page)
	}
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d|%s", sourceFile, pageLabel, index, text)))
	return hex.EncodeToString(sum[:])
}

func defaultLenFunc() func(string) int {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return utf8.RuneCountInString
	}
	return func(text string) int {
		return len(encoding.Encode(text, nil, nil))
	}
}
