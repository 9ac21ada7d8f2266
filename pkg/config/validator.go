package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration before any pipeline operation runs.
// Missing credentials for the selected providers are startup errors, not
// something to discover on the first request.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	switch c.Embedding.Provider {
	case "local", "openai", "gemini":
	default:
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("invalid provider %q, use one of: local, openai, gemini", c.Embedding.Provider),
		})
	}

	if c.Embedding.Provider == "openai" && c.Keys.OpenAI == "" {
		errors = append(errors, ValidationError{
			Field:   "OPENAI_API_KEY",
			Message: "required when embedding.provider is openai",
		})
	}
	if c.Embedding.Provider == "gemini" && c.Keys.Gemini == "" {
		errors = append(errors, ValidationError{
			Field:   "GEMINI_API_KEY",
			Message: "required when embedding.provider is gemini",
		})
	}

	// The text generation backend is always Groq, so its key is always
	// required. The Gemini key is only needed for multimodal queries and is
	// checked when one is issued.
	if c.Keys.Groq == "" {
		errors = append(errors, ValidationError{
			Field:   "GROQ_API_KEY",
			Message: "required for answer generation",
		})
	}

	if c.Chunking.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunking.chunk_size",
			Message: "chunk_size must be positive",
		})
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunking.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be at least 1",
		})
	}

	switch c.Storage.Backend {
	case "sqlite":
	case "pgvector":
		if c.Storage.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "storage.url",
				Message: "postgres connection string is required for the pgvector backend",
			})
		} else if _, err := url.Parse(c.Storage.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "storage.url",
				Message: "invalid database URL",
			})
		}
		if c.Storage.VectorDim < 1 {
			errors = append(errors, ValidationError{
				Field:   "storage.vector_dim",
				Message: "vector_dim must be positive",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q, use one of: sqlite, pgvector", c.Storage.Backend),
		})
	}

	if _, err := url.Parse(c.Embedding.OllamaBaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "embedding.ollama_base_url",
			Message: "invalid Ollama base URL",
		})
	}

	return errors
}
