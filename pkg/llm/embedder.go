package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/docsage/docsage/pkg/config"
)

// NewEmbedder selects the embedding provider once, at configuration time.
// All providers sit behind the same embeddings.Embedder capability; mixing
// providers against one index would mix vector spaces, so the selection is
// per index lifetime.
func NewEmbedder(ctx context.Context, cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "local":
		client, err := ollama.New(
			ollama.WithModel(cfg.Embedding.LocalModel),
			ollama.WithServerURL(cfg.Embedding.OllamaBaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		return embeddings.NewEmbedder(client)

	case "openai":
		if cfg.Keys.OpenAI == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when embedding provider is openai")
		}
		client, err := openai.New(
			openai.WithToken(cfg.Keys.OpenAI),
			openai.WithEmbeddingModel(cfg.Embedding.OpenAIModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		return embeddings.NewEmbedder(client)

	case "gemini":
		if cfg.Keys.Gemini == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when embedding provider is gemini")
		}
		client, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.Keys.Gemini),
			googleai.WithDefaultEmbeddingModel(cfg.Embedding.GeminiModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini embedder: %w", err)
		}
		return embeddings.NewEmbedder(client)

	default:
		return nil, fmt.Errorf("invalid embedding provider %q, use one of: local, openai, gemini", cfg.Embedding.Provider)
	}
}
