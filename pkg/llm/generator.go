package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/docsage/docsage/pkg/config"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqGenerator is the text-only generation backend. Groq serves an
// OpenAI-compatible API, so it reuses the openai client with a different
// base URL.
type GroqGenerator struct {
	llm         *openai.LLM
	temperature float64
	maxTokens   int
}

func NewGroqGenerator(cfg *config.Config) (*GroqGenerator, error) {
	if cfg.Keys.Groq == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required for answer generation")
	}

	llm, err := openai.New(
		openai.WithToken(cfg.Keys.Groq),
		openai.WithModel(cfg.Generation.GroqModel),
		openai.WithBaseURL(groqBaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize groq backend: %w", err)
	}

	return &GroqGenerator{
		llm:         llm,
		temperature: cfg.Generation.Temperature,
		maxTokens:   cfg.Generation.MaxTokens,
	}, nil
}

func (g *GroqGenerator) Tag() string { return "groq" }

func (g *GroqGenerator) Generate(ctx context.Context, query string, contextBlock string, _ []string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, textPrompt(query, contextBlock)),
	}

	response, err := g.llm.GenerateContent(ctx, content,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("groq generation failed: %w", err)
	}

	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "No response generated.", nil
	}
	return response.Choices[0].Content, nil
}
