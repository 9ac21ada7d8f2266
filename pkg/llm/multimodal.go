package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/docsage/docsage/pkg/config"
)

// GeminiGenerator is the vision-capable generation backend. Images are read
// from disk and attached inline to the request.
type GeminiGenerator struct {
	llm *googleai.GoogleAI
}

func NewGeminiGenerator(ctx context.Context, cfg *config.Config) (*GeminiGenerator, error) {
	if cfg.Keys.Gemini == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for multimodal generation")
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.Keys.Gemini),
		googleai.WithDefaultModel(cfg.Generation.GeminiModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini backend: %w", err)
	}

	return &GeminiGenerator{llm: llm}, nil
}

func (g *GeminiGenerator) Tag() string { return "gemini" }

func (g *GeminiGenerator) Generate(ctx context.Context, query string, contextBlock string, images []string) (string, error) {
	parts := []llms.ContentPart{
		llms.TextPart(multimodalPrompt(query, contextBlock)),
	}

	for _, path := range images {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to attach image %s: %w", filepath.Base(path), err)
		}
		parts = append(parts, llms.BinaryPart(imageMIME(path), data))
	}

	content := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	response, err := g.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "No response generated.", nil
	}
	return response.Choices[0].Content, nil
}

func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
