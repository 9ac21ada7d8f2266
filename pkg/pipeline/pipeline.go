package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/llm"
	"github.com/docsage/docsage/pkg/retriever"
)

const (
	noContextAnswer   = "I could not find relevant context in the indexed documents."
	noResultsWarning  = "Vector store returned no results."
	thresholdWarning  = "No chunks met the score threshold; using best available matches."
	noVisionWarning   = "No multimodal backend is configured; answering with the text backend."
	noContextModelTag = "none"
)

// Options control one answer operation.
type Options struct {
	TopK           int
	ScoreThreshold float64
	UseMultimodal  bool
	Images         []string
}

// Orchestrator turns retrieved evidence into a cited answer. The generation
// backends are fixed at construction; the multimodal one may be nil when no
// vision backend is configured.
type Orchestrator struct {
	text       types.Generator
	multimodal types.Generator
}

func New(text, multimodal types.Generator) *Orchestrator {
	return &Orchestrator{text: text, multimodal: multimodal}
}

// Answer retrieves the top-K chunks, filters them by score threshold and
// asks a generation backend for an answer grounded in the survivors.
//
// When the threshold filters out every result, the whole unfiltered set is
// used instead, with a warning: handing the generator weak context beats
// handing it none. When retrieval itself comes back empty, no generation
// call is made and a fixed "no context" answer is returned. A generation
// failure fails the whole operation; there is no answer to degrade to.
func (o *Orchestrator) Answer(ctx context.Context, query string, index types.VectorIndex, opts Options) (*models.RAGAnswer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	var warnings []string

	results, err := retriever.Retrieve(ctx, query, index, opts.TopK)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.RetrievalResult, 0, len(results))
	for _, result := range results {
		if result.Score >= opts.ScoreThreshold {
			filtered = append(filtered, result)
		}
	}
	if len(filtered) == 0 {
		filtered = results
		warnings = append(warnings, thresholdWarning)
	}

	if len(filtered) == 0 {
		return &models.RAGAnswer{
			AnswerText: noContextAnswer,
			Sources:    []models.RetrievalResult{},
			UsedModel:  noContextModelTag,
			Warnings:   []string{noResultsWarning},
		}, nil
	}

	generator := o.text
	var images []string
	if opts.UseMultimodal && len(opts.Images) > 0 {
		if o.multimodal != nil {
			generator = o.multimodal
			images = opts.Images
		} else {
			warnings = append(warnings, noVisionWarning)
		}
	}

	contextBlock := llm.BuildContext(filtered)
	answerText, err := generator.Generate(ctx, query, contextBlock, images)
	if err != nil {
		return nil, err
	}

	return &models.RAGAnswer{
		AnswerText: answerText,
		Sources:    filtered,
		UsedModel:  generator.Tag(),
		Warnings:   warnings,
	}, nil
}
