package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/pipeline"
)

type fakeIndex struct {
	hits      []types.Hit
	searchErr error
}

func (f *fakeIndex) Add(ctx context.Context, docs []types.IndexDocument, ids []string) error {
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, k int) ([]types.Hit, error) {
	return f.hits, f.searchErr
}

func (f *fakeIndex) Close() error { return nil }

type fakeGenerator struct {
	tag        string
	answer     string
	err        error
	calls      int
	lastImages []string
}

func (f *fakeGenerator) Tag() string { return f.tag }

func (f *fakeGenerator) Generate(ctx context.Context, query, contextBlock string, images []string) (string, error) {
	f.calls++
	f.lastImages = images
	return f.answer, f.err
}

func hit(text string, score float64) types.Hit {
	return types.Hit{
		Text: text,
		Metadata: map[string]interface{}{
			"source_file": "doc.txt",
			"chunk_index": float64(0),
		},
		Score: score,
	}
}

func TestAnswer(t *testing.T) {
	index := &fakeIndex{hits: []types.Hit{
		hit("Strong evidence.", 0.9),
		hit("Weak evidence.", 0.1),
	}}
	text := &fakeGenerator{tag: "groq", answer: "The answer [S1]."}

	o := pipeline.New(text, nil)
	answer, err := o.Answer(context.Background(), "what happened?", index, pipeline.Options{
		TopK:           5,
		ScoreThreshold: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "The answer [S1].", answer.AnswerText)
	assert.Equal(t, "groq", answer.UsedModel)
	assert.Empty(t, answer.Warnings)
	require.Len(t, answer.Sources, 1, "the below-threshold hit should be filtered out")
	assert.Equal(t, "Strong evidence.", answer.Sources[0].Chunk.Text)
	assert.Equal(t, 1, text.calls)
}

func TestAnswer_ThresholdFallback(t *testing.T) {
	index := &fakeIndex{hits: []types.Hit{
		hit("Weak evidence one.", 0.15),
		hit("Weak evidence two.", 0.05),
	}}
	text := &fakeGenerator{tag: "groq", answer: "Best effort answer."}

	o := pipeline.New(text, nil)
	answer, err := o.Answer(context.Background(), "anything?", index, pipeline.Options{
		TopK:           5,
		ScoreThreshold: 0.2,
	})
	require.NoError(t, err)

	assert.Len(t, answer.Sources, 2, "all hits should be kept when none clear the threshold")
	require.Len(t, answer.Warnings, 1)
	assert.Equal(t, "No chunks met the score threshold; using best available matches.", answer.Warnings[0])
	assert.Equal(t, 1, text.calls)
}

func TestAnswer_NoHits(t *testing.T) {
	text := &fakeGenerator{tag: "groq", answer: "should never be used"}

	o := pipeline.New(text, nil)
	answer, err := o.Answer(context.Background(), "anything?", &fakeIndex{}, pipeline.Options{
		TopK:           5,
		ScoreThreshold: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "I could not find relevant context in the indexed documents.", answer.AnswerText)
	assert.Equal(t, "none", answer.UsedModel)
	assert.Empty(t, answer.Sources)
	require.Len(t, answer.Warnings, 1)
	assert.Equal(t, "Vector store returned no results.", answer.Warnings[0])
	assert.Zero(t, text.calls, "no generation call without context")
}

func TestAnswer_MultimodalSelection(t *testing.T) {
	index := &fakeIndex{hits: []types.Hit{hit("Chart shows growth.", 0.8)}}
	text := &fakeGenerator{tag: "groq", answer: "text answer"}
	vision := &fakeGenerator{tag: "gemini", answer: "vision answer"}

	o := pipeline.New(text, vision)

	// Multimodal requested with images attached: the vision backend runs.
	answer, err := o.Answer(context.Background(), "what does the chart show?", index, pipeline.Options{
		TopK:           5,
		ScoreThreshold: 0.2,
		UseMultimodal:  true,
		Images:         []string{"chart.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", answer.UsedModel)
	assert.Equal(t, []string{"chart.png"}, vision.lastImages)
	assert.Zero(t, text.calls)

	// Multimodal requested without images: falls back to text.
	answer, err = o.Answer(context.Background(), "what does the chart show?", index, pipeline.Options{
		TopK:           5,
		ScoreThreshold: 0.2,
		UseMultimodal:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "groq", answer.UsedModel)
	assert.Equal(t, 1, text.calls)

	// No vision backend configured: text answers even with images, and the
	// degraded selection is surfaced as a warning.
	noVision := pipeline.New(text, nil)
	answer, err = noVision.Answer(context.Background(), "what does the chart show?", index, pipeline.Options{
		TopK:           5,
		ScoreThreshold: 0.2,
		UseMultimodal:  true,
		Images:         []string{"chart.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "groq", answer.UsedModel)
	require.Len(t, answer.Warnings, 1)
	assert.Equal(t, "No multimodal backend is configured; answering with the text backend.", answer.Warnings[0])
}

func TestAnswer_EmptyQuery(t *testing.T) {
	o := pipeline.New(&fakeGenerator{tag: "groq"}, nil)

	_, err := o.Answer(context.Background(), "   ", &fakeIndex{}, pipeline.Options{TopK: 5})
	assert.Error(t, err)
}

func TestAnswer_GenerationError(t *testing.T) {
	index := &fakeIndex{hits: []types.Hit{hit("Some evidence.", 0.9)}}
	text := &fakeGenerator{tag: "groq", err: errors.New("backend unavailable")}

	o := pipeline.New(text, nil)
	_, err := o.Answer(context.Background(), "anything?", index, pipeline.Options{
		TopK:           5,
		ScoreThreshold: 0.2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestAnswer_RetrievalError(t *testing.T) {
	index := &fakeIndex{searchErr: errors.New("index unavailable")}

	o := pipeline.New(&fakeGenerator{tag: "groq"}, nil)
	_, err := o.Answer(context.Background(), "anything?", index, pipeline.Options{
		TopK:           5,
		ScoreThreshold: 0.2,
	})
	assert.Error(t, err)
}
