package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedModel answers GenerateContent with canned responses in order.
type scriptedModel struct {
	responses []string
	err       error
	calls     int
	lastInput string
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if text, ok := messages[len(messages)-1].Parts[0].(llms.TextContent); ok {
		m.lastInput = text.Text
	}
	if len(m.responses) == 0 {
		return &llms.ContentResponse{}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: resp}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

const articleJSON = `{"summary": "Schmerzmittel", "trade_names": [{"name": "Aspirin", "synonym": []}], "substances": [], "diseases": []}`

func TestExtractArticleMetadata(t *testing.T) {
	model := &scriptedModel{responses: []string{"```json\n" + articleJSON + "\n```"}}
	e := newMetadataExtractorWithModel(model, 20)

	raw, err := e.ExtractArticleMetadata(context.Background(), "Schmerzmittel", strings.Repeat("x", 100))
	require.NoError(t, err)
	assert.Equal(t, "Schmerzmittel", raw["summary"])
	assert.Len(t, raw["trade_names"], 1)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, "Titel: Schmerzmittel\n\n"+strings.Repeat("x", 20), model.lastInput)
}

func TestExtractArticleMetadata_RetriesMalformed(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`not json at all`,
		`{"summary": "nur Zusammenfassung"}`,
		`{summary": "ok", "trade_names": [], "substances": [], "diseases": [],}`,
	}}
	e := newMetadataExtractorWithModel(model, 0)

	raw, err := e.ExtractArticleMetadata(context.Background(), "t", "text")
	require.NoError(t, err)
	assert.Equal(t, "ok", raw["summary"])
	assert.Equal(t, 3, model.calls)
}

func TestExtractArticleMetadata_GivesUp(t *testing.T) {
	model := &scriptedModel{responses: []string{`{`, `{`, `{"summary": "x"}`, `unused`}}
	e := newMetadataExtractorWithModel(model, 0)

	_, err := e.ExtractArticleMetadata(context.Background(), "t", "text")
	assert.ErrorIs(t, err, ErrIncompleteResponse)
	assert.Equal(t, parseAttempts, model.calls)
}

func TestExtractDrugMetadata(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"product_name": "Aspirin", "dosage": "500 mg", "dosage_form": null}`}}
	e := newMetadataExtractorWithModel(model, 0)

	raw, err := e.ExtractDrugMetadata(context.Background(), "Aspirin 500 mg")
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", raw["product_name"])
	assert.Nil(t, raw["dosage_form"])
	assert.Equal(t, "Aspirin 500 mg", model.lastInput)
}

func TestExtract_TransportErrorsAreNotRetried(t *testing.T) {
	boom := errors.New("connection refused")
	model := &scriptedModel{err: boom}
	e := newMetadataExtractorWithModel(model, 0)

	_, err := e.ExtractDrugMetadata(context.Background(), "Aspirin")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, model.calls)
}

func TestExtract_NoChoices(t *testing.T) {
	e := newMetadataExtractorWithModel(&scriptedModel{}, 0)

	_, err := e.ExtractDrugMetadata(context.Background(), "Aspirin")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestBuildPrompts(t *testing.T) {
	assert.Contains(t, buildArticlePrompt(), `"trade_names"`)
	assert.Contains(t, buildDrugPrompt(), "Filmtabletten")
}
