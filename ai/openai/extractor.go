// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/acooeaz/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// parseAttempts bounds how often a malformed response is regenerated.
const parseAttempts = 3

var (
	// ErrEmptyResponse is returned when the model produced no choices.
	ErrEmptyResponse = errors.New("model returned no choices")

	// ErrIncompleteResponse is returned when the response lacks a required key.
	ErrIncompleteResponse = errors.New("model response is missing required keys")
)

var (
	articleKeys = []string{"summary", "trade_names", "substances", "diseases"}
	drugKeys    = []string{"product_name"}
)

// MetadataExtractor implements ai.MetadataExtractor using OpenAI-compatible chat APIs.
type MetadataExtractor struct {
	client        llms.Model
	maxInputChars int
	logger        *slog.Logger
}

func newMetadataExtractor(config *ai.Config) (*MetadataExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}
	return newMetadataExtractorWithModel(client, config.MaxInputChars), nil
}

func newMetadataExtractorWithModel(client llms.Model, maxInputChars int) *MetadataExtractor {
	return &MetadataExtractor{
		client:        client,
		maxInputChars: maxInputChars,
		logger:        slog.Default().With("component", "openai-extractor"),
	}
}

// NewMetadataExtractor creates an extractor using the provided configuration.
//
// Returns ai.MetadataExtractor interface to enforce abstraction.
func NewMetadataExtractor(config *ai.Config) (ai.MetadataExtractor, error) {
	return newMetadataExtractor(config)
}

// ExtractArticleMetadata asks the model for the article's summary and keywords.
func (e *MetadataExtractor) ExtractArticleMetadata(ctx context.Context, title, text string) (ai.Metadata, error) {
	input := "Titel: " + scrubText(title) + "\n\n" + truncate(scrubText(text), e.maxInputChars)
	return e.generate(ctx, buildArticlePrompt(), input, articleKeys)
}

// ExtractDrugMetadata asks the model to split a registered product name.
func (e *MetadataExtractor) ExtractDrugMetadata(ctx context.Context, name string) (ai.Metadata, error) {
	return e.generate(ctx, buildDrugPrompt(), scrubText(name), drugKeys)
}

func (e *MetadataExtractor) generate(ctx context.Context, systemPrompt, input string, required []string) (ai.Metadata, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}

	var lastErr error
	for attempt := 1; attempt <= parseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			return nil, ErrEmptyResponse
		}

		responseText := repairJSON(stripFences(response.Choices[0].Content))

		var result ai.Metadata
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing model response", "attempt", attempt, "response", responseText, "err", err)
			continue
		}
		if missing := missingKey(result, required); missing != "" {
			lastErr = fmt.Errorf("%w: %q", ErrIncompleteResponse, missing)
			e.logger.Warn("incomplete model response", "attempt", attempt, "missing", missing)
			continue
		}
		return result, nil
	}

	e.logger.Error("failed to parse model response after retries", "err", lastErr)
	return nil, lastErr
}

func missingKey(m ai.Metadata, keys []string) string {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return k
		}
	}
	return ""
}
