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

// Package keywords turns AI-derived metadata into typed keyword facts and
// attaches them to the documents they describe.
package keywords

import (
	"fmt"

	"github.com/poiesic/acooeaz/core"
)

// Metadata keys of the enrichment output.
const (
	KeySummary    = "summary"
	KeyTradeNames = "trade_names"
	KeySubstances = "substances"
	KeyDiseases   = "diseases"

	keyName    = "name"
	keySynonym = "synonym"
)

// categories lists the metadata keys in extraction order.
var categories = []struct {
	key  string
	kind core.KeywordKind
}{
	{KeyTradeNames, core.KindTradeName},
	{KeySubstances, core.KindSubstance},
	{KeyDiseases, core.KindDisease},
}

// CategoryKey returns the metadata key holding entries of the given kind.
func CategoryKey(kind core.KeywordKind) (string, error) {
	switch kind {
	case core.KindTradeName:
		return KeyTradeNames, nil
	case core.KindSubstance:
		return KeySubstances, nil
	case core.KindDisease:
		return KeyDiseases, nil
	}
	return "", fmt.Errorf("%w: %d", core.ErrUnknownKeywordKind, int(kind))
}

// Extract flattens raw metadata into keyword facts. Each entry yields one
// fact for its name followed by one per synonym, tagged with the kind of its
// category. Categories are visited trade names first, then substances, then
// diseases.
//
// Entries without a usable name contribute nothing. A missing category is an
// ingestion contract violation.
func Extract(raw map[string]any) ([]core.KeywordFact, error) {
	var facts []core.KeywordFact
	for _, cat := range categories {
		value, ok := raw[cat.key]
		if !ok {
			return nil, fmt.Errorf("%w: metadata has no %q", core.ErrContractViolation, cat.key)
		}
		facts = append(facts, extractCategory(value, cat.kind)...)
	}
	return facts, nil
}

func extractCategory(value any, kind core.KeywordKind) []core.KeywordFact {
	entries, ok := value.([]any)
	if !ok {
		return nil
	}

	var facts []core.KeywordFact
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name, ok := entry[keyName].(string)
		if !ok || name == "" {
			continue
		}
		facts = append(facts, core.KeywordFact{Name: name, Kind: kind})
		for _, syn := range stringList(entry[keySynonym]) {
			facts = append(facts, core.KeywordFact{Name: syn, Kind: kind})
		}
	}
	return facts
}

// stringList accepts a single string or a list and drops blanks.
func stringList(value any) []string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Meta builds article metadata from raw enrichment output. Keywords are
// unique by name; the first occurrence wins.
func Meta(raw map[string]any) (*core.ArticleMeta, error) {
	facts, err := Extract(raw)
	if err != nil {
		return nil, err
	}
	meta := &core.ArticleMeta{Keywords: make([]core.KeywordFact, 0, len(facts))}
	if summary, ok := raw[KeySummary].(string); ok {
		meta.Summary = summary
	}
	for _, fact := range facts {
		meta.AddKeyword(fact)
	}
	return meta, nil
}
