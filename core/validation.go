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

package core

import (
	"fmt"
	"strings"
)

// ValidateDrug validates a Drug according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Name must not be empty
//   - Processed must be raw or enriched
//
// NOT validated (filled in by enrichment):
//   - Meta
func ValidateDrug(drug *Drug) error {
	if drug == nil {
		return fmt.Errorf("%w: drug is nil", ErrInvalidDrug)
	}

	if strings.TrimSpace(drug.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDrug, ErrEmptyDrugID)
	}

	if strings.TrimSpace(drug.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDrug, ErrEmptyDrugName)
	}

	if err := validateState(drug.Processed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDrug, err)
	}

	return nil
}

// ValidateArticle validates an Article according to domain rules.
//
// Validation rules:
//   - ID must be positive
//   - Processed must be raw or enriched
//   - every keyword fact must be valid
//
// An enriched article without Meta passes validation. The index builder
// treats it as a contract violation instead.
func ValidateArticle(article *Article) error {
	if article == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidArticle)
	}

	if article.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, ErrInvalidArticleID)
	}

	if err := validateState(article.Processed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, err)
	}

	if article.Meta != nil {
		for _, kw := range article.Meta.Keywords {
			if err := ValidateKeywordFact(kw); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidArticle, err)
			}
		}
	}

	return nil
}

// ValidateKeywordFact validates a single keyword fact.
func ValidateKeywordFact(fact KeywordFact) error {
	if strings.TrimSpace(fact.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidKeyword)
	}
	if !fact.Kind.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrInvalidKeyword, ErrUnknownKeywordKind, int(fact.Kind))
	}
	return nil
}

func validateState(state ProcessingState) error {
	switch state {
	case StateRaw, StateEnriched:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidProcessingState, int(state))
}
