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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDrug indicates a Drug failed validation.
	ErrInvalidDrug = errors.New("invalid drug")

	// ErrEmptyDrugID indicates the drug ID field is empty.
	ErrEmptyDrugID = errors.New("drug id cannot be empty")

	// ErrEmptyDrugName indicates the drug Name field is empty.
	ErrEmptyDrugName = errors.New("drug name cannot be empty")

	// ErrInvalidArticle indicates an Article failed validation.
	ErrInvalidArticle = errors.New("invalid article")

	// ErrInvalidArticleID indicates a non-positive article ID.
	ErrInvalidArticleID = errors.New("article id must be positive")

	// ErrInvalidKeyword indicates a KeywordFact failed validation.
	ErrInvalidKeyword = errors.New("invalid keyword")

	// ErrUnknownKeywordKind indicates a kind outside trade_name, substance, disease.
	ErrUnknownKeywordKind = errors.New("unknown keyword kind")

	// ErrInvalidProcessingState indicates a state other than raw or enriched.
	ErrInvalidProcessingState = errors.New("invalid processing state")

	// ErrContractViolation indicates upstream data that breaks the ingestion
	// contract, e.g. an enriched article without metadata. Rebuilds abort on it.
	ErrContractViolation = errors.New("ingestion contract violation")
)
