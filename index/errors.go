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

package index

import "errors"

var (
	// ErrDrugRepositoryRequired is returned when a drug repository is not provided.
	ErrDrugRepositoryRequired = errors.New("drug repository required")

	// ErrArticleRepositoryRequired is returned when an article repository is not provided.
	ErrArticleRepositoryRequired = errors.New("article repository required")

	// ErrEngineRequired is returned when a search engine is not provided.
	ErrEngineRequired = errors.New("search engine required")

	// ErrPartialBulk indicates some rows of a bulk write were rejected.
	ErrPartialBulk = errors.New("bulk write partially failed")

	// ErrIndexNotFound is returned by engines searching an index that
	// doesn't exist yet.
	ErrIndexNotFound = errors.New("index not found")

	// ErrUnknownIndex indicates a name outside the managed indexes.
	ErrUnknownIndex = errors.New("unknown index")
)
