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

// Package storage provides the document store abstraction for acooeaz.
//
// Three document families are stored: drugs, articles and the indication
// vocabulary. Each family is keyed by its natural id and written with
// upsert semantics: an insert that collides with an existing id replaces the
// whole document.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Store: aggregate of all repositories plus lifecycle
//   - DrugRepository: compendium entries
//   - ArticleRepository: magazine articles
//   - VocabularyRepository: indication terms
//
// Two backends exist. storage/badger is embedded and is the default;
// storage/postgres keeps documents in jsonb columns.
//
// # Lazy sequences
//
// Drugs, Articles and Indications return iter.Seq2 sequences. Documents are
// read while the caller ranges over them, so a full rebuild never holds the
// whole collection in memory. Backends keep long iterations alive on their
// own and release cursors when the loop ends, breaks or fails.
//
//	for drug, err := range store.Drugs(ctx, storage.EnrichedDrugs()) {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use.
package storage
