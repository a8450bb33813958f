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

// Package search answers free-text lookups against the search indexes.
//
// Free text becomes a wildcard query: whitespace runs collapse into single
// wildcard gaps and the whole text is wrapped in wildcards, so "acetyl
// salicyl" looks for *acetyl*salicyl*. Queries left without a letter or
// digit after normalization are never submitted and return no hits, since
// a bare wildcard would match the whole index.
//
// Hits keep the engine's order. Equal scores have no defined order.
package search
