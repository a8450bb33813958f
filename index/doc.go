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

// Package index rebuilds the derived search indexes from the document store.
//
// Five indexes exist: one per keyword kind linking vocabulary names to
// articles, one free-text drug index and one active-substance index. All of
// them are disposable projections. A rebuild drops and recreates them; there
// is no incremental update path.
package index
