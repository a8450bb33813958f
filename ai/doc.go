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

// Package ai defines the language model services used to enrich stored
// documents with search metadata.
//
// The enrichment job depends only on the interfaces declared here. Two
// implementation packages are provided:
//
//   - ai/openai: OpenAI-compatible chat APIs (Ollama, vLLM, OpenAI) via langchaingo
//   - ai/mock: deterministic test doubles
//
// Extractors return the raw metadata dictionary exactly as the model
// produced it. Interpreting it into keyword facts is the job of the
// keywords package, which treats a malformed dictionary as a contract
// violation.
//
// # Usage
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithModel("qwen2.5:7b")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	raw, err := provider.MetadataExtractor().ExtractArticleMetadata(ctx, title, text)
package ai
