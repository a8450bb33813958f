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

package mock

import "github.com/poiesic/acooeaz/ai"

// MockProvider is a test double for ai.Provider.
type MockProvider struct {
	extractor *MockMetadataExtractor
}

// NewMockProvider creates a provider backed by a default mock extractor.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetMockExtractor() to access the concrete type for test assertions.
func NewMockProvider() ai.Provider {
	return NewMockProviderWithExtractor(NewMockMetadataExtractor())
}

// NewMockProviderWithExtractor creates a provider around a custom mock extractor.
func NewMockProviderWithExtractor(extractor *MockMetadataExtractor) ai.Provider {
	return &MockProvider{extractor: extractor}
}

// MetadataExtractor returns the mock extractor.
func (p *MockProvider) MetadataExtractor() ai.MetadataExtractor {
	return p.extractor
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockExtractor returns the underlying mock extractor for test assertions.
func (p *MockProvider) GetMockExtractor() *MockMetadataExtractor {
	return p.extractor
}
