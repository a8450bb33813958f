package mock

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/poiesic/acooeaz/ai"
)

// MockMetadataExtractor is a test double for ai.MetadataExtractor.
// It is safe for concurrent use.
type MockMetadataExtractor struct {
	// ExtractArticleMetadataFunc replaces the default article behavior when set.
	ExtractArticleMetadataFunc func(ctx context.Context, title, text string) (ai.Metadata, error)
	// ExtractDrugMetadataFunc replaces the default drug behavior when set.
	ExtractDrugMetadataFunc func(ctx context.Context, name string) (ai.Metadata, error)

	mu           sync.Mutex
	articleCalls int
	drugCalls    int
}

var _ ai.MetadataExtractor = (*MockMetadataExtractor)(nil)

// NewMockMetadataExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockMetadataExtractor() *MockMetadataExtractor {
	return &MockMetadataExtractor{}
}

// ExtractArticleMetadata reports every capitalized word of the title as a
// trade name and leaves the other categories empty.
func (m *MockMetadataExtractor) ExtractArticleMetadata(ctx context.Context, title, text string) (ai.Metadata, error) {
	m.mu.Lock()
	m.articleCalls++
	fn := m.ExtractArticleMetadataFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, title, text)
	}

	tradeNames := []any{}
	for _, word := range strings.Fields(title) {
		word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if r := []rune(word); len(r) > 0 && unicode.IsUpper(r[0]) {
			tradeNames = append(tradeNames, map[string]any{"name": word, "synonym": []any{}})
		}
	}
	return ai.Metadata{
		"summary":     title,
		"trade_names": tradeNames,
		"substances":  []any{},
		"diseases":    []any{},
	}, nil
}

// ExtractDrugMetadata uses the first word of the name as the product name.
func (m *MockMetadataExtractor) ExtractDrugMetadata(ctx context.Context, name string) (ai.Metadata, error) {
	m.mu.Lock()
	m.drugCalls++
	fn := m.ExtractDrugMetadataFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, name)
	}

	product := name
	if fields := strings.Fields(name); len(fields) > 0 {
		product = fields[0]
	}
	return ai.Metadata{"product_name": product, "dosage": nil, "dosage_form": nil}, nil
}

// ArticleCalls returns the number of article extractions.
func (m *MockMetadataExtractor) ArticleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.articleCalls
}

// DrugCalls returns the number of drug extractions.
func (m *MockMetadataExtractor) DrugCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drugCalls
}

// Reset clears the call counts and custom functions.
func (m *MockMetadataExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articleCalls = 0
	m.drugCalls = 0
	m.ExtractArticleMetadataFunc = nil
	m.ExtractDrugMetadataFunc = nil
}
