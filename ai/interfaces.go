package ai

import "context"

// Metadata is the raw dictionary produced by an extractor.
type Metadata = map[string]any

// MetadataExtractor derives search metadata from document text.
type MetadataExtractor interface {
	// ExtractArticleMetadata returns a summary plus the trade names,
	// substances and diseases mentioned in an article. Each category is a
	// list of {"name": ..., "synonym": [...]} entries.
	ExtractArticleMetadata(ctx context.Context, title, text string) (Metadata, error)

	// ExtractDrugMetadata splits a registered product name into product
	// name, dosage and dosage form.
	ExtractDrugMetadata(ctx context.Context, name string) (Metadata, error)
}

// Provider aggregates AI services.
type Provider interface {
	// MetadataExtractor returns the extraction service.
	// The returned extractor is safe for concurrent use.
	MetadataExtractor() MetadataExtractor

	// Close releases resources held by the provider.
	Close() error
}
