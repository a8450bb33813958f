// Package mock provides test doubles for the ai interfaces.
//
// Mocks are deterministic and need no network. Behavior can be replaced
// per test through the exported Func fields:
//
//	extractor := mock.NewMockMetadataExtractor()
//	extractor.ExtractDrugMetadataFunc = func(ctx context.Context, name string) (ai.Metadata, error) {
//	    return nil, errors.New("model offline")
//	}
//
// # Default Behavior
//
//   - ExtractArticleMetadata: capitalized title words become trade names
//   - ExtractDrugMetadata: the first word of the name is the product name
package mock
