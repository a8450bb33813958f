package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/keywords"
	"github.com/poiesic/acooeaz/storage"
)

// Bundle is a self-contained export: vocabulary, master records, compendium
// responses keyed by registration number and articles. Metadata already
// derived for drugs and articles can travel along and is attached after the
// import, so a bundle can be indexed without running the enrichment.
type Bundle struct {
	Vocabulary   []SISIndication           `json:"vocabulary"`
	Drugs        []SISRecord               `json:"drugs"`
	Compendium   map[string]*ACOResponse   `json:"compendium,omitempty"`
	DrugMetadata map[string]map[string]any `json:"drug_metadata,omitempty"`
	Articles     []BundleArticle           `json:"articles"`
}

// BundleArticle is an article with optional raw enrichment output.
type BundleArticle struct {
	core.Article
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BundleStats reports the outcome of ImportBundle.
type BundleStats struct {
	Vocabulary Stats
	Drugs      Stats
	Articles   Stats
	// Enriched counts the documents that received bundled metadata.
	Enriched int
}

// DecodeBundle decodes a JSON bundle.
func DecodeBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// Lookup serves compendium responses from the bundle. It returns nil when
// the bundle carries none, leaving drugs unassembled.
func (b *Bundle) Lookup() CompendiumLookup {
	if len(b.Compendium) == 0 {
		return nil
	}
	return func(_ context.Context, drug *core.Drug) (*ACOResponse, error) {
		resp, ok := b.Compendium[drug.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no entry for %s", ErrCompendium, drug.ID)
		}
		return resp, nil
	}
}

// ImportBundle imports vocabulary, drugs and articles, then attaches the
// bundled metadata.
func (p *Pipeline) ImportBundle(ctx context.Context, b *Bundle) (BundleStats, error) {
	var stats BundleStats

	tree, vs, err := p.ImportVocabulary(ctx, b.Vocabulary)
	stats.Vocabulary = vs
	if err != nil {
		return stats, err
	}

	stats.Drugs, err = p.ImportDrugs(ctx, b.Drugs, tree, b.Lookup())
	if err != nil {
		return stats, err
	}

	articles := make([]*core.Article, 0, len(b.Articles))
	for i := range b.Articles {
		articles = append(articles, &b.Articles[i].Article)
	}
	stats.Articles, err = p.ImportArticles(ctx, articles)
	if err != nil {
		return stats, err
	}

	stats.Enriched, err = p.attachMetadata(ctx, b)
	return stats, err
}

func (p *Pipeline) attachMetadata(ctx context.Context, b *Bundle) (int, error) {
	enriched := 0

	for _, id := range slices.Sorted(maps.Keys(b.DrugMetadata)) {
		if err := ctx.Err(); err != nil {
			return enriched, err
		}
		drug, err := p.drugs.GetDrug(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			// Skipped or failed during the import.
			continue
		}
		if err != nil {
			return enriched, err
		}
		if _, err := keywords.AttachDrugMeta(ctx, p.drugs, drug, b.DrugMetadata[id]); err != nil {
			p.logger.Warn("failed to attach drug metadata", "drug", id, "err", err)
			continue
		}
		enriched++
	}

	for i := range b.Articles {
		if err := ctx.Err(); err != nil {
			return enriched, err
		}
		a := &b.Articles[i]
		if a.Metadata == nil {
			continue
		}
		if _, err := keywords.Attach(ctx, p.articles, &a.Article, a.Metadata); err != nil {
			p.logger.Warn("failed to attach article metadata", "article", a.ID, "err", err)
			continue
		}
		enriched++
	}

	p.logger.Info("bundled metadata attached", "documents", enriched)
	return enriched, nil
}
