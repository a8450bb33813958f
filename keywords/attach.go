package keywords

import (
	"context"
	"fmt"

	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage"
)

// Drug metadata keys.
const (
	KeyProductName = "product_name"
	KeyDosage      = "dosage"
	KeyDosageForm  = "dosage_form"
)

// Attach sets the article's metadata from raw enrichment output, promotes it
// to StateEnriched and persists it. The article is left untouched when the
// metadata violates the contract.
func Attach(ctx context.Context, repo storage.ArticleRepository, article *core.Article, raw map[string]any) (storage.UpsertResult, error) {
	if article == nil {
		return storage.UpsertFailed, core.ErrInvalidArticle
	}
	meta, err := Meta(raw)
	if err != nil {
		return storage.UpsertFailed, fmt.Errorf("article %d: %w", article.ID, err)
	}
	article.Meta = meta
	article.Processed = core.StateEnriched
	return repo.UpsertArticle(ctx, article)
}

// DrugMeta builds drug metadata from raw enrichment output. The product name
// is required; dosage fields are optional.
func DrugMeta(raw map[string]any) (*core.DrugMeta, error) {
	name, ok := raw[KeyProductName].(string)
	if !ok {
		return nil, fmt.Errorf("%w: metadata has no %q", core.ErrContractViolation, KeyProductName)
	}
	return &core.DrugMeta{
		ProductName: name,
		Dosage:      optionalString(raw[KeyDosage]),
		DosageForm:  optionalString(raw[KeyDosageForm]),
	}, nil
}

// AttachDrugMeta is the drug counterpart of Attach.
func AttachDrugMeta(ctx context.Context, repo storage.DrugRepository, drug *core.Drug, raw map[string]any) (storage.UpsertResult, error) {
	if drug == nil {
		return storage.UpsertFailed, core.ErrInvalidDrug
	}
	meta, err := DrugMeta(raw)
	if err != nil {
		return storage.UpsertFailed, fmt.Errorf("drug %s: %w", drug.ID, err)
	}
	drug.Meta = meta
	drug.Processed = core.StateEnriched
	return repo.UpsertDrug(ctx, drug)
}

func optionalString(value any) *string {
	s, ok := value.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
