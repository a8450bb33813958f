package storage

import (
	"context"
	"iter"

	"github.com/poiesic/acooeaz/core"
)

// UpsertResult tells the caller what an upsert did.
type UpsertResult int

const (
	// UpsertFailed means nothing was written. The error is logged by the
	// repository and returned alongside.
	UpsertFailed UpsertResult = iota
	// UpsertInserted means the natural id was new.
	UpsertInserted
	// UpsertReplaced means an existing document was overwritten entirely.
	UpsertReplaced
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertInserted:
		return "inserted"
	case UpsertReplaced:
		return "replaced"
	default:
		return "failed"
	}
}

// DrugRepository provides operations for compendium entries.
type DrugRepository interface {
	// GetDrug retrieves a drug by natural id.
	// Returns ErrNotFound if the drug doesn't exist.
	GetDrug(ctx context.Context, id string) (*core.Drug, error)

	// UpsertDrug inserts the drug or replaces the stored document with the same id.
	UpsertDrug(ctx context.Context, drug *core.Drug) (UpsertResult, error)

	// Drugs lazily yields all drugs matching the filter, ordered by id.
	Drugs(ctx context.Context, filter DrugFilter) iter.Seq2[*core.Drug, error]

	// DeleteDrug removes a drug.
	// Returns ErrNotFound if the drug doesn't exist.
	DeleteDrug(ctx context.Context, id string) error

	// CountDrugs returns the number of stored drugs.
	CountDrugs(ctx context.Context) (int, error)
}

// ArticleRepository provides operations for magazine articles.
type ArticleRepository interface {
	// GetArticle retrieves an article by id.
	// Returns ErrNotFound if the article doesn't exist.
	GetArticle(ctx context.Context, id int64) (*core.Article, error)

	// UpsertArticle inserts the article or replaces the stored document with the same id.
	UpsertArticle(ctx context.Context, article *core.Article) (UpsertResult, error)

	// Articles lazily yields all articles matching the filter, ordered by id.
	Articles(ctx context.Context, filter ArticleFilter) iter.Seq2[*core.Article, error]

	// ListArticles returns one page of articles ordered by publication date.
	ListArticles(ctx context.Context, offset, limit int) ([]*core.Article, error)

	// CountArticles returns the number of stored articles.
	CountArticles(ctx context.Context) (int, error)

	// DeleteArticle removes an article.
	// Returns ErrNotFound if the article doesn't exist.
	DeleteArticle(ctx context.Context, id int64) error
}

// VocabularyRepository provides operations for the indication vocabulary.
type VocabularyRepository interface {
	// GetIndication retrieves a term by code.
	// Returns ErrNotFound if the term doesn't exist.
	GetIndication(ctx context.Context, code string) (*core.Indication, error)

	// UpsertIndication inserts the term or replaces the stored term with the same code.
	UpsertIndication(ctx context.Context, indication *core.Indication) (UpsertResult, error)

	// Indications lazily yields all terms ordered by code.
	Indications(ctx context.Context) iter.Seq2[*core.Indication, error]
}

// Store aggregates the document families of one backend.
type Store interface {
	DrugRepository
	ArticleRepository
	VocabularyRepository

	// Close closes the storage backend and releases resources.
	Close() error
}
