package badger

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage"
)

// ArticleRepository implements storage.ArticleRepository for BadgerDB.
// Besides the primary record it maintains a publication date index.
type ArticleRepository struct {
	backend *Backend
}

var _ storage.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(backend *Backend) *ArticleRepository {
	return &ArticleRepository{
		backend: backend,
	}
}

// GetArticle retrieves an article by ID.
func (r *ArticleRepository) GetArticle(ctx context.Context, id int64) (*core.Article, error) {
	var article *core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		article, err = readArticle(tx, makeArticleKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, storage.ErrNotFound
	}
	return article, nil
}

// UpsertArticle inserts the article or replaces the stored document.
func (r *ArticleRepository) UpsertArticle(ctx context.Context, article *core.Article) (storage.UpsertResult, error) {
	result, err := r.upsert(article)
	if err != nil {
		r.backend.logger.Error("failed to upsert article", "id", articleID(article), "err", err)
		return storage.UpsertFailed, err
	}
	return result, nil
}

func (r *ArticleRepository) upsert(article *core.Article) (storage.UpsertResult, error) {
	if err := core.ValidateArticle(article); err != nil {
		return storage.UpsertFailed, err
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}
	value, err := storage.MarshalArticle(article)
	if err != nil {
		return storage.UpsertFailed, err
	}

	result := storage.UpsertInserted
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeArticleKey(article.ID)

		old, err := readArticle(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			result = storage.UpsertReplaced
			if !old.PubDate.Equal(article.PubDate) {
				if err := tx.Delete(makeArticleDateKey(old.PubDate, old.ID)); err != nil {
					return err
				}
			}
		}

		if err := tx.Set(key, value); err != nil {
			return err
		}
		if err := tx.Set(makeArticleDateKey(article.PubDate, article.ID), []byte{}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.UpsertFailed, err
	}
	return result, nil
}

// Articles lazily yields articles matching the filter, ordered by ID.
func (r *ArticleRepository) Articles(ctx context.Context, filter storage.ArticleFilter) iter.Seq2[*core.Article, error] {
	return func(yield func(*core.Article, error) bool) {
		match, err := filter.Matcher()
		if err != nil {
			yield(nil, err)
			return
		}

		err = r.backend.Scan(ctx, []byte(articlePrefix), func(_, value []byte) (bool, error) {
			article, err := storage.UnmarshalArticle(value)
			if err != nil {
				return false, err
			}
			if !match(article) {
				return true, nil
			}
			return yield(article, nil), nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

// ListArticles returns one page of articles ordered by publication date.
func (r *ArticleRepository) ListArticles(ctx context.Context, offset, limit int) ([]*core.Article, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset %d, limit %d", storage.ErrInvalidQuery, offset, limit)
	}

	articles := make([]*core.Article, 0, limit)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(articleDatePrefix)
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()

		skipped := 0
		for it.Rewind(); it.Valid() && len(articles) < limit; it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			id := articleIDFromDateKey(it.Item().Key())
			article, err := readArticle(tx, makeArticleKey(id))
			if err != nil {
				return err
			}
			if article == nil {
				// Orphaned index entry
				continue
			}
			articles = append(articles, article)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// CountArticles returns the number of stored articles.
func (r *ArticleRepository) CountArticles(ctx context.Context) (int, error) {
	return r.backend.CountPrefix([]byte(articlePrefix))
}

// DeleteArticle removes an article and its date index entry.
func (r *ArticleRepository) DeleteArticle(ctx context.Context, id int64) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeArticleKey(id)
		article, err := readArticle(tx, key)
		if err != nil {
			return err
		}
		if article == nil {
			return storage.ErrNotFound
		}
		if err := tx.Delete(makeArticleDateKey(article.PubDate, article.ID)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readArticle reads an article within a transaction.
// Returns nil, nil if the key doesn't exist.
func readArticle(tx *badger.Txn, key []byte) (*core.Article, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var article *core.Article
	err = item.Value(func(val []byte) error {
		var err error
		article, err = storage.UnmarshalArticle(val)
		return err
	})
	return article, err
}

func articleID(article *core.Article) int64 {
	if article == nil {
		return 0
	}
	return article.ID
}
