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

// Package postgres stores the document families as jsonb rows.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage"
)

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
	owned  bool
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to dsn and makes sure the schema exists.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := New(db, opts...)
	s.owned = true
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool. Closing the store leaves it open.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "postgres-store")
	return s
}

// Close closes the connection pool if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// GetDrug retrieves a drug by natural id.
func (s *Store) GetDrug(ctx context.Context, id string) (*core.Drug, error) {
	doc, err := s.getDoc(ctx, `SELECT doc FROM drugs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalDrug(doc)
}

// UpsertDrug inserts the drug or replaces the stored document.
func (s *Store) UpsertDrug(ctx context.Context, drug *core.Drug) (storage.UpsertResult, error) {
	if err := core.ValidateDrug(drug); err != nil {
		return s.failed("drug", "", err)
	}
	doc, err := storage.MarshalDrug(drug)
	if err != nil {
		return s.failed("drug", drug.ID, err)
	}

	query := `
		INSERT INTO drugs (id, name, processed, doc)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			processed = EXCLUDED.processed,
			doc = EXCLUDED.doc
		RETURNING (xmax = 0) AS inserted`

	return s.upsert(ctx, "drug", drug.ID, query, drug.ID, drug.Name, int(drug.Processed), string(doc))
}

// Drugs lazily yields drugs matching the filter, ordered by id.
func (s *Store) Drugs(ctx context.Context, filter storage.DrugFilter) iter.Seq2[*core.Drug, error] {
	var where []string
	var args []any
	if filter.Processed != nil {
		args = append(args, int(*filter.Processed))
		where = append(where, fmt.Sprintf("processed = $%d", len(args)))
	}
	if filter.NamePrefix != "" {
		args = append(args, escapeLike(filter.NamePrefix)+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	query := `SELECT doc FROM drugs` + whereClause(where) + ` ORDER BY id`
	return streamDocs(ctx, s.db, query, args, storage.UnmarshalDrug)
}

// DeleteDrug removes a drug.
func (s *Store) DeleteDrug(ctx context.Context, id string) error {
	return s.delete(ctx, `DELETE FROM drugs WHERE id = $1`, id)
}

// CountDrugs returns the number of stored drugs.
func (s *Store) CountDrugs(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM drugs`)
}

// GetArticle retrieves an article by ID.
func (s *Store) GetArticle(ctx context.Context, id int64) (*core.Article, error) {
	doc, err := s.getDoc(ctx, `SELECT doc FROM articles WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalArticle(doc)
}

// UpsertArticle inserts the article or replaces the stored document.
func (s *Store) UpsertArticle(ctx context.Context, article *core.Article) (storage.UpsertResult, error) {
	if err := core.ValidateArticle(article); err != nil {
		return s.failed("article", "", err)
	}
	doc, err := storage.MarshalArticle(article)
	if err != nil {
		return s.failed("article", fmt.Sprint(article.ID), err)
	}

	query := `
		INSERT INTO articles (id, section, pubdate, processed, doc)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			section = EXCLUDED.section,
			pubdate = EXCLUDED.pubdate,
			processed = EXCLUDED.processed,
			doc = EXCLUDED.doc
		RETURNING (xmax = 0) AS inserted`

	return s.upsert(ctx, "article", fmt.Sprint(article.ID), query,
		article.ID, article.Section, article.PubDate, int(article.Processed), string(doc))
}

// Articles lazily yields articles matching the filter, ordered by ID.
func (s *Store) Articles(ctx context.Context, filter storage.ArticleFilter) iter.Seq2[*core.Article, error] {
	var where []string
	var args []any
	if filter.Processed != nil {
		args = append(args, int(*filter.Processed))
		where = append(where, fmt.Sprintf("processed = $%d", len(args)))
	}
	if filter.SectionPattern != "" {
		// Validate with the Go engine so both backends reject the same patterns.
		if _, err := filter.Matcher(); err != nil {
			return func(yield func(*core.Article, error) bool) { yield(nil, err) }
		}
		args = append(args, filter.SectionPattern)
		where = append(where, fmt.Sprintf("section ~* $%d", len(args)))
	}
	query := `SELECT doc FROM articles` + whereClause(where) + ` ORDER BY id`
	return streamDocs(ctx, s.db, query, args, storage.UnmarshalArticle)
}

// ListArticles returns one page of articles ordered by publication date.
func (s *Store) ListArticles(ctx context.Context, offset, limit int) ([]*core.Article, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset %d, limit %d", storage.ErrInvalidQuery, offset, limit)
	}

	var docs []string
	err := s.db.SelectContext(ctx, &docs,
		`SELECT doc FROM articles ORDER BY pubdate, id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}

	articles := make([]*core.Article, 0, len(docs))
	for _, doc := range docs {
		article, err := storage.UnmarshalArticle([]byte(doc))
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// CountArticles returns the number of stored articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM articles`)
}

// DeleteArticle removes an article.
func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	return s.delete(ctx, `DELETE FROM articles WHERE id = $1`, id)
}

// GetIndication retrieves a term by code.
func (s *Store) GetIndication(ctx context.Context, code string) (*core.Indication, error) {
	doc, err := s.getDoc(ctx, `SELECT doc FROM vocabulary WHERE code = $1`, code)
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalIndication(doc)
}

// UpsertIndication inserts the term or replaces the stored term.
func (s *Store) UpsertIndication(ctx context.Context, indication *core.Indication) (storage.UpsertResult, error) {
	if indication == nil || indication.Code == "" {
		return s.failed("indication", "", fmt.Errorf("%w: indication without code", storage.ErrInvalidQuery))
	}
	doc, err := storage.MarshalIndication(indication)
	if err != nil {
		return s.failed("indication", indication.Code, err)
	}

	query := `
		INSERT INTO vocabulary (code, doc)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (code) DO UPDATE SET doc = EXCLUDED.doc
		RETURNING (xmax = 0) AS inserted`

	return s.upsert(ctx, "indication", indication.Code, query, indication.Code, string(doc))
}

// Indications lazily yields all terms ordered by code.
func (s *Store) Indications(ctx context.Context) iter.Seq2[*core.Indication, error] {
	return streamDocs(ctx, s.db, `SELECT doc FROM vocabulary ORDER BY code`, nil, storage.UnmarshalIndication)
}

func (s *Store) upsert(ctx context.Context, family, id, query string, args ...any) (storage.UpsertResult, error) {
	var inserted bool
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&inserted); err != nil {
		return s.failed(family, id, err)
	}
	if inserted {
		return storage.UpsertInserted, nil
	}
	return storage.UpsertReplaced, nil
}

func (s *Store) failed(family, id string, err error) (storage.UpsertResult, error) {
	s.logger.Error("failed to upsert "+family, "id", id, "err", err)
	return storage.UpsertFailed, err
}

func (s *Store) getDoc(ctx context.Context, query string, arg any) ([]byte, error) {
	var doc string
	err := s.db.GetContext(ctx, &doc, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func (s *Store) delete(ctx context.Context, query string, arg any) error {
	res, err := s.db.ExecContext(ctx, query, arg)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, query); err != nil {
		return 0, err
	}
	return n, nil
}

// streamDocs yields decoded documents while the rows are read. Rows are
// closed when the loop finishes, breaks or fails.
func streamDocs[T any](ctx context.Context, db *sqlx.DB, query string, args []any, decode func([]byte) (*T, error)) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		rows, err := db.QueryxContext(ctx, query, args...)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var doc string
			if err := rows.Scan(&doc); err != nil {
				yield(nil, err)
				return
			}
			v, err := decode([]byte(doc))
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
