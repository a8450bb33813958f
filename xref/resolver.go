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

// Package xref links drugs to the magazine articles that discuss them.
//
// The join key is shared vocabulary, not a foreign key: a drug's display
// name is looked up among product keywords, its active substances among
// substance keywords and its indication texts among disease keywords.
// Results are computed on every call.
package xref

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/index"
	"github.com/poiesic/acooeaz/search"
	"github.com/poiesic/acooeaz/storage"
)

var (
	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrArticleRepositoryRequired is returned when an article repository is not provided.
	ErrArticleRepositoryRequired = errors.New("article repository required")

	// ErrDrugRepositoryRequired is returned when a drug repository is not provided.
	ErrDrugRepositoryRequired = errors.New("drug repository required")
)

// ArticleMatch is an article found through one keyword.
type ArticleMatch struct {
	Article *core.Article
	Keyword string
	Score   float64
}

// Result holds the articles found per vocabulary class. The lists are
// independent and have no defined order among equal scores.
type Result struct {
	Product   []ArticleMatch
	Substance []ArticleMatch
	Disease   []ArticleMatch
}

// Total is the number of matches over all lists.
func (r *Result) Total() int {
	return len(r.Product) + len(r.Substance) + len(r.Disease)
}

// Resolver finds the articles relevant to a drug.
type Resolver struct {
	searcher *search.Searcher
	articles storage.ArticleRepository
	drugs    storage.DrugRepository
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a new resolver.
func NewResolver(searcher *search.Searcher, articles storage.ArticleRepository, drugs storage.DrugRepository, opts ...Option) (*Resolver, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if articles == nil {
		return nil, ErrArticleRepositoryRequired
	}
	if drugs == nil {
		return nil, ErrDrugRepositoryRequired
	}

	r := &Resolver{
		searcher: searcher,
		articles: articles,
		drugs:    drugs,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "xref")
	return r, nil
}

// Queries are the three query strings derived from a drug.
type Queries struct {
	Product   string
	Substance string
	Disease   string
}

// QueriesFor derives the query strings for a drug. Each part has leading
// junk replaced by a wildcard; a drug without substances or indication texts
// yields blank queries for those classes.
func QueriesFor(drug *core.Drug) Queries {
	substances := make([]string, 0, len(drug.Actives))
	for _, active := range drug.Actives {
		substances = append(substances, search.StripLeading(active.Name))
	}

	indications := drug.Texts(func(s core.Section) bool { return s == core.SectionIndications })
	diseases := make([]string, 0, len(indications))
	for _, text := range indications {
		diseases = append(diseases, search.StripLeading(text))
	}

	return Queries{
		Product:   search.StripLeading(drug.Name),
		Substance: strings.Join(substances, " "),
		Disease:   strings.Join(diseases, " "),
	}
}

// FindArticlesForDrug returns the articles linked to the drug through its
// name, substances and indications. Hits pointing at articles no longer in
// the store are dropped.
func (r *Resolver) FindArticlesForDrug(ctx context.Context, drug *core.Drug) (*Result, error) {
	if drug == nil {
		return nil, core.ErrInvalidDrug
	}
	q := QueriesFor(drug)
	r.logger.Debug("resolving articles", "drug", drug.ID, "product", q.Product, "substance", q.Substance, "disease", q.Disease)

	product, err := r.resolve(ctx, core.KindTradeName, q.Product)
	if err != nil {
		return nil, err
	}
	substance, err := r.resolve(ctx, core.KindSubstance, q.Substance)
	if err != nil {
		return nil, err
	}
	disease, err := r.resolve(ctx, core.KindDisease, q.Disease)
	if err != nil {
		return nil, err
	}

	return &Result{Product: product, Substance: substance, Disease: disease}, nil
}

// FindArticlesForDrugID loads the drug and resolves its articles.
func (r *Resolver) FindArticlesForDrugID(ctx context.Context, id string) (*Result, error) {
	drug, err := r.drugs.GetDrug(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.FindArticlesForDrug(ctx, drug)
}

// resolve queries the keyword index of kind and loads the hit articles.
// The query is submitted as is; the searcher turns blank queries into an
// empty result.
func (r *Resolver) resolve(ctx context.Context, kind core.KeywordKind, query string) ([]ArticleMatch, error) {
	name, field, err := index.KeywordIndex(kind)
	if err != nil {
		return nil, err
	}

	hits, err := r.searcher.Query(ctx, name, field, query, index.FieldID, field)
	if err != nil {
		return nil, err
	}

	matches := make([]ArticleMatch, 0, len(hits))
	for _, hit := range hits {
		id, ok := hit.Source.ArticleID()
		if !ok {
			r.logger.Warn("hit without article id", "index", name, "source", hit.Source)
			continue
		}
		article, err := r.articles.GetArticle(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			r.logger.Debug("dropping stale article reference", "index", name, "id", id)
			r.searcher.Monitor().StaleReference(name, strconv.FormatInt(id, 10))
			continue
		}
		if err != nil {
			return nil, err
		}
		matches = append(matches, ArticleMatch{
			Article: article,
			Keyword: hit.Source.String(field),
			Score:   hit.Score,
		})
	}
	return matches, nil
}
