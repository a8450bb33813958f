package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/index"
	"github.com/poiesic/acooeaz/storage"
)

// Searcher runs single-field queries and the ad hoc lookups built on them.
type Searcher struct {
	engine  index.Engine
	drugs   storage.DrugRepository
	logger  *slog.Logger
	monitor Monitor
	size    int
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMonitor sets the monitor receiving query callbacks.
func WithMonitor(monitor Monitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithSize caps the hits per query. Zero leaves the engine default.
func WithSize(size int) Option {
	return func(s *Searcher) error {
		if size < 0 {
			return fmt.Errorf("size must not be negative, got %d", size)
		}
		s.size = size
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(engine index.Engine, drugs storage.DrugRepository, opts ...Option) (*Searcher, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if drugs == nil {
		return nil, ErrDrugRepositoryRequired
	}

	s := &Searcher{
		engine:  engine,
		drugs:   drugs,
		logger:  slog.Default(),
		monitor: &noopMonitor{},
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Monitor returns the monitor the searcher reports to.
func (s *Searcher) Monitor() Monitor {
	return s.monitor
}

// Query submits a prepared query against one field of an index. Queries
// without a letter or digit return no hits without reaching the engine, and
// so does an index that was never built.
func (s *Searcher) Query(ctx context.Context, indexName, field, query string, source ...string) ([]index.Hit, error) {
	if !Searchable(query) {
		s.logger.Debug("skipping degenerate query", "index", indexName, "query", query)
		s.monitor.QuerySkipped(indexName, query)
		return []index.Hit{}, nil
	}

	s.monitor.QueryIssued(indexName, query)
	start := time.Now()
	hits, err := s.engine.Search(ctx, index.SearchRequest{
		Index:  indexName,
		Field:  field,
		Query:  query,
		Source: source,
		Size:   s.size,
	})
	if errors.Is(err, index.ErrIndexNotFound) {
		// Nothing has been built yet.
		s.logger.Warn("index missing, returning no hits", "index", indexName, "query", query)
		s.monitor.Finish(indexName, 0, time.Since(start))
		return []index.Hit{}, nil
	}
	if err != nil {
		s.logger.Error("search failed", "index", indexName, "query", query, "err", err)
		s.monitor.QueryFailed(indexName, query, err)
		return nil, err
	}
	s.monitor.Finish(indexName, len(hits), time.Since(start))
	s.logger.Debug("search", "index", indexName, "query", query, "hits", len(hits))
	return hits, nil
}

// Search normalizes free text into a wildcard query and submits it.
func (s *Searcher) Search(ctx context.Context, indexName, field, text string, source ...string) ([]index.Hit, error) {
	return s.Query(ctx, indexName, field, Normalize(text), source...)
}

// Group collects hits sharing one value of the queried field.
type Group struct {
	Value   string
	Members []index.Hit
}

// SearchGrouped runs Search and groups the hits by the queried field.
// Groups appear in the order their first member was hit.
func (s *Searcher) SearchGrouped(ctx context.Context, indexName, field, text string, source ...string) ([]Group, error) {
	hits, err := s.Search(ctx, indexName, field, text, source...)
	if err != nil {
		return nil, err
	}
	return GroupHits(hits, field), nil
}

// GroupHits groups hits by the string value of field, in first-seen order.
func GroupHits(hits []index.Hit, field string) []Group {
	var groups []Group
	positions := make(map[string]int)
	for _, hit := range hits {
		value := hit.Source.String(field)
		pos, ok := positions[value]
		if !ok {
			pos = len(groups)
			positions[value] = pos
			groups = append(groups, Group{Value: value})
		}
		groups[pos].Members = append(groups[pos].Members, hit)
	}
	return groups
}

// Entry is one row of a result list.
type Entry struct {
	DisplayName string
	ID          string
	Score       float64
}

// SearchDrugByName looks up drugs by display name.
func (s *Searcher) SearchDrugByName(ctx context.Context, prefix string) ([]Entry, error) {
	hits, err := s.Search(ctx, index.Drugs, index.FieldName, prefix, index.FieldID, index.FieldName)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(hits))
	for _, hit := range hits {
		entries = append(entries, Entry{
			DisplayName: hit.Source.String(index.FieldName),
			ID:          hit.Source.String(index.FieldID),
			Score:       hit.Score,
		})
	}
	return entries, nil
}

// DrugHit is a drug containing a matched substance.
type DrugHit struct {
	Drug  *core.Drug
	Score float64
}

// SubstanceGroup lists the drugs sharing one matched active substance.
type SubstanceGroup struct {
	Substance string
	Drugs     []DrugHit
}

// SearchActiveSubstance looks up active substances and returns one group
// per substance with the drugs containing it. Drugs no longer in the store
// are dropped.
func (s *Searcher) SearchActiveSubstance(ctx context.Context, fragment string) ([]SubstanceGroup, error) {
	groups, err := s.SearchGrouped(ctx, index.Actives, index.FieldName, fragment, index.FieldID, index.FieldName)
	if err != nil {
		return nil, err
	}

	result := make([]SubstanceGroup, 0, len(groups))
	for _, group := range groups {
		sg := SubstanceGroup{Substance: group.Value}
		for _, hit := range group.Members {
			id, ok := hit.Source.DrugID()
			if !ok {
				continue
			}
			drug, err := s.drugs.GetDrug(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Debug("dropping stale drug reference", "index", index.Actives, "id", id)
				s.monitor.StaleReference(index.Actives, id)
				continue
			}
			if err != nil {
				return nil, err
			}
			sg.Drugs = append(sg.Drugs, DrugHit{Drug: drug, Score: hit.Score})
		}
		if len(sg.Drugs) > 0 {
			result = append(result, sg)
		}
	}
	return result, nil
}

// SearchArticlesAny looks up text among product, substance and disease
// keywords, in that order. Leading junk is stripped first. Entries are
// named "<keyword> - <article title>".
func (s *Searcher) SearchArticlesAny(ctx context.Context, text string) ([]Entry, error) {
	query := NormalizeLeading(text)

	var entries []Entry
	for _, name := range index.ArticleIndexes {
		field, err := keywordField(name)
		if err != nil {
			return nil, err
		}
		hits, err := s.Query(ctx, name, field, query, index.FieldID, field, index.FieldTitle)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			id, ok := hit.Source.ArticleID()
			if !ok {
				s.logger.Warn("dropping row without article id", "index", name)
				continue
			}
			entries = append(entries, Entry{
				DisplayName: hit.Source.String(field) + " - " + hit.Source.String(index.FieldTitle),
				ID:          strconv.FormatInt(id, 10),
				Score:       hit.Score,
			})
		}
	}
	s.logger.Info("article search", "query", query, "size", len(entries))
	return entries, nil
}

func keywordField(name string) (string, error) {
	for _, kind := range core.KeywordKinds {
		n, field, err := index.KeywordIndex(kind)
		if err != nil {
			return "", err
		}
		if n == name {
			return field, nil
		}
	}
	return "", fmt.Errorf("%w: %s", index.ErrUnknownIndex, name)
}
