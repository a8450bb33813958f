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

// Package acooeaz cross-references a pharmaceutical compendium with the
// articles of a pharmacy journal.
//
// A Compendium ties the document store, the search engine and the optional
// AI provider together and exposes the rebuild, search and cross-reference
// operations used by the CLI and the HTTP server.
package acooeaz

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/poiesic/acooeaz/ai"
	"github.com/poiesic/acooeaz/ai/openai"
	"github.com/poiesic/acooeaz/config"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/enrich"
	"github.com/poiesic/acooeaz/index"
	ixbadger "github.com/poiesic/acooeaz/index/badger"
	"github.com/poiesic/acooeaz/index/elastic"
	"github.com/poiesic/acooeaz/ingestion"
	"github.com/poiesic/acooeaz/metrics"
	"github.com/poiesic/acooeaz/search"
	"github.com/poiesic/acooeaz/storage"
	"github.com/poiesic/acooeaz/storage/badger"
	"github.com/poiesic/acooeaz/storage/postgres"
	"github.com/poiesic/acooeaz/xref"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStoreRequired is returned when no document store is provided.
	ErrStoreRequired = errors.New("document store required")

	// ErrEngineRequired is returned when no search engine is provided.
	ErrEngineRequired = errors.New("search engine required")

	// ErrProviderRequired is returned by operations that need the AI provider
	// when none is configured.
	ErrProviderRequired = errors.New("ai provider required")
)

// nameTreePrefix is the length of the name prefixes listed by DrugNameTree.
const nameTreePrefix = 3

// Compendium is the entry point to the indexing and search core.
type Compendium struct {
	store    storage.Store
	engine   index.Engine
	provider ai.Provider
	builder  *index.Builder
	searcher *search.Searcher
	resolver *xref.Resolver

	section        string
	enrichDefaults []enrich.Option
	owned          []io.Closer
	rebuilds       singleflight.Group
	base           *slog.Logger
	logger         *slog.Logger
}

// Option configures a Compendium.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	provider ai.Provider
	metrics  *metrics.Metrics
	section  string
	size     int
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProvider sets the AI provider used for enrichment.
func WithProvider(provider ai.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithMetrics reports rebuilds and searches to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRelevantSection sets the section pattern selecting the articles that
// are indexed and enriched. Default is storage.DefaultSectionPattern.
func WithRelevantSection(pattern string) Option {
	return func(o *options) {
		o.section = pattern
	}
}

// WithSearchSize sets the number of hits requested per query.
func WithSearchSize(size int) Option {
	return func(o *options) {
		o.size = size
	}
}

// New creates a Compendium on existing handles. The caller keeps ownership
// of store, engine and provider; Close leaves them open.
func New(store storage.Store, engine index.Engine, opts ...Option) (*Compendium, error) {
	o := &options{
		logger:  slog.Default(),
		section: storage.DefaultSectionPattern,
	}
	for _, opt := range opts {
		opt(o)
	}
	return newCompendium(store, engine, o)
}

func newCompendium(store storage.Store, engine index.Engine, o *options) (*Compendium, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if o.section == "" {
		o.section = storage.DefaultSectionPattern
	}
	if _, err := storage.RelevantArticles(o.section).Matcher(); err != nil {
		return nil, err
	}

	builderOpts := []index.Option{index.WithLogger(o.logger)}
	searchOpts := []search.Option{search.WithLogger(o.logger)}
	if o.metrics != nil {
		builderOpts = append(builderOpts, index.WithMonitor(o.metrics.RebuildMonitor()))
		searchOpts = append(searchOpts, search.WithMonitor(o.metrics.SearchMonitor()))
	}
	if o.size > 0 {
		searchOpts = append(searchOpts, search.WithSize(o.size))
	}

	builder, err := index.NewBuilder(store, store, engine, builderOpts...)
	if err != nil {
		return nil, err
	}
	searcher, err := search.NewSearcher(engine, store, searchOpts...)
	if err != nil {
		return nil, err
	}
	resolver, err := xref.NewResolver(searcher, store, store, xref.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	return &Compendium{
		store:    store,
		engine:   engine,
		provider: o.provider,
		builder:  builder,
		searcher: searcher,
		resolver: resolver,
		section:  o.section,
		base:     o.logger,
		logger:   o.logger.With("component", "compendium"),
	}, nil
}

// Open builds a Compendium from configuration. The store, the engine and
// the AI provider are opened here and closed by Close.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Compendium, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{
		logger:  slog.Default(),
		section: cfg.Index.RelevantSection,
		size:    cfg.Search.Size,
	}
	for _, opt := range opts {
		opt(o)
	}

	var owned []io.Closer
	fail := func(err error) (*Compendium, error) {
		_ = closeAll(o.logger, owned)
		return nil, err
	}

	store, err := openStore(ctx, cfg.Store, o.logger)
	if err != nil {
		return nil, err
	}
	owned = append(owned, store)

	engine, err := openEngine(cfg.Search, store, o.logger)
	if err != nil {
		return fail(err)
	}
	owned = append(owned, engine)

	if o.provider == nil {
		provider, err := openai.NewProvider(ai.NewConfig(
			ai.WithHost(cfg.AI.Host),
			ai.WithModel(cfg.AI.Model),
			ai.WithToken(cfg.AI.Token),
		))
		if err != nil {
			return fail(fmt.Errorf("create ai provider: %w", err))
		}
		o.provider = provider
		owned = append(owned, provider)
	}

	c, err := newCompendium(store, engine, o)
	if err != nil {
		return fail(err)
	}
	c.owned = owned
	c.enrichDefaults = []enrich.Option{
		enrich.WithPoolSize(cfg.Enrich.PoolSize),
		enrich.WithBatchSize(cfg.Enrich.BatchSize),
		enrich.WithRetryPolicy(enrich.RetryPolicy{
			MaxAttempts: cfg.Enrich.MaxRetries,
			BaseDelay:   cfg.Enrich.RetryDelay,
			MaxDelay:    enrich.DefaultRetryPolicy().MaxDelay,
		}),
	}
	return c, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		return badger.Open(cfg.Path, badger.WithLogger(logger), badger.WithRefreshInterval(cfg.RefreshInterval))
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN, postgres.WithLogger(logger))
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
}

func openEngine(cfg config.SearchConfig, store storage.Store, logger *slog.Logger) (index.Engine, error) {
	switch cfg.Engine {
	case config.EngineBadger:
		if shared, ok := store.(*badger.Store); ok && cfg.Path == "" {
			return ixbadger.New(shared.Backend(), ixbadger.WithLogger(logger)), nil
		}
		return ixbadger.Open(cfg.Path, false, ixbadger.WithLogger(logger))
	case config.EngineElastic:
		return elastic.New(elastic.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Refresh:   "wait_for",
		}, elastic.WithLogger(logger))
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownEngine, cfg.Engine)
}

// Close releases the handles opened by Open, provider first.
func (c *Compendium) Close() error {
	err := closeAll(c.logger, c.owned)
	c.owned = nil
	return err
}

func closeAll(logger *slog.Logger, closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Error("failed to close resource", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store returns the document store.
func (c *Compendium) Store() storage.Store {
	return c.store
}

// Searcher returns the query engine.
func (c *Compendium) Searcher() *search.Searcher {
	return c.searcher
}

// RebuildAll rebuilds every index from enriched drugs and from enriched
// articles in the relevant section. Concurrent calls share one run and
// receive the same report.
func (c *Compendium) RebuildAll(ctx context.Context) (*index.Report, error) {
	v, err, shared := c.rebuilds.Do("rebuild", func() (any, error) {
		return c.builder.Rebuild(ctx, storage.EnrichedDrugs(), storage.RelevantArticles(c.section))
	})
	if shared {
		c.logger.Debug("joined running rebuild")
	}
	report, _ := v.(*index.Report)
	return report, err
}

// SearchDrugByName looks up drugs by display name.
func (c *Compendium) SearchDrugByName(ctx context.Context, prefix string) ([]search.Entry, error) {
	return c.searcher.SearchDrugByName(ctx, prefix)
}

// SearchActiveSubstance looks up drugs by active substance.
func (c *Compendium) SearchActiveSubstance(ctx context.Context, fragment string) ([]search.SubstanceGroup, error) {
	return c.searcher.SearchActiveSubstance(ctx, fragment)
}

// SearchArticlesAny looks up articles by any keyword class.
func (c *Compendium) SearchArticlesAny(ctx context.Context, text string) ([]search.Entry, error) {
	return c.searcher.SearchArticlesAny(ctx, text)
}

// FindArticlesForDrug lists the articles related to drug.
func (c *Compendium) FindArticlesForDrug(ctx context.Context, drug *core.Drug) (*xref.Result, error) {
	return c.resolver.FindArticlesForDrug(ctx, drug)
}

// FindArticlesForDrugID loads the drug and lists its related articles.
func (c *Compendium) FindArticlesForDrugID(ctx context.Context, id string) (*xref.Result, error) {
	return c.resolver.FindArticlesForDrugID(ctx, id)
}

// NameGroup lists the name prefixes starting with one letter.
type NameGroup struct {
	Letter   string   `json:"letter"`
	Prefixes []string `json:"prefixes"`
}

// DrugNameTree groups the distinct three-letter name prefixes of all drugs
// by their first letter. Groups and prefixes are sorted.
func (c *Compendium) DrugNameTree(ctx context.Context) ([]NameGroup, error) {
	seen := make(map[string]struct{})
	for drug, err := range c.store.Drugs(ctx, storage.DrugFilter{}) {
		if err != nil {
			return nil, err
		}
		if prefix := namePrefix(drug.Name, nameTreePrefix); prefix != "" {
			seen[prefix] = struct{}{}
		}
	}

	var groups []NameGroup
	for _, prefix := range slices.Sorted(maps.Keys(seen)) {
		letter := namePrefix(prefix, 1)
		if n := len(groups); n == 0 || groups[n-1].Letter != letter {
			groups = append(groups, NameGroup{Letter: letter})
		}
		groups[len(groups)-1].Prefixes = append(groups[len(groups)-1].Prefixes, prefix)
	}
	return groups, nil
}

// DrugsByPrefix lists the drugs whose name starts with prefix, ignoring
// case, ordered by name.
func (c *Compendium) DrugsByPrefix(ctx context.Context, prefix string) ([]*core.Drug, error) {
	var drugs []*core.Drug
	for drug, err := range c.store.Drugs(ctx, storage.DrugFilter{NamePrefix: prefix}) {
		if err != nil {
			return nil, err
		}
		drugs = append(drugs, drug)
	}
	slices.SortStableFunc(drugs, func(a, b *core.Drug) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return drugs, nil
}

func namePrefix(name string, n int) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

// NewEnrichment creates an enrichment job on the configured provider.
// opts are applied after the configured defaults. The caller releases the
// job.
func (c *Compendium) NewEnrichment(opts ...enrich.Option) (*enrich.Job, error) {
	if c.provider == nil {
		return nil, ErrProviderRequired
	}
	all := append([]enrich.Option{
		enrich.WithLogger(c.base),
		enrich.WithSectionPattern(c.section),
	}, c.enrichDefaults...)
	all = append(all, opts...)
	return enrich.NewJob(c.store, c.provider.MetadataExtractor(), all...)
}

// NewIngestion creates an import pipeline writing to the store. The caller
// releases the pipeline.
func (c *Compendium) NewIngestion(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(c.store, append([]ingestion.Option{ingestion.WithLogger(c.base)}, opts...)...)
}
