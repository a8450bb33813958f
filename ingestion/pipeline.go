package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage"
)

// Stats counts upsert outcomes of an import.
type Stats struct {
	Inserted int
	Replaced int
	Failed   int
	// Skipped counts records excluded before reaching the store.
	Skipped int
}

// Total is the number of records seen.
func (s Stats) Total() int {
	return s.Inserted + s.Replaced + s.Failed + s.Skipped
}

type counters struct {
	inserted, replaced, failed, skipped atomic.Int64
}

func (c *counters) record(result storage.UpsertResult) {
	switch result {
	case storage.UpsertInserted:
		c.inserted.Add(1)
	case storage.UpsertReplaced:
		c.replaced.Add(1)
	default:
		c.failed.Add(1)
	}
}

func (c *counters) stats() Stats {
	return Stats{
		Inserted: int(c.inserted.Load()),
		Replaced: int(c.replaced.Load()),
		Failed:   int(c.failed.Load()),
		Skipped:  int(c.skipped.Load()),
	}
}

// CompendiumLookup fetches the compendium content for a master-data drug.
type CompendiumLookup func(ctx context.Context, drug *core.Drug) (*ACOResponse, error)

// Pipeline imports drugs, vocabulary and articles into the document store.
type Pipeline struct {
	drugs         storage.DrugRepository
	vocabulary    storage.VocabularyRepository
	articles      storage.ArticleRepository
	pool          *ants.Pool
	excludeFringe bool
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent imports.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithFringe keeps parallel imports, faulty records and products not in
// trade, which are excluded by default.
func WithFringe() Option {
	return func(p *Pipeline) error {
		p.excludeFringe = false
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline over a store.
func NewPipeline(store storage.Store, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		drugs:         store,
		vocabulary:    store,
		articles:      store,
		pool:          pool,
		excludeFringe: true,
		logger:        slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// ImportVocabulary builds the vocabulary tree and upserts every term. The
// tree is returned for resolving master records.
func (p *Pipeline) ImportVocabulary(ctx context.Context, terms []SISIndication) (map[string]*core.Indication, Stats, error) {
	tree := BuildIndicationTree(terms)
	var c counters
	for _, t := range terms {
		if err := ctx.Err(); err != nil {
			return tree, c.stats(), err
		}
		result, err := p.vocabulary.UpsertIndication(ctx, tree[t.Code])
		if err != nil {
			p.logger.Warn("failed to import term", "code", t.Code, "err", err)
		}
		c.record(result)
	}
	stats := c.stats()
	p.logger.Info("vocabulary imported", "inserted", stats.Inserted, "replaced", stats.Replaced, "failed", stats.Failed)
	return tree, stats, nil
}

// ImportDrugs assembles and upserts drugs concurrently. Records failing
// assembly or persistence are logged and counted as failed.
func (p *Pipeline) ImportDrugs(ctx context.Context, records []SISRecord, vocabulary map[string]*core.Indication, lookup CompendiumLookup) (Stats, error) {
	var c counters
	var wg sync.WaitGroup

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return c.stats(), err
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			p.importDrug(ctx, rec, vocabulary, lookup, &c)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return c.stats(), fmt.Errorf("submit import task: %w", err)
		}
	}
	wg.Wait()

	stats := c.stats()
	p.logger.Info("drugs imported",
		"inserted", stats.Inserted,
		"replaced", stats.Replaced,
		"failed", stats.Failed,
		"skipped", stats.Skipped)
	return stats, nil
}

func (p *Pipeline) importDrug(ctx context.Context, rec SISRecord, vocabulary map[string]*core.Indication, lookup CompendiumLookup, c *counters) {
	base, err := DrugFromSIS(rec, vocabulary, p.excludeFringe)
	if err != nil {
		p.logger.Warn("invalid master record", "registration", rec.Registration, "err", err)
		c.failed.Add(1)
		return
	}
	if base == nil {
		c.skipped.Add(1)
		return
	}

	drug := base
	if lookup != nil {
		resp, err := lookup(ctx, base)
		if err != nil {
			p.logger.Warn("compendium lookup failed", "drug", base.ID, "err", err)
			c.failed.Add(1)
			return
		}
		drug, err = AssembleDrug(base, resp, p.logger)
		if err != nil {
			p.logger.Warn("failed to assemble drug", "drug", base.ID, "err", err)
			c.failed.Add(1)
			return
		}
	}

	result, _ := p.drugs.UpsertDrug(ctx, drug)
	c.record(result)
}

// ImportArticles upserts structured articles as they come from the magazine
// pipeline.
func (p *Pipeline) ImportArticles(ctx context.Context, articles []*core.Article) (Stats, error) {
	var c counters
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return c.stats(), err
		}
		result, _ := p.articles.UpsertArticle(ctx, a)
		c.record(result)
	}
	return c.stats(), nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
