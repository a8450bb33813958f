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

package enrich

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/acooeaz/ai"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/keywords"
	"github.com/poiesic/acooeaz/storage"
)

// DefaultReportInterval is how many documents pass between progress lines.
const DefaultReportInterval = 25

// Stats counts the outcome of one enrichment pass.
type Stats struct {
	Enriched int
	Failed   int
}

// Report summarizes a full run.
type Report struct {
	Articles Stats
	Drugs    Stats
	Duration time.Duration
}

// Job enriches raw documents.
type Job struct {
	drugs          storage.DrugRepository
	articles       storage.ArticleRepository
	extractor      ai.MetadataExtractor
	pool           *ants.Pool
	batchSize      int
	retry          RetryPolicy
	sectionPattern string
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option is a functional option for configuring a Job.
type Option func(*Job) error

// WithPoolSize sets the number of concurrent model calls.
// Default is half the number of CPUs.
func WithPoolSize(size int) Option {
	return func(j *Job) error {
		if size < 1 {
			size = 1
		}
		if j.pool != nil {
			j.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		j.pool = pool
		return nil
	}
}

// WithBatchSize sets how many documents are submitted to the pool at once.
func WithBatchSize(size int) Option {
	return func(j *Job) error {
		j.batchSize = size
		return nil
	}
}

// WithRetryPolicy sets the retry behavior of model calls.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(j *Job) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		j.retry = policy
		return nil
	}
}

// WithSectionPattern restricts article enrichment to matching sections.
// Default is storage.DefaultSectionPattern.
func WithSectionPattern(pattern string) Option {
	return func(j *Job) error {
		j.sectionPattern = pattern
		return nil
	}
}

// WithProgress writes progress lines to w every interval documents.
func WithProgress(w io.Writer, interval int) Option {
	return func(j *Job) error {
		j.progress = w
		j.reportInterval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) error {
		if logger == nil {
			logger = slog.Default()
		}
		j.logger = logger
		return nil
	}
}

// NewJob creates an enrichment job. Call Release when done.
func NewJob(store storage.Store, extractor ai.MetadataExtractor, opts ...Option) (*Job, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	j := &Job{
		drugs:          store,
		articles:       store,
		extractor:      extractor,
		pool:           pool,
		batchSize:      DefaultBatchSize,
		retry:          DefaultRetryPolicy(),
		sectionPattern: storage.DefaultSectionPattern,
		reportInterval: DefaultReportInterval,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(j); optErr != nil {
			j.Release()
			return nil, optErr
		}
	}
	j.logger = j.logger.With("component", "enrich")
	return j, nil
}

// Release stops the worker pool.
func (j *Job) Release() {
	if j.pool != nil {
		j.pool.Release()
	}
}

// Run enriches raw articles, then raw drugs.
func (j *Job) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	var report Report
	var err error

	report.Articles, err = j.EnrichArticles(ctx)
	if err != nil {
		return report, err
	}
	report.Drugs, err = j.EnrichDrugs(ctx)
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	j.logger.Info("enrichment complete",
		"articles", report.Articles.Enriched,
		"articles_failed", report.Articles.Failed,
		"drugs", report.Drugs.Enriched,
		"drugs_failed", report.Drugs.Failed,
		"duration", report.Duration)
	return report, nil
}

func (j *Job) rawArticles() storage.ArticleFilter {
	return storage.ArticleFilter{Processed: storage.State(core.StateRaw), SectionPattern: j.sectionPattern}
}

// EnrichArticles extracts metadata for raw articles of the relevant section.
// Per-article failures are logged and counted; the article stays raw.
func (j *Job) EnrichArticles(ctx context.Context) (Stats, error) {
	return runPass(ctx, j, "articles",
		func(ctx context.Context) iter.Seq2[*core.Article, error] {
			return j.articles.Articles(ctx, j.rawArticles())
		},
		j.enrichArticle)
}

// EnrichDrugs extracts metadata for raw drugs.
func (j *Job) EnrichDrugs(ctx context.Context) (Stats, error) {
	filter := storage.DrugFilter{Processed: storage.State(core.StateRaw)}
	return runPass(ctx, j, "drugs",
		func(ctx context.Context) iter.Seq2[*core.Drug, error] { return j.drugs.Drugs(ctx, filter) },
		j.enrichDrug)
}

func (j *Job) enrichArticle(ctx context.Context, article *core.Article) error {
	text, err := ArticleText(article.HTML)
	if err != nil {
		return fmt.Errorf("article %d: parse html: %w", article.ID, err)
	}

	var raw ai.Metadata
	err = RetryWithBackoff(ctx, j.retry, func(ctx context.Context) error {
		var err error
		raw, err = j.extractor.ExtractArticleMetadata(ctx, article.Title, text)
		return err
	})
	if err != nil {
		return fmt.Errorf("article %d: %w", article.ID, err)
	}

	_, err = keywords.Attach(ctx, j.articles, article, raw)
	return err
}

func (j *Job) enrichDrug(ctx context.Context, drug *core.Drug) error {
	var raw ai.Metadata
	err := RetryWithBackoff(ctx, j.retry, func(ctx context.Context) error {
		var err error
		raw, err = j.extractor.ExtractDrugMetadata(ctx, drug.Name)
		return err
	})
	if err != nil {
		return fmt.Errorf("drug %s: %w", drug.ID, err)
	}

	_, err = keywords.AttachDrugMeta(ctx, j.drugs, drug, raw)
	return err
}

// runPass counts the selected documents, then feeds them to the pool batch
// by batch. The selection is evaluated twice, so documents enriched by a
// concurrent run between the passes are simply not seen again.
func runPass[T any](ctx context.Context, j *Job, label string, selection func(context.Context) iter.Seq2[T, error], enrich func(context.Context, T) error) (Stats, error) {
	total, err := count(selection(ctx))
	if err != nil {
		return Stats{}, fmt.Errorf("select %s: %w", label, err)
	}
	if total == 0 {
		j.logger.Info("nothing to enrich", "family", label)
		return Stats{}, nil
	}
	j.logger.Info("starting enrichment", "family", label, "total", total, "batch_size", j.batchSize)

	tracker := NewProgressTracker(j.progress, label, total, j.reportInterval)
	tracker.Start()

	var enriched, failed atomic.Int64
	err = forEachBatch(ctx, selection(ctx), j.batchSize, func(batch []T) error {
		var wg sync.WaitGroup
		for _, doc := range batch {
			wg.Add(1)
			submitErr := j.pool.Submit(func() {
				defer wg.Done()
				if err := enrich(ctx, doc); err != nil {
					j.logger.Warn("enrichment failed", "family", label, "err", err)
					failed.Add(1)
					tracker.Done(true)
					return
				}
				enriched.Add(1)
				tracker.Done(false)
			})
			if submitErr != nil {
				wg.Done()
				wg.Wait()
				return fmt.Errorf("submit enrichment task: %w", submitErr)
			}
		}
		wg.Wait()
		return nil
	})
	tracker.Finish()

	stats := Stats{Enriched: int(enriched.Load()), Failed: int(failed.Load())}
	if err != nil {
		return stats, err
	}
	j.logger.Info("enrichment pass complete",
		"family", label,
		"enriched", stats.Enriched,
		"failed", stats.Failed,
		"elapsed", tracker.Elapsed().Round(time.Millisecond))
	return stats, nil
}
