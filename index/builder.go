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

package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage"
)

// DefaultProgressInterval is the number of documents between progress reports.
const DefaultProgressInterval = 1000

// Report summarizes a rebuild.
type Report struct {
	// Rows is the number of rows written per index.
	Rows     map[string]int
	Articles int
	Drugs    int
	Duration time.Duration
}

func newReport() *Report {
	return &Report{Rows: make(map[string]int)}
}

// Builder rebuilds the search indexes from the document store.
// Concurrent rebuilds against the same engine must be serialized by the caller.
type Builder struct {
	drugs            storage.DrugRepository
	articles         storage.ArticleRepository
	engine           Engine
	logger           *slog.Logger
	monitor          Monitor
	progressInterval int
}

// Option configures a Builder.
type Option func(*Builder) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// WithMonitor sets the monitor receiving rebuild callbacks.
func WithMonitor(monitor Monitor) Option {
	return func(b *Builder) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		b.monitor = monitor
		return nil
	}
}

// WithProgressInterval sets how many documents pass between progress reports.
func WithProgressInterval(n int) Option {
	return func(b *Builder) error {
		if n <= 0 {
			return fmt.Errorf("progress interval must be positive, got %d", n)
		}
		b.progressInterval = n
		return nil
	}
}

// NewBuilder creates a new index builder.
func NewBuilder(
	drugs storage.DrugRepository,
	articles storage.ArticleRepository,
	engine Engine,
	opts ...Option,
) (*Builder, error) {
	if drugs == nil {
		return nil, ErrDrugRepositoryRequired
	}
	if articles == nil {
		return nil, ErrArticleRepositoryRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}

	b := &Builder{
		drugs:            drugs,
		articles:         articles,
		engine:           engine,
		logger:           slog.Default(),
		monitor:          &noopMonitor{},
		progressInterval: DefaultProgressInterval,
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "index-builder")

	return b, nil
}

// Rebuild drops and recreates all indexes, then fills the keyword indexes
// from the selected articles and the drug indexes from the selected drugs.
//
// There is no rollback. When a step fails, indexes written before it stay
// written and later ones stay empty; the next full rebuild is the recovery
// path. The returned report is never nil.
func (b *Builder) Rebuild(ctx context.Context, drugSel storage.DrugFilter, articleSel storage.ArticleFilter) (report *Report, err error) {
	report = newReport()
	defer b.finish(report, time.Now(), &err)

	if err = b.recreate(ctx, All); err != nil {
		return report, err
	}
	if err = b.indexArticles(ctx, articleSel, report); err != nil {
		return report, err
	}
	err = b.indexDrugs(ctx, drugSel, report)
	return report, err
}

// RebuildArticles recreates and fills only the keyword indexes.
func (b *Builder) RebuildArticles(ctx context.Context, sel storage.ArticleFilter) (report *Report, err error) {
	report = newReport()
	defer b.finish(report, time.Now(), &err)

	if err = b.recreate(ctx, ArticleIndexes); err != nil {
		return report, err
	}
	err = b.indexArticles(ctx, sel, report)
	return report, err
}

// RebuildDrugs recreates and fills only the drug indexes.
func (b *Builder) RebuildDrugs(ctx context.Context, sel storage.DrugFilter) (report *Report, err error) {
	report = newReport()
	defer b.finish(report, time.Now(), &err)

	if err = b.recreate(ctx, DrugIndexes); err != nil {
		return report, err
	}
	err = b.indexDrugs(ctx, sel, report)
	return report, err
}

func (b *Builder) finish(report *Report, start time.Time, err *error) {
	report.Duration = time.Since(start)
	if *err != nil {
		b.logger.Error("rebuild failed", "err", *err, "rows", report.Rows, "duration", report.Duration)
	} else {
		b.logger.Info("rebuild finished",
			"articles", report.Articles,
			"drugs", report.Drugs,
			"rows", report.Rows,
			"duration", report.Duration)
	}
	b.monitor.Finish(report, *err)
}

func (b *Builder) recreate(ctx context.Context, names []string) error {
	for _, name := range names {
		if err := b.engine.DropIndex(ctx, name); err != nil {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
		if err := b.engine.CreateIndex(ctx, name); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		b.logger.Debug("index recreated", "index", name)
		b.monitor.IndexRecreated(name)
	}
	return nil
}

func (b *Builder) indexArticles(ctx context.Context, sel storage.ArticleFilter, report *Report) error {
	rows := make(map[string][]Document, len(ArticleIndexes))

	for article, err := range b.articles.Articles(ctx, sel) {
		if err != nil {
			return fmt.Errorf("read articles: %w", err)
		}
		articleRows, err := KeywordRows(article)
		if err != nil {
			return err
		}
		for name, docs := range articleRows {
			rows[name] = append(rows[name], docs...)
		}
		report.Articles++
		b.progress("articles", report.Articles)
	}

	for _, name := range ArticleIndexes {
		if err := b.write(ctx, name, rows[name], report); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) indexDrugs(ctx context.Context, sel storage.DrugFilter, report *Report) error {
	var drugRows, activeRows []Document

	for drug, err := range b.drugs.Drugs(ctx, sel) {
		if err != nil {
			return fmt.Errorf("read drugs: %w", err)
		}
		drugRows = append(drugRows, DrugRow(drug))
		activeRows = append(activeRows, ActiveRows(drug)...)
		report.Drugs++
		b.progress("drugs", report.Drugs)
	}

	if err := b.write(ctx, Drugs, drugRows, report); err != nil {
		return err
	}
	return b.write(ctx, Actives, activeRows, report)
}

func (b *Builder) progress(family string, seen int) {
	if seen%b.progressInterval != 0 {
		return
	}
	b.logger.Info("indexing", "family", family, "seen", seen)
	b.monitor.Progress(family, seen)
}

// write submits all rows of one index in a single bulk request.
func (b *Builder) write(ctx context.Context, name string, rows []Document, report *Report) error {
	if len(rows) == 0 {
		b.logger.Debug("no rows, skipping bulk write", "index", name)
		return nil
	}

	result, err := b.engine.Bulk(ctx, name, rows)
	report.Rows[name] = result.Indexed
	b.monitor.BulkWritten(name, len(rows), result)
	if err != nil {
		return fmt.Errorf("bulk write %s: %w", name, err)
	}
	if result.Failed > 0 {
		return fmt.Errorf("bulk write %s: %w: %d of %d rows rejected", name, ErrPartialBulk, result.Failed, len(rows))
	}
	b.logger.Debug("bulk written", "index", name, "rows", result.Indexed)
	return nil
}

// KeywordRows projects an article's keyword facts onto the keyword indexes.
// An article without metadata violates the indexing contract.
func KeywordRows(article *core.Article) (map[string][]Document, error) {
	if article.Meta == nil {
		return nil, fmt.Errorf("%w: article %d selected for indexing has no metadata", core.ErrContractViolation, article.ID)
	}

	rows := make(map[string][]Document)
	for _, kw := range article.Meta.Keywords {
		name, field, err := KeywordIndex(kw.Kind)
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", article.ID, err)
		}
		rows[name] = append(rows[name], Document{
			FieldID:    article.ID,
			field:      kw.Name,
			FieldTitle: article.Title,
		})
	}
	return rows, nil
}

// DrugRow is the free-text row of a drug. Indication texts and caution texts
// are each joined with single spaces.
func DrugRow(drug *core.Drug) Document {
	indications := drug.Texts(func(s core.Section) bool { return s == core.SectionIndications })
	cautions := drug.Texts(core.Section.IsCaution)
	return Document{
		FieldID:          drug.ID,
		FieldName:        drug.Name,
		FieldIndications: strings.Join(indications, " "),
		FieldWarnings:    strings.Join(cautions, " "),
	}
}

// ActiveRows returns one row per active substance of the drug.
func ActiveRows(drug *core.Drug) []Document {
	rows := make([]Document, 0, len(drug.Actives))
	for _, active := range drug.Actives {
		rows = append(rows, Document{
			FieldID:   drug.ID,
			FieldName: active.Name,
		})
	}
	return rows
}
