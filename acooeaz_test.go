package acooeaz

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/acooeaz/ai/mock"
	"github.com/poiesic/acooeaz/config"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/index"
	ixbadger "github.com/poiesic/acooeaz/index/badger"
	"github.com/poiesic/acooeaz/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func seed(t *testing.T, store *badger.Store) {
	t.Helper()
	ctx := context.Background()

	drugs := []*core.Drug{
		{
			ID:        "1-23456",
			Name:      "Aspirin",
			Processed: core.StateEnriched,
			Actives:   []core.Active{{Name: "Acetylsalicylsäure"}},
			ShortTexts: []core.ShortText{
				{Section: core.SectionIndications, Text: ptr("Kopfschmerzen Fieber")},
			},
		},
		{ID: "1-99999", Name: "Aspro", Processed: core.StateRaw},
		{ID: "2-11111", Name: "Ambroxol", Processed: core.StateEnriched},
		{ID: "3-22222", Name: "Ibuprofen", Processed: core.StateEnriched},
	}
	for _, d := range drugs {
		_, err := store.UpsertDrug(ctx, d)
		require.NoError(t, err)
	}

	tradeName := func(name string) *core.ArticleMeta {
		return &core.ArticleMeta{Keywords: []core.KeywordFact{{Name: name, Kind: core.KindTradeName}}}
	}
	articles := []*core.Article{
		{ID: 42, Title: "Schmerzmittel im Vergleich", Section: "Pharmazie Tara Medizin",
			Processed: core.StateEnriched, Meta: tradeName("Aspirin")},
		{ID: 7, Title: "Apothekenreform", Section: "Politik",
			Processed: core.StateEnriched, Meta: tradeName("Aspirin")},
		{ID: 9, Title: "Aspirin bei Fieber", Section: "Pharmazie Tara Medizin",
			Processed: core.StateRaw},
	}
	for _, a := range articles {
		_, err := store.UpsertArticle(ctx, a)
		require.NoError(t, err)
	}
}

type fixture struct {
	store      *badger.Store
	engine     *ixbadger.Engine
	compendium *Compendium
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	seed(t, store)

	engine := ixbadger.New(store.Backend())
	c, err := New(store, engine, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return &fixture{store: store, engine: engine, compendium: c}
}

func (f *fixture) rows(t *testing.T, name string) []index.Document {
	t.Helper()
	rows, err := f.engine.Rows(context.Background(), name)
	require.NoError(t, err)
	return rows
}

func TestNew_RequiresHandles(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	_, err = New(nil, ixbadger.New(store.Backend()))
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = New(store, nil)
	assert.ErrorIs(t, err, ErrEngineRequired)

	_, err = New(store, ixbadger.New(store.Backend()), WithRelevantSection("(["))
	assert.Error(t, err)
}

func TestCompendium_RebuildAllIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.compendium.RebuildAll(ctx)
	require.NoError(t, err)
	snapshot := make(map[string][]index.Document)
	for _, name := range index.All {
		snapshot[name] = f.rows(t, name)
	}

	second, err := f.compendium.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Rows, second.Rows)
	for _, name := range index.All {
		assert.ElementsMatch(t, snapshot[name], f.rows(t, name), name)
	}
}

func TestCompendium_RebuildAllSkipsUnselected(t *testing.T) {
	f := newFixture(t)

	_, err := f.compendium.RebuildAll(context.Background())
	require.NoError(t, err)

	for _, row := range f.rows(t, index.Products) {
		id, ok := row.ArticleID()
		require.True(t, ok)
		assert.Equal(t, int64(42), id, "raw and off-section articles are not indexed")
	}
	for _, row := range f.rows(t, index.Drugs) {
		id, ok := row.DrugID()
		require.True(t, ok)
		assert.NotEqual(t, "1-99999", id, "raw drugs are not indexed")
	}
}

func TestCompendium_FindArticlesForDrug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.compendium.RebuildAll(ctx)
	require.NoError(t, err)

	result, err := f.compendium.FindArticlesForDrugID(ctx, "1-23456")
	require.NoError(t, err)
	require.Len(t, result.Product, 1)
	assert.Equal(t, int64(42), result.Product[0].Article.ID)
	assert.Positive(t, result.Product[0].Score)
	assert.Empty(t, result.Disease)

	entries, err := f.compendium.SearchDrugByName(ctx, "aspi")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "1-23456", entries[0].ID)

	groups, err := f.compendium.SearchActiveSubstance(ctx, "salicyl")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Acetylsalicylsäure", groups[0].Substance)

	articles, err := f.compendium.SearchArticlesAny(ctx, "aspirin")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "42", articles[0].ID)
}

// gatedEngine blocks the first DropIndex until released.
type gatedEngine struct {
	index.Engine
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	drops   atomic.Int32
}

func (e *gatedEngine) DropIndex(ctx context.Context, name string) error {
	e.drops.Add(1)
	e.once.Do(func() {
		close(e.entered)
		<-e.release
	})
	return e.Engine.DropIndex(ctx, name)
}

func TestCompendium_RebuildAllSharesRunningRebuild(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()
	seed(t, store)

	engine := &gatedEngine{
		Engine:  ixbadger.New(store.Backend()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c, err := New(store, engine)
	require.NoError(t, err)

	const callers = 4
	reports := make([]*index.Report, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reports[0], _ = c.RebuildAll(context.Background())
	}()
	<-engine.entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], _ = c.RebuildAll(context.Background())
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(engine.release)
	wg.Wait()

	assert.Equal(t, int32(len(index.All)), engine.drops.Load(), "one rebuild for all callers")
	for i := 1; i < callers; i++ {
		assert.Same(t, reports[0], reports[i])
	}
}

func TestCompendium_DrugNameTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tree, err := f.compendium.DrugNameTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, []NameGroup{
		{Letter: "A", Prefixes: []string{"Amb", "Asp"}},
		{Letter: "I", Prefixes: []string{"Ibu"}},
	}, tree)

	drugs, err := f.compendium.DrugsByPrefix(ctx, "asp")
	require.NoError(t, err)
	require.Len(t, drugs, 2)
	assert.Equal(t, "Aspirin", drugs[0].Name)
	assert.Equal(t, "Aspro", drugs[1].Name)
}

func TestCompendium_NewEnrichment(t *testing.T) {
	t.Run("requires a provider", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.compendium.NewEnrichment()
		assert.ErrorIs(t, err, ErrProviderRequired)
	})

	t.Run("enriched articles become searchable", func(t *testing.T) {
		f := newFixture(t, WithProvider(mock.NewMockProvider()))
		ctx := context.Background()

		job, err := f.compendium.NewEnrichment()
		require.NoError(t, err)
		defer job.Release()

		report, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Articles.Enriched, "only the raw article in the relevant section")
		assert.Equal(t, 1, report.Drugs.Enriched)

		_, err = f.compendium.RebuildAll(ctx)
		require.NoError(t, err)

		result, err := f.compendium.FindArticlesForDrugID(ctx, "1-23456")
		require.NoError(t, err)
		var ids []int64
		for _, m := range result.Product {
			ids = append(ids, m.Article.ID)
		}
		assert.ElementsMatch(t, []int64{42, 9}, ids)
	})
}

func TestCompendium_NewIngestion(t *testing.T) {
	f := newFixture(t)

	pipeline, err := f.compendium.NewIngestion()
	require.NoError(t, err)
	defer pipeline.Release()

	stats, err := pipeline.ImportArticles(context.Background(), []*core.Article{{ID: 100, Title: "Neu"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("badger store with shared engine", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Path = t.TempDir()

		c, err := Open(ctx, cfg, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)

		report, err := c.RebuildAll(ctx)
		require.NoError(t, err)
		for _, name := range index.All {
			assert.Zero(t, report.Rows[name])
		}
		require.NoError(t, c.Close())
	})

	t.Run("creates the ai provider from configuration", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Path = t.TempDir()

		c, err := Open(ctx, cfg)
		require.NoError(t, err)
		defer c.Close()

		job, err := c.NewEnrichment()
		require.NoError(t, err)
		job.Release()
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Driver = "mongo"

		_, err := Open(ctx, cfg)
		assert.ErrorIs(t, err, config.ErrUnknownDriver)
	})
}
