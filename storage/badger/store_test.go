package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDrugRepository_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	drug := &core.Drug{ID: "1-23456", Name: "Aspirin", Actives: []core.Active{{Name: "Acetylsalicylsäure"}}}

	result, err := store.UpsertDrug(ctx, drug)
	require.NoError(t, err)
	assert.Equal(t, storage.UpsertInserted, result)

	got, err := store.GetDrug(ctx, "1-23456")
	require.NoError(t, err)
	assert.Equal(t, drug, got)

	t.Run("replace overwrites the whole document", func(t *testing.T) {
		replacement := &core.Drug{ID: "1-23456", Name: "Aspirin Complex", Processed: core.StateEnriched}
		result, err := store.UpsertDrug(ctx, replacement)
		require.NoError(t, err)
		assert.Equal(t, storage.UpsertReplaced, result)

		got, err := store.GetDrug(ctx, "1-23456")
		require.NoError(t, err)
		assert.Equal(t, "Aspirin Complex", got.Name)
		assert.Empty(t, got.Actives, "fields missing from the new document must not survive")
	})

	t.Run("invalid drug fails explicitly", func(t *testing.T) {
		result, err := store.UpsertDrug(ctx, &core.Drug{Name: "no id"})
		assert.ErrorIs(t, err, core.ErrEmptyDrugID)
		assert.Equal(t, storage.UpsertFailed, result)
	})

	t.Run("missing drug", func(t *testing.T) {
		_, err := store.GetDrug(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDrugRepository_DrugsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, d := range []*core.Drug{
		{ID: "1", Name: "Aspirin", Processed: core.StateEnriched},
		{ID: "2", Name: "Aspro", Processed: core.StateRaw},
		{ID: "3", Name: "Ibuprofen", Processed: core.StateEnriched},
	} {
		_, err := store.UpsertDrug(ctx, d)
		require.NoError(t, err)
	}

	collect := func(filter storage.DrugFilter) []string {
		var ids []string
		for drug, err := range store.Drugs(ctx, filter) {
			require.NoError(t, err)
			ids = append(ids, drug.ID)
		}
		return ids
	}

	assert.Equal(t, []string{"1", "2", "3"}, collect(storage.DrugFilter{}))
	assert.Equal(t, []string{"1", "3"}, collect(storage.EnrichedDrugs()))
	assert.Equal(t, []string{"1", "2"}, collect(storage.DrugFilter{NamePrefix: "asp"}))

	count, err := store.CountDrugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.DeleteDrug(ctx, "2"))
	assert.ErrorIs(t, store.DeleteDrug(ctx, "2"), storage.ErrNotFound)
}

func TestDrugRepository_BreakReleasesScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.UpsertDrug(ctx, &core.Drug{ID: id, Name: id})
		require.NoError(t, err)
	}

	for drug, err := range store.Drugs(ctx, storage.DrugFilter{}) {
		require.NoError(t, err)
		require.Equal(t, "a", drug.ID)
		break
	}

	// Writes after an abandoned iteration must not block.
	_, err := store.UpsertDrug(ctx, &core.Drug{ID: "d", Name: "d"})
	require.NoError(t, err)
}

func TestArticleRepository_UpsertAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	articles := []*core.Article{
		{ID: 42, Title: "Schmerzmittel", Section: "Pharmazie Tara Medizin", Processed: core.StateEnriched,
			PubDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Meta:    &core.ArticleMeta{Keywords: []core.KeywordFact{{Name: "Aspirin", Kind: core.KindTradeName}}}},
		{ID: 7, Title: "Apothekenreform", Section: "Politik Recht Wirtschaft", Processed: core.StateEnriched,
			PubDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 9, Title: "Neu eingelesen", Section: "Pharmazie Tara Medizin", Processed: core.StateRaw,
			PubDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, a := range articles {
		result, err := store.UpsertArticle(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, storage.UpsertInserted, result)
	}

	var ids []int64
	for article, err := range store.Articles(ctx, storage.RelevantArticles("")) {
		require.NoError(t, err)
		ids = append(ids, article.ID)
	}
	assert.Equal(t, []int64{42}, ids)

	got, err := store.GetArticle(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got.Meta)
	assert.Equal(t, core.KindTradeName, got.Meta.Keywords[0].Kind)
	assert.False(t, got.CreatedAt.IsZero())

	t.Run("invalid filter surfaces as error", func(t *testing.T) {
		var gotErr error
		for _, err := range store.Articles(ctx, storage.ArticleFilter{SectionPattern: "(["}) {
			gotErr = err
		}
		assert.ErrorIs(t, gotErr, storage.ErrInvalidQuery)
	})
}

func TestArticleRepository_ListByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dates := map[int64]time.Time{
		1: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		2: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		3: time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	for id, date := range dates {
		_, err := store.UpsertArticle(ctx, &core.Article{ID: id, PubDate: date})
		require.NoError(t, err)
	}

	page, err := store.ListArticles(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].ID)
	assert.Equal(t, int64(3), page[1].ID)

	page, err = store.ListArticles(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1), page[0].ID)

	t.Run("moving the date moves the index entry", func(t *testing.T) {
		_, err := store.UpsertArticle(ctx, &core.Article{ID: 1, PubDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)})
		require.NoError(t, err)

		page, err := store.ListArticles(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, int64(1), page[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteArticle(ctx, 3))
		count, err := store.CountArticles(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		page, err := store.ListArticles(ctx, 0, 10)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		_, err = store.GetArticle(ctx, 3)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("negative paging", func(t *testing.T) {
		_, err := store.ListArticles(ctx, -1, 10)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestVocabularyRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	terms := []*core.Indication{
		{Code: "B", Name: "Kopfschmerzen"},
		{Code: "A", Name: "Fieber", Synonyms: []string{"Pyrexie"}},
		{Code: "B1", Name: "Migräne", ParentCode: "B"},
	}
	for _, term := range terms {
		result, err := store.UpsertIndication(ctx, term)
		require.NoError(t, err)
		assert.Equal(t, storage.UpsertInserted, result)
	}

	result, err := store.UpsertIndication(ctx, &core.Indication{Code: "A", Name: "Fieber"})
	require.NoError(t, err)
	assert.Equal(t, storage.UpsertReplaced, result)

	var codes []string
	for term, err := range store.Indications(ctx) {
		require.NoError(t, err)
		codes = append(codes, term.Code)
	}
	assert.Equal(t, []string{"A", "B", "B1"}, codes)

	got, err := store.GetIndication(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, got.Synonyms)

	_, err = store.GetIndication(ctx, "Z")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	result, err = store.UpsertIndication(ctx, &core.Indication{Name: "ohne Code"})
	assert.Error(t, err)
	assert.Equal(t, storage.UpsertFailed, result)
}
