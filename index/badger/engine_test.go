package badger

import (
	"context"
	"testing"

	"github.com/poiesic/acooeaz/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestWildcardMatch(t *testing.T) {
	tests := []struct {
		pattern string
		text    string
		want    bool
	}{
		{"*acetyl*salicyl*", "acetylsalicylsäure", true},
		{"aspirin", "aspirin", true},
		{"aspirin", "aspirin protect", false},
		{"asp*", "aspirin", true},
		{"*rin", "aspirin", true},
		{"a?pirin", "aspirin", true},
		{"a?pirin", "apirin", false},
		{"*", "", true},
		{"*säure*", "ascorbinsäure", true},
		{"*a*b*", "ba", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, wildcardMatch([]rune(tt.pattern), []rune(tt.text)))
		})
	}
}

func TestQueryScore(t *testing.T) {
	q := parseQuery("Kopfschmerzen Fieber")
	assert.Equal(t, 2.0, q.score("Fieber, Kopfschmerzen"))
	assert.Equal(t, 1.0, q.score("Kopfschmerzen"))
	assert.Zero(t, q.score("Migräne"))

	// Whitespace-wildcarded queries may span tokens through the whole value.
	assert.Equal(t, 1.0, parseQuery("*aspirin*protect*").score("Aspirin Protect"))

	assert.True(t, parseQuery(" ,; ").empty())
	assert.True(t, parseQuery("* ? -").empty())
}

func TestQueryPunctuationStaysInTerm(t *testing.T) {
	for _, raw := range []string{"*zzz*.*", "*zzz+*", "*zzz*-*", "zzz ."} {
		q := parseQuery(raw)
		require.Len(t, q.terms, 1, "query %q", raw)
		assert.Zero(t, q.score("Aspirin"), "query %q", raw)
	}

	assert.Equal(t, 1.0, parseQuery("*ass-ratio*").score("ASS-ratiopharm"))
	assert.Equal(t, 1.0, parseQuery("*schmerzen,*fieber*").score("Kopfschmerzen, Fieber"))
}

func TestEngine_Lifecycle(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	// Dropping a missing index is fine.
	require.NoError(t, engine.DropIndex(ctx, index.Products))
	require.NoError(t, engine.CreateIndex(ctx, index.Products))
	assert.ErrorIs(t, engine.CreateIndex(ctx, index.Products), ErrIndexExists)

	_, err := engine.Search(ctx, index.SearchRequest{Index: index.Diseases, Field: index.FieldDisease, Query: "x"})
	assert.ErrorIs(t, err, ErrIndexNotFound)

	result, err := engine.Bulk(ctx, index.Products, []index.Document{
		{index.FieldID: int64(42), index.FieldProduct: "Aspirin", index.FieldTitle: "Schmerzmittel"},
		{index.FieldID: int64(43), index.FieldProduct: "Aspro", index.FieldTitle: "Erkältung"},
	})
	require.NoError(t, err)
	assert.Equal(t, index.BulkResult{Indexed: 2}, result)

	rows, err := engine.Rows(ctx, index.Products)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, engine.DropIndex(ctx, index.Products))
	rows, err = engine.Rows(ctx, index.Products)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEngine_BulkIsDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	rows := []index.Document{
		{index.FieldID: "1", index.FieldName: "Ibuprofen"},
		{index.FieldID: "1", index.FieldName: "Ibuprofen"},
	}

	_, err := engine.Bulk(ctx, index.Actives, rows)
	require.NoError(t, err)
	_, err = engine.Bulk(ctx, index.Actives, rows)
	require.NoError(t, err)

	got, err := engine.Rows(ctx, index.Actives)
	require.NoError(t, err)
	assert.Len(t, got, 2, "identical rows keep their own ids and rewrites land on the same keys")
}

func TestEngine_Search(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Bulk(ctx, index.Actives, []index.Document{
		{index.FieldID: "1", index.FieldName: "Acetylsalicylsäure"},
		{index.FieldID: "2", index.FieldName: "Ascorbinsäure"},
		{index.FieldID: "3", index.FieldName: "Ibuprofen"},
		{index.FieldID: "4", index.FieldName: "Acetylsalicylsäure"},
	})
	require.NoError(t, err)

	hits, err := engine.Search(ctx, index.SearchRequest{
		Index:  index.Actives,
		Field:  index.FieldName,
		Query:  "*acetyl*salicyl*",
		Source: []string{index.FieldID, index.FieldName},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	ids := []string{hits[0].Source.String(index.FieldID), hits[1].Source.String(index.FieldID)}
	assert.ElementsMatch(t, []string{"1", "4"}, ids)
	for _, hit := range hits {
		assert.Equal(t, 1.0, hit.Score)
	}

	t.Run("more matched terms rank first", func(t *testing.T) {
		hits, err := engine.Search(ctx, index.SearchRequest{
			Index: index.Actives,
			Field: index.FieldName,
			Query: "*säure* ascorbinsäure",
		})
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "2", hits[0].Source.String(index.FieldID))
		assert.Equal(t, 2.0, hits[0].Score)
	})

	t.Run("size caps hits", func(t *testing.T) {
		hits, err := engine.Search(ctx, index.SearchRequest{Index: index.Actives, Field: index.FieldName, Query: "*säure*", Size: 2})
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("source allow-list", func(t *testing.T) {
		hits, err := engine.Search(ctx, index.SearchRequest{
			Index: index.Actives, Field: index.FieldName, Query: "ibuprofen", Source: []string{index.FieldID},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, index.Document{index.FieldID: "3"}, hits[0].Source)
	})

	t.Run("punctuation never widens to every row", func(t *testing.T) {
		for _, query := range []string{"*zzz*.*", "*zzz+*", "*zzz*-*", "*"} {
			hits, err := engine.Search(ctx, index.SearchRequest{Index: index.Actives, Field: index.FieldName, Query: query})
			require.NoError(t, err)
			assert.Empty(t, hits, "query %q", query)
		}
	})

	t.Run("numbers read back as float64", func(t *testing.T) {
		_, err := engine.Bulk(ctx, index.Products, []index.Document{{index.FieldID: int64(42), index.FieldProduct: "Aspirin"}})
		require.NoError(t, err)
		hits, err := engine.Search(ctx, index.SearchRequest{Index: index.Products, Field: index.FieldProduct, Query: "Aspirin"})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		id, ok := hits[0].Source.ArticleID()
		assert.True(t, ok)
		assert.Equal(t, int64(42), id)
	})
}

func TestEngine_SharedBackend(t *testing.T) {
	engine := newTestEngine(t)
	shared := New(engine.backend)
	require.NoError(t, shared.Close(), "closing a non-owning engine is a no-op")
	assert.False(t, engine.backend.IsClosed())
}
