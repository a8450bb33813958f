package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPipeline(t *testing.T, opts ...Option) (*Pipeline, *badger.Store) {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p, err := NewPipeline(store, append([]Option{WithPoolSize(4)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, store
}

func TestNewPipeline_RequiresStore(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestPipeline_ImportVocabulary(t *testing.T) {
	p, store := setupPipeline(t)
	ctx := context.Background()

	tree, stats, err := p.ImportVocabulary(ctx, decodeTerms(t))
	require.NoError(t, err)
	assert.Len(t, tree, 4)
	assert.Equal(t, Stats{Inserted: 4}, stats)

	_, stats, err = p.ImportVocabulary(ctx, decodeTerms(t))
	require.NoError(t, err)
	assert.Equal(t, Stats{Replaced: 4}, stats)

	term, err := store.GetIndication(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "A", term.ParentCode)
}

func TestPipeline_ImportDrugs(t *testing.T) {
	p, store := setupPipeline(t)
	ctx := context.Background()

	vocab, _, err := p.ImportVocabulary(ctx, decodeTerms(t))
	require.NoError(t, err)

	records := []SISRecord{
		{Registration: "1-1", Name: "Aspirin", Trade: true, IndicationGroups: []string{"A1"}},
		{Registration: "1-2", Name: "Thomapyrin", Trade: true},
		{Registration: "07-1", Name: "Parallel", Trade: true},
		{Registration: "1-3", Name: "Unbekannt", Trade: true, IndicationGroups: []string{"nope"}},
		{Registration: "1-4", Name: "Kaputt", Trade: true},
	}

	lookup := func(_ context.Context, drug *core.Drug) (*ACOResponse, error) {
		switch drug.ID {
		case "1-4":
			return nil, errors.New("compendium down")
		case "1-2":
			return &ACOResponse{Errors: []string{"unknown product"}}, nil
		}
		return &ACOResponse{Records: []ACORecord{{
			Medicine: ACOMedicine{PZN: 1, PackageName: drug.Name + " 20 Stk"},
			Actives:  []string{"Acetylsalicylsäure"},
		}}}, nil
	}

	stats, err := p.ImportDrugs(ctx, records, vocab, lookup)
	require.NoError(t, err)
	assert.Equal(t, Stats{Inserted: 1, Failed: 3, Skipped: 1}, stats)
	assert.Equal(t, len(records), stats.Total())

	drug, err := store.GetDrug(ctx, "1-1")
	require.NoError(t, err)
	assert.Equal(t, []core.Active{{Name: "Acetylsalicylsäure"}}, drug.Actives)
	require.Len(t, drug.Indications, 1)
	assert.Equal(t, "Kopfschmerzen", drug.Indications[0].Name)

	t.Run("rerun replaces", func(t *testing.T) {
		stats, err := p.ImportDrugs(ctx, records[:1], vocab, lookup)
		require.NoError(t, err)
		assert.Equal(t, Stats{Replaced: 1}, stats)
	})
}

func TestPipeline_ImportDrugsWithFringe(t *testing.T) {
	p, store := setupPipeline(t, WithFringe())
	ctx := context.Background()

	stats, err := p.ImportDrugs(ctx, []SISRecord{{Registration: "07-1", Name: "Parallel"}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Inserted: 1}, stats)

	drug, err := store.GetDrug(ctx, "07-1")
	require.NoError(t, err)
	assert.True(t, drug.Parallel)
}

func TestPipeline_ImportArticles(t *testing.T) {
	p, store := setupPipeline(t)
	ctx := context.Background()

	stats, err := p.ImportArticles(ctx, []*core.Article{
		{ID: 42, Title: "Schmerzmittel"},
		{ID: 0, Title: "ohne ID"},
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Inserted: 1, Failed: 1}, stats)

	count, err := store.CountArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPipeline_CancelledContext(t *testing.T) {
	p, _ := setupPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ImportDrugs(ctx, []SISRecord{{Registration: "1-1", Name: "x", Trade: true}}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
