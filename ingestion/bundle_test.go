package ingestion

import (
	"context"
	"testing"

	"github.com/poiesic/acooeaz/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bundleJSON = `{
  "vocabulary": [
    {"IndicationCode": "A1", "IndicationName": "Kopfschmerzen", "IndicationSynonym": ["Cephalgie"]}
  ],
  "drugs": [
    {"ZLNUMM": "1-23456", "Bezeichnung": "Aspirin", "WVZdata": true, "IndicationGroups": ["A1"]},
    {"ZLNUMM": "1-99999", "Bezeichnung": "Ohne Eintrag", "WVZdata": true},
    {"ZLNUMM": "07-1", "Bezeichnung": "Parallel", "WVZdata": true}
  ],
  "compendium": {
    "1-23456": {"masterdatarecords": [
      {"medicine": {"pzn": "1234567", "packagename": "Aspirin 20 Stk"}, "actives": ["Acetylsalicylsäure"],
       "shorttexts": [{"chapter": "Anwendungsgebiete", "content": "Kopfschmerzen"}]}
    ]}
  },
  "drug_metadata": {
    "1-23456": {"product_name": "Aspirin", "dosage": "500 mg", "dosage_form": "Tabletten"},
    "07-1": {"product_name": "Parallel"}
  },
  "articles": [
    {"id": 42, "title": "Schmerzmittel", "section": "Pharmazie Tara Medizin",
     "metadata": {"summary": "Vergleich", "trade_names": [{"name": "Aspirin", "synonym": ["ASS"]}],
                  "substances": [], "diseases": []}},
    {"id": 43, "title": "Unvollständig", "section": "Pharmazie Tara Medizin",
     "metadata": {"summary": "fehlt", "trade_names": []}},
    {"id": 44, "title": "Roh", "section": "Pharmazie Tara Medizin"}
  ]
}`

func TestDecodeBundle(t *testing.T) {
	b, err := DecodeBundle([]byte(bundleJSON))
	require.NoError(t, err)
	assert.Len(t, b.Drugs, 3)
	require.Len(t, b.Articles, 3)
	assert.Equal(t, int64(42), b.Articles[0].ID)
	assert.NotNil(t, b.Articles[0].Metadata)
	assert.Nil(t, b.Articles[2].Metadata)

	_, err = DecodeBundle([]byte(`{"drugs": 1}`))
	assert.Error(t, err)
}

func TestBundle_Lookup(t *testing.T) {
	assert.Nil(t, (&Bundle{}).Lookup())

	b, err := DecodeBundle([]byte(bundleJSON))
	require.NoError(t, err)
	lookup := b.Lookup()
	require.NotNil(t, lookup)

	resp, err := lookup(context.Background(), &core.Drug{ID: "1-23456"})
	require.NoError(t, err)
	assert.Len(t, resp.Records, 1)

	_, err = lookup(context.Background(), &core.Drug{ID: "1-99999"})
	assert.ErrorIs(t, err, ErrCompendium)
}

func TestPipeline_ImportBundle(t *testing.T) {
	p, store := setupPipeline(t)
	ctx := context.Background()

	b, err := DecodeBundle([]byte(bundleJSON))
	require.NoError(t, err)

	stats, err := p.ImportBundle(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, Stats{Inserted: 1}, stats.Vocabulary)
	assert.Equal(t, Stats{Inserted: 1, Failed: 1, Skipped: 1}, stats.Drugs)
	assert.Equal(t, Stats{Inserted: 3}, stats.Articles)
	assert.Equal(t, 2, stats.Enriched, "the drug and the complete article")

	drug, err := store.GetDrug(ctx, "1-23456")
	require.NoError(t, err)
	assert.Equal(t, core.StateEnriched, drug.Processed)
	require.NotNil(t, drug.Meta)
	assert.Equal(t, "Aspirin", drug.Meta.ProductName)
	assert.Equal(t, []core.Active{{Name: "Acetylsalicylsäure"}}, drug.Actives)

	article, err := store.GetArticle(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, core.StateEnriched, article.Processed)
	assert.Len(t, article.Meta.Keywords, 2)

	for _, id := range []int64{43, 44} {
		article, err := store.GetArticle(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.StateRaw, article.Processed, "article %d", id)
	}
}
