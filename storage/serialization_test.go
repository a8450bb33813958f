package storage

import (
	"testing"
	"time"

	"github.com/poiesic/acooeaz/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalDrug(t *testing.T) {
	text := "Kopfschmerzen Fieber"
	dosage := "500 mg"
	drug := &core.Drug{
		ID:      "1-23456",
		Name:    "Aspirin 500 mg Tabletten",
		Trade:   true,
		ZNumber: 17,
		PZN:     []int{1234567},
		Actives: []core.Active{{Name: "Acetylsalicylsäure"}},
		ShortTexts: []core.ShortText{
			{Section: core.SectionIndications, Text: &text},
			{Section: core.SectionWarnings},
		},
		Packages:  []core.Package{{PZN: 1234567, Name: "20 Stk"}},
		Meta:      &core.DrugMeta{ProductName: "Aspirin", Dosage: &dosage},
		Processed: core.StateEnriched,
	}

	data, err := MarshalDrug(drug)
	require.NoError(t, err)

	decoded, err := UnmarshalDrug(data)
	require.NoError(t, err)
	assert.Equal(t, drug, decoded)
	assert.Nil(t, decoded.ShortTexts[1].Text, "absent text must stay absent")
}

func TestMarshalArticle_KeywordKinds(t *testing.T) {
	article := &core.Article{
		ID:        42,
		Title:     "Schmerzmittel",
		PubDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Section:   "Pharmazie Tara Medizin",
		Processed: core.StateEnriched,
		Meta: &core.ArticleMeta{
			Summary: "Über Schmerzmittel",
			Keywords: []core.KeywordFact{
				{Name: "Aspirin", Kind: core.KindTradeName},
				{Name: "Acetylsalicylsäure", Kind: core.KindSubstance},
				{Name: "Kopfschmerzen", Kind: core.KindDisease},
			},
		},
	}

	data, err := MarshalArticle(article)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"trade_name"`)

	decoded, err := UnmarshalArticle(data)
	require.NoError(t, err)
	assert.Equal(t, article.Meta.Keywords, decoded.Meta.Keywords)
	assert.True(t, article.PubDate.Equal(decoded.PubDate))
}

func TestMarshalArticle_InvalidKind(t *testing.T) {
	article := &core.Article{
		ID:   1,
		Meta: &core.ArticleMeta{Keywords: []core.KeywordFact{{Name: "x"}}},
	}
	_, err := MarshalArticle(article)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestUnmarshal_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"not json", []byte("drug")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDrug(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestIndication_ChildrenNotStored(t *testing.T) {
	child := &core.Indication{Code: "B1", Name: "Migräne", ParentCode: "B"}
	parent := &core.Indication{Code: "B", Name: "Kopfschmerzen", Children: []*core.Indication{child}}

	data, err := MarshalIndication(parent)
	require.NoError(t, err)

	decoded, err := UnmarshalIndication(data)
	require.NoError(t, err)
	assert.Equal(t, "B", decoded.Code)
	assert.Empty(t, decoded.Children)
}
