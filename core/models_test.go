package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "oeaz_products|{\"id\":42}"},
		{name: "empty string", content: ""},
		{name: "umlauts", content: "Acetylsalicylsäure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestSection_IsCaution(t *testing.T) {
	tests := []struct {
		section Section
		want    bool
	}{
		{SectionIndications, false},
		{SectionContraindications, true},
		{SectionInteractions, true},
		{SectionWarnings, true},
		{Section("Dosierung"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.section), func(t *testing.T) {
			if got := tt.section.IsCaution(); got != tt.want {
				t.Errorf("Section(%q).IsCaution() = %v, want %v", tt.section, got, tt.want)
			}
		})
	}
}

func TestDrug_Texts(t *testing.T) {
	headache := "Kopfschmerzen"
	fever := "Fieber"
	bleeding := "Blutungsneigung"
	drug := &Drug{
		ShortTexts: []ShortText{
			{Section: SectionIndications, Text: &headache},
			{Section: SectionWarnings, Text: nil},
			{Section: SectionContraindications, Text: &bleeding},
			{Section: SectionIndications, Text: &fever},
		},
	}

	indications := drug.Texts(func(s Section) bool { return s == SectionIndications })
	if !reflect.DeepEqual(indications, []string{"Kopfschmerzen", "Fieber"}) {
		t.Errorf("indications = %v", indications)
	}

	cautions := drug.Texts(Section.IsCaution)
	if !reflect.DeepEqual(cautions, []string{"Blutungsneigung"}) {
		t.Errorf("cautions = %v", cautions)
	}
}

func TestArticleMeta_AddKeyword(t *testing.T) {
	meta := &ArticleMeta{}

	if !meta.AddKeyword(KeywordFact{Name: "Aspirin", Kind: KindTradeName}) {
		t.Fatal("first add should succeed")
	}
	if meta.AddKeyword(KeywordFact{Name: "Aspirin", Kind: KindSubstance}) {
		t.Error("duplicate name should be ignored regardless of kind")
	}
	if !meta.AddKeyword(KeywordFact{Name: "ASS", Kind: KindTradeName}) {
		t.Error("distinct name should be added")
	}
	if len(meta.Keywords) != 2 {
		t.Errorf("len(Keywords) = %d, want 2", len(meta.Keywords))
	}
}

func TestKeywordKind_JSON(t *testing.T) {
	fact := KeywordFact{Name: "Fieber", Kind: KindDisease}
	data, err := json.Marshal(fact)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"name":"Fieber","type":"disease"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var decoded KeywordFact
	if err := json.Unmarshal([]byte(`{"name":"ASS","type":"trade_name"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Kind != KindTradeName {
		t.Errorf("Kind = %v, want trade_name", decoded.Kind)
	}

	err = json.Unmarshal([]byte(`{"name":"x","type":"brand"}`), &decoded)
	if !errors.Is(err, ErrUnknownKeywordKind) {
		t.Errorf("Unmarshal() error = %v, want ErrUnknownKeywordKind", err)
	}
}

func TestParseKeywordKind(t *testing.T) {
	for _, kind := range KeywordKinds {
		parsed, err := ParseKeywordKind(kind.String())
		if err != nil {
			t.Fatalf("ParseKeywordKind(%q) error = %v", kind, err)
		}
		if parsed != kind {
			t.Errorf("ParseKeywordKind(%q) = %v", kind, parsed)
		}
	}

	if _, err := ParseKeywordKind(""); !errors.Is(err, ErrUnknownKeywordKind) {
		t.Errorf("ParseKeywordKind(\"\") error = %v", err)
	}
}
