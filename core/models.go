package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier for derived rows.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ProcessingState tracks how far a document has moved through enrichment.
type ProcessingState int

const (
	// StateRaw is assigned by ingestion.
	StateRaw ProcessingState = 0
	// StateEnriched marks documents carrying derived metadata. Only these are indexed.
	StateEnriched ProcessingState = 2
)

// Section is the label of a drug short text.
type Section string

const (
	SectionIndications       Section = "Anwendungsgebiete"
	SectionContraindications Section = "Gegenanzeigen"
	SectionInteractions      Section = "Wechselwirkungen"
	SectionWarnings          Section = "Warnhinweise"
)

// IsCaution reports whether texts of this section belong to the warning block
// of a drug (contraindications, interactions and warnings).
func (s Section) IsCaution() bool {
	switch s {
	case SectionContraindications, SectionInteractions, SectionWarnings:
		return true
	}
	return false
}

// Active is an active substance of a drug.
type Active struct {
	Name string `json:"name"`
}

// ShortText is a labelled text block of a drug. Text may be absent.
type ShortText struct {
	Section Section `json:"section"`
	Text    *string `json:"text,omitempty"`
}

// Package is a marketed pack of a drug.
type Package struct {
	PZN  int    `json:"pzn"`
	Name string `json:"name"`
}

// DrugMeta holds AI-derived product data.
type DrugMeta struct {
	ProductName string  `json:"product_name"`
	Dosage      *string `json:"dosage,omitempty"`
	DosageForm  *string `json:"dosage_form,omitempty"`
}

// Drug is a compendium entry keyed by its registration number.
type Drug struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	EUNumber    string          `json:"eu_number,omitempty"`
	Trade       bool            `json:"trade"`
	Parallel    bool            `json:"parallel_import"`
	Faulty      bool            `json:"faulty"`
	ZNumber     int             `json:"znumber"`
	PZN         []int           `json:"pzn,omitempty"`
	Indications []*Indication   `json:"indications,omitempty"`
	Actives     []Active        `json:"actives,omitempty"`
	ShortTexts  []ShortText     `json:"short_texts,omitempty"`
	Packages    []Package       `json:"packages,omitempty"`
	Meta        *DrugMeta       `json:"meta,omitempty"`
	Processed   ProcessingState `json:"processed"`
}

// Texts returns the non-nil texts of all short texts matching the predicate,
// in document order.
func (d *Drug) Texts(match func(Section) bool) []string {
	var texts []string
	for _, st := range d.ShortTexts {
		if st.Text == nil || !match(st.Section) {
			continue
		}
		texts = append(texts, *st.Text)
	}
	return texts
}

// Indication is a term of the classification vocabulary.
type Indication struct {
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	Synonyms   []string      `json:"synonyms,omitempty"`
	ParentCode string        `json:"parent_code,omitempty"`
	Children   []*Indication `json:"-"`
}

// KeywordFact links an article to a name of the shared vocabulary.
type KeywordFact struct {
	Name string      `json:"name"`
	Kind KeywordKind `json:"type"`
}

// ArticleMeta is the derived metadata of an article.
type ArticleMeta struct {
	Summary  string        `json:"summary"`
	Keywords []KeywordFact `json:"keywords"`
}

// AddKeyword appends a fact unless a fact with the same name is already
// present. Reports whether the fact was added.
func (m *ArticleMeta) AddKeyword(fact KeywordFact) bool {
	for _, kw := range m.Keywords {
		if kw.Name == fact.Name {
			return false
		}
	}
	m.Keywords = append(m.Keywords, fact)
	return true
}

// Article is a magazine article.
type Article struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	PubDate   time.Time       `json:"pubdate"`
	Section   string          `json:"section"`
	Issue     int             `json:"issue"`
	Year      int             `json:"year"`
	SortNr    int             `json:"sort_nr"`
	StartPage int             `json:"start_page"`
	EndPage   int             `json:"end_page"`
	HTML      string          `json:"html,omitempty"`
	Images    []string        `json:"images,omitempty"`
	Processed ProcessingState `json:"processed"`
	Meta      *ArticleMeta    `json:"meta,omitempty"`
	CreatedAt time.Time       `json:"created"`
}
