package index

import (
	"fmt"

	"github.com/poiesic/acooeaz/core"
)

// Index names.
const (
	Products   = "oeaz_products"
	Substances = "oeaz_substances"
	Diseases   = "oeaz_diseases"
	Drugs      = "aco"
	Actives    = "aco_actives"
)

// Row fields.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldProduct     = "product"
	FieldSubstance   = "substance"
	FieldDisease     = "disease"
	FieldName        = "bezeichnung"
	FieldIndications = "anwendung"
	FieldWarnings    = "warn"
)

// ArticleIndexes are the keyword indexes in write order.
var ArticleIndexes = []string{Products, Substances, Diseases}

// DrugIndexes are the drug-side indexes in write order.
var DrugIndexes = []string{Drugs, Actives}

// All lists every index.
var All = []string{Products, Substances, Diseases, Drugs, Actives}

// KeywordIndex returns the index and field receiving facts of the given kind.
func KeywordIndex(kind core.KeywordKind) (name, field string, err error) {
	switch kind {
	case core.KindTradeName:
		return Products, FieldProduct, nil
	case core.KindSubstance:
		return Substances, FieldSubstance, nil
	case core.KindDisease:
		return Diseases, FieldDisease, nil
	}
	return "", "", fmt.Errorf("%w: %d", core.ErrUnknownKeywordKind, int(kind))
}

// Known reports whether name is one of the managed indexes.
func Known(name string) bool {
	for _, n := range All {
		if n == name {
			return true
		}
	}
	return false
}
