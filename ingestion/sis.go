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

package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/acooeaz/core"
)

// Registration numbers of reference records, not real products.
var referenceRegistrations = map[string]bool{
	"999999": true,
	"999990": true,
}

// parallelImportPrefix marks registration numbers of parallel imports.
const parallelImportPrefix = "07"

// Number accepts a JSON number or a numeric string.
type Number int

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*n = Number(v)
	return nil
}

// SISRecord is a drug master record as exported by SIS.
type SISRecord struct {
	Registration     string   `json:"ZLNUMM"`
	Name             string   `json:"Bezeichnung"`
	LongName         *string  `json:"BezeichnungLang"`
	EUNumber         *string  `json:"EUZLNUMM"`
	ZNumber          Number   `json:"ZNUMM"`
	Trade            bool     `json:"WVZdata"`
	ParallelImport   bool     `json:"isPrallelimport"`
	PZN              []Number `json:"PhzNr"`
	IndicationGroups []string `json:"IndicationGroups"`
}

// SISIndication is a vocabulary term as exported by SIS.
type SISIndication struct {
	Code       string   `json:"IndicationCode"`
	Name       string   `json:"IndicationName"`
	Synonyms   []string `json:"IndicationSynonym"`
	ParentCode string   `json:"IndicationParentCode"`
}

// BuildIndicationTree converts SIS terms into vocabulary terms keyed by code,
// with parent links resolved into children. Synonyms equal to the term's
// name are dropped.
func BuildIndicationTree(terms []SISIndication) map[string]*core.Indication {
	tree := make(map[string]*core.Indication, len(terms))
	for _, t := range terms {
		var synonyms []string
		for _, s := range t.Synonyms {
			if s != t.Name {
				synonyms = append(synonyms, s)
			}
		}
		tree[t.Code] = &core.Indication{
			Code:       t.Code,
			Name:       t.Name,
			Synonyms:   synonyms,
			ParentCode: strings.TrimSpace(t.ParentCode),
		}
	}

	// Link in input order so children keep the export's ordering.
	for _, t := range terms {
		node := tree[t.Code]
		if node.ParentCode == "" || node.ParentCode == node.Code {
			continue
		}
		if parent, ok := tree[node.ParentCode]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	return tree
}

// DrugFromSIS builds a raw drug from a master record. The long name wins over
// the short name when present; blank EU numbers are dropped. Registration
// numbers starting with 07 mark parallel imports and reference numbers mark
// the record faulty.
//
// With excludeFringe set, faulty records, parallel imports and products not
// in trade return nil without error.
func DrugFromSIS(rec SISRecord, vocabulary map[string]*core.Indication, excludeFringe bool) (*core.Drug, error) {
	id := strings.TrimSpace(rec.Registration)
	if id == "" {
		return nil, ErrMissingRegistration
	}

	drug := &core.Drug{
		ID:       id,
		Name:     rec.Name,
		Trade:    rec.Trade,
		Parallel: rec.ParallelImport || strings.HasPrefix(id, parallelImportPrefix),
		Faulty:   referenceRegistrations[id],
		ZNumber:  int(rec.ZNumber),
	}
	if rec.LongName != nil && strings.TrimSpace(*rec.LongName) != "" {
		drug.Name = *rec.LongName
	}
	if rec.EUNumber != nil && strings.TrimSpace(*rec.EUNumber) != "" {
		drug.EUNumber = *rec.EUNumber
	}
	for _, pzn := range rec.PZN {
		drug.PZN = append(drug.PZN, int(pzn))
	}
	for _, code := range rec.IndicationGroups {
		term, ok := vocabulary[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s (drug %s)", ErrUnknownIndication, code, id)
		}
		drug.Indications = append(drug.Indications, term)
	}

	if excludeFringe && (drug.Faulty || drug.Parallel || !drug.Trade) {
		return nil, nil
	}
	return drug, nil
}

// DecodeSISRecords decodes a JSON array of master records.
func DecodeSISRecords(data []byte) ([]SISRecord, error) {
	var recs []SISRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode master records: %w", err)
	}
	return recs, nil
}
