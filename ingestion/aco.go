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
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/acooeaz/core"
)

// ACOResponse is the compendium answer for one drug: one record per pack.
type ACOResponse struct {
	Errors  []string    `json:"errors"`
	Records []ACORecord `json:"masterdatarecords"`
}

// ACORecord describes one pack of a drug.
type ACORecord struct {
	Medicine   ACOMedicine    `json:"medicine"`
	Actives    []string       `json:"actives"`
	ShortTexts []ACOShortText `json:"shorttexts"`
}

// ACOMedicine identifies the pack.
type ACOMedicine struct {
	PZN         Number `json:"pzn"`
	PackageName string `json:"packagename"`
}

// ACOShortText is a labelled text block. Content may be null.
type ACOShortText struct {
	Chapter string  `json:"chapter"`
	Content *string `json:"content"`
}

// AssembleDrug completes a master-data drug with compendium content. Every
// pack contributes a package. Active substances and short texts come from
// the first pack; later packs are expected to agree, and disagreements are
// logged while the first-seen values are kept.
func AssembleDrug(base *core.Drug, resp *ACOResponse, logger *slog.Logger) (*core.Drug, error) {
	if base == nil {
		return nil, core.ErrInvalidDrug
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: no response for drug %s", ErrCompendium, base.ID)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: drug %s: %s", ErrCompendium, base.ID, strings.Join(resp.Errors, "; "))
	}
	if logger == nil {
		logger = slog.Default()
	}

	drug := *base
	drug.Packages = nil
	drug.Actives = nil
	drug.ShortTexts = nil

	for i, rec := range resp.Records {
		drug.Packages = append(drug.Packages, core.Package{
			PZN:  int(rec.Medicine.PZN),
			Name: rec.Medicine.PackageName,
		})

		for _, name := range rec.Actives {
			active := core.Active{Name: name}
			if i == 0 {
				drug.Actives = append(drug.Actives, active)
			} else if !slices.Contains(drug.Actives, active) {
				logger.Warn("differing actives between packs", "drug", drug.ID, "pack", i, "active", name)
			}
		}

		for _, st := range rec.ShortTexts {
			text := core.ShortText{Section: core.Section(st.Chapter), Text: st.Content}
			if i == 0 {
				drug.ShortTexts = append(drug.ShortTexts, text)
			} else if !containsShortText(drug.ShortTexts, text) {
				logger.Warn("differing short texts between packs", "drug", drug.ID, "pack", i, "section", st.Chapter)
			}
		}
	}
	return &drug, nil
}

func containsShortText(texts []core.ShortText, want core.ShortText) bool {
	for _, t := range texts {
		if t.Section != want.Section {
			continue
		}
		switch {
		case t.Text == nil && want.Text == nil:
			return true
		case t.Text != nil && want.Text != nil && *t.Text == *want.Text:
			return true
		}
	}
	return false
}
