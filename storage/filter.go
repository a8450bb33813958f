package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/acooeaz/core"
)

// DefaultSectionPattern selects the pharmacy/medicine section of the magazine.
const DefaultSectionPattern = ".*Tara.*"

// DrugFilter selects drugs. Zero values match everything.
type DrugFilter struct {
	// Processed restricts to one processing state when set.
	Processed *core.ProcessingState
	// NamePrefix restricts to names starting with the prefix, ignoring case.
	NamePrefix string
}

// ArticleFilter selects articles. Zero values match everything.
type ArticleFilter struct {
	// Processed restricts to one processing state when set.
	Processed *core.ProcessingState
	// SectionPattern is a regular expression matched case-insensitively
	// against the article's section label.
	SectionPattern string
}

// State returns a pointer to s for use in filters.
func State(s core.ProcessingState) *core.ProcessingState {
	return &s
}

// EnrichedDrugs is the standard drug selector for index rebuilds.
func EnrichedDrugs() DrugFilter {
	return DrugFilter{Processed: State(core.StateEnriched)}
}

// RelevantArticles is the standard article selector for index rebuilds.
// An empty pattern falls back to DefaultSectionPattern.
func RelevantArticles(pattern string) ArticleFilter {
	if pattern == "" {
		pattern = DefaultSectionPattern
	}
	return ArticleFilter{Processed: State(core.StateEnriched), SectionPattern: pattern}
}

// Match reports whether the drug passes the filter.
func (f DrugFilter) Match(drug *core.Drug) bool {
	if drug == nil {
		return false
	}
	if f.Processed != nil && drug.Processed != *f.Processed {
		return false
	}
	if f.NamePrefix != "" && !strings.HasPrefix(strings.ToLower(drug.Name), strings.ToLower(f.NamePrefix)) {
		return false
	}
	return true
}

// Matcher compiles the filter into a predicate.
// Returns ErrInvalidQuery if the section pattern does not compile.
func (f ArticleFilter) Matcher() (func(*core.Article) bool, error) {
	var section *regexp.Regexp
	if f.SectionPattern != "" {
		re, err := regexp.Compile("(?i)" + f.SectionPattern)
		if err != nil {
			return nil, fmt.Errorf("%w: section pattern %q: %w", ErrInvalidQuery, f.SectionPattern, err)
		}
		section = re
	}

	return func(article *core.Article) bool {
		if article == nil {
			return false
		}
		if f.Processed != nil && article.Processed != *f.Processed {
			return false
		}
		if section != nil && !section.MatchString(article.Section) {
			return false
		}
		return true
	}, nil
}
