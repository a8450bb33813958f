package index

import (
	"context"
	"encoding/json"
	"strconv"
)

// Document is one index row. Values are JSON-compatible; numbers read back
// from an engine arrive as float64.
type Document map[string]any

// String returns the field as a string, or "" when absent or not a string.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// ArticleID returns the id field as an article id.
func (d Document) ArticleID() (int64, bool) {
	switch v := d[FieldID].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// DrugID returns the id field as a drug id.
func (d Document) DrugID() (string, bool) {
	s, ok := d[FieldID].(string)
	return s, ok && s != ""
}

// SearchRequest is a wildcard query against a single field.
type SearchRequest struct {
	Index string
	Field string
	// Query uses query_string syntax: whitespace separated terms, OR
	// combined, with * and ? wildcards.
	Query string
	// Source is the allow-list of fields returned per hit.
	Source []string
	// Size caps the number of hits. Zero means the engine default.
	Size int
}

// Hit is one search result.
type Hit struct {
	Source Document
	Score  float64
}

// BulkResult counts the outcome of one bulk write.
type BulkResult struct {
	Indexed int
	Failed  int
}

// Engine is the search engine holding the indexes.
type Engine interface {
	// DropIndex deletes the index. A missing index is not an error.
	DropIndex(ctx context.Context, name string) error
	// CreateIndex creates an empty index.
	CreateIndex(ctx context.Context, name string) error
	// Bulk writes all rows in one request. Rows already written stay
	// written when some fail.
	Bulk(ctx context.Context, name string, rows []Document) (BulkResult, error)
	// Search runs a query. Hits are ordered by descending score; ties
	// have no defined order.
	Search(ctx context.Context, req SearchRequest) ([]Hit, error)
	Close() error
}
