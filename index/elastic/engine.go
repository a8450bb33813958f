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

// Package elastic implements the search engine port on Elasticsearch.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/poiesic/acooeaz/index"
)

// ErrResponse wraps error responses returned by Elasticsearch.
var ErrResponse = errors.New("elasticsearch error response")

// Config holds the connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	// Refresh is passed to bulk requests ("true", "wait_for" or "").
	// Empty leaves refresh to the cluster, so written rows may not be
	// searchable right away.
	Refresh string
}

// Engine implements index.Engine with the official Go client.
type Engine struct {
	es      *elasticsearch.Client
	refresh string
	logger  *slog.Logger
}

var _ index.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates a client for the configured cluster. No request is made.
func New(cfg Config, opts ...Option) (*Engine, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	e := &Engine{
		es:      es,
		refresh: cfg.Refresh,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "elastic-engine")
	return e, nil
}

// Close releases nothing; the client holds no long-lived resources.
func (e *Engine) Close() error {
	return nil
}

// DropIndex deletes the index, ignoring missing ones.
func (e *Engine) DropIndex(ctx context.Context, name string) error {
	res, err := e.es.Indices.Delete([]string{name},
		e.es.Indices.Delete.WithContext(ctx),
		e.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return checkResponse(res)
}

// CreateIndex creates the index with dynamic mappings.
func (e *Engine) CreateIndex(ctx context.Context, name string) error {
	res, err := e.es.Indices.Create(name, e.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return checkResponse(res)
}

type bulkItem struct {
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

type bulkResponse struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]bulkItem `json:"items"`
}

// Bulk sends all rows as one _bulk request.
func (e *Engine) Bulk(ctx context.Context, name string, rows []index.Document) (index.BulkResult, error) {
	var result index.BulkResult
	var body bytes.Buffer
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return result, fmt.Errorf("encode row: %w", err)
		}
		body.WriteString(`{"index":{}}` + "\n")
		body.Write(data)
		body.WriteByte('\n')
	}

	opts := []func(*esapi.BulkRequest){
		e.es.Bulk.WithContext(ctx),
		e.es.Bulk.WithIndex(name),
	}
	if e.refresh != "" {
		opts = append(opts, e.es.Bulk.WithRefresh(e.refresh))
	}

	res, err := e.es.Bulk(&body, opts...)
	if err != nil {
		return index.BulkResult{Failed: len(rows)}, err
	}
	defer res.Body.Close()
	if err := checkResponse(res); err != nil {
		return index.BulkResult{Failed: len(rows)}, err
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return index.BulkResult{Failed: len(rows)}, fmt.Errorf("decode bulk response: %w", err)
	}

	var firstErr json.RawMessage
	for _, item := range br.Items {
		for _, op := range item {
			if op.Status > 299 {
				result.Failed++
				if firstErr == nil {
					firstErr = op.Error
				}
				continue
			}
			result.Indexed++
		}
	}
	if br.Errors || result.Failed > 0 {
		e.logger.Warn("bulk rows rejected", "index", name, "failed", result.Failed, "first_error", string(firstErr))
		return result, fmt.Errorf("%w: %d of %d rows rejected", index.ErrPartialBulk, result.Failed, len(rows))
	}
	return result, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64        `json:"_score"`
			Source index.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a query_string query restricted to one field.
func (e *Engine) Search(ctx context.Context, req index.SearchRequest) ([]index.Hit, error) {
	body := map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{
				"fields": []string{req.Field},
				"query":  EscapeQuery(req.Query),
			},
		},
	}
	if len(req.Source) > 0 {
		body["_source"] = req.Source
	}
	if req.Size > 0 {
		body["size"] = req.Size
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(req.Index),
		e.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s: %w", index.ErrIndexNotFound, req.Index, checkResponse(res))
	}
	if err := checkResponse(res); err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]index.Hit, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		hits = append(hits, index.Hit{Source: h.Source, Score: h.Score})
	}
	return hits, nil
}

func checkResponse(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%w: %s: %s", ErrResponse, res.Status(), strings.TrimSpace(string(detail)))
}

// Reserved query_string characters other than the wildcards. < and > cannot
// be escaped and are dropped.
var queryEscaper = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `=`, `\=`, `&`, `\&`, `|`, `\|`,
	`!`, `\!`, `(`, `\(`, `)`, `\)`, `{`, `\{`, `}`, `\}`, `[`, `\[`,
	`]`, `\]`, `^`, `\^`, `"`, `\"`, `~`, `\~`, `:`, `\:`, `/`, `\/`,
	`<`, ``, `>`, ``,
)

// EscapeQuery escapes query_string syntax so user text is matched literally,
// keeping * and ? as wildcards.
func EscapeQuery(q string) string {
	return queryEscaper.Replace(q)
}
