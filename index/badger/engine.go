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

// Package badger is an embedded search engine storing index rows in BadgerDB.
//
// It answers the same single-field query_string queries the Elasticsearch
// engine does, closely enough for development, tests and small installations.
// Scores count matched query terms, so every wildcard hit of a one-term
// query scores the same.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/index"
	store "github.com/poiesic/acooeaz/storage/badger"
)

// DefaultSize is the number of hits returned when a request sets none.
const DefaultSize = 10

var (
	// ErrIndexNotFound is returned when searching an index that doesn't exist.
	ErrIndexNotFound = index.ErrIndexNotFound

	// ErrIndexExists is returned when creating an index twice.
	ErrIndexExists = errors.New("index already exists")
)

const (
	rowPrefix    = "ix:"
	markerPrefix = "ixm:"
)

func makeRowPrefix(name string) []byte {
	return []byte(rowPrefix + name + ":")
}

func makeRowKey(name string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s%s:%016x", rowPrefix, name, uint64(id)))
}

func makeMarkerKey(name string) []byte {
	return []byte(markerPrefix + name)
}

// Engine implements index.Engine on a storage backend.
type Engine struct {
	backend *store.Backend
	logger  *slog.Logger
	owned   bool
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

// New creates an engine on an open backend. Rows live under their own key
// prefix, so the backend can be shared with a document store. Closing the
// engine leaves the backend open.
func New(backend *store.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "badger-engine")
	return e
}

// Open creates an engine with its own database at path.
func Open(path string, inMemory bool, opts ...Option) (*Engine, error) {
	backend, err := store.OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	e := New(backend, opts...)
	e.owned = true
	return e, nil
}

// Close closes the backend if the engine opened it.
func (e *Engine) Close() error {
	if !e.owned {
		return nil
	}
	return e.backend.Close()
}

// DropIndex removes all rows of the index and the index itself.
func (e *Engine) DropIndex(_ context.Context, name string) error {
	if err := e.backend.DropPrefix(makeRowPrefix(name)); err != nil {
		return err
	}
	return e.backend.WithTx(func(tx *badgerdb.Txn) error {
		if err := tx.Delete(makeMarkerKey(name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CreateIndex creates an empty index.
func (e *Engine) CreateIndex(_ context.Context, name string) error {
	return e.backend.WithTx(func(tx *badgerdb.Txn) error {
		_, err := tx.Get(makeMarkerKey(name))
		if err == nil {
			return fmt.Errorf("%w: %s", ErrIndexExists, name)
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(makeMarkerKey(name), []byte{}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (e *Engine) exists(name string) (bool, error) {
	found := false
	err := e.backend.WithTx(func(tx *badgerdb.Txn) error {
		_, err := tx.Get(makeMarkerKey(name))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// Bulk writes rows in one batch, creating the index when missing. Row ids
// derive from the row content and its position, so writing the same rows
// again yields the same keys.
func (e *Engine) Bulk(ctx context.Context, name string, rows []index.Document) (index.BulkResult, error) {
	var result index.BulkResult

	ok, err := e.exists(name)
	if err != nil {
		return result, err
	}
	if !ok {
		if err := e.CreateIndex(ctx, name); err != nil && !errors.Is(err, ErrIndexExists) {
			return result, err
		}
	}

	wb := e.backend.NewWriteBatch()

	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			e.logger.Warn("rejecting row", "index", name, "position", i, "err", err)
			result.Failed++
			continue
		}
		id := core.IDFromContent(string(data) + "#" + strconv.Itoa(i))
		if err := wb.Set(makeRowKey(name, id), data); err != nil {
			wb.Cancel()
			return index.BulkResult{Failed: len(rows)}, err
		}
		result.Indexed++
	}

	if err := wb.Flush(); err != nil {
		return index.BulkResult{Failed: len(rows)}, err
	}
	if result.Failed > 0 {
		return result, fmt.Errorf("%w: %d rows rejected", index.ErrPartialBulk, result.Failed)
	}
	return result, nil
}

// Search scans the index and scores every row against the query.
func (e *Engine) Search(ctx context.Context, req index.SearchRequest) ([]index.Hit, error) {
	ok, err := e.exists(req.Index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, req.Index)
	}

	q := parseQuery(req.Query)
	if q.empty() {
		return []index.Hit{}, nil
	}

	var hits []index.Hit
	err = e.backend.Scan(ctx, makeRowPrefix(req.Index), func(_, value []byte) (bool, error) {
		var row index.Document
		if err := json.Unmarshal(value, &row); err != nil {
			return false, err
		}
		text, ok := row[req.Field].(string)
		if !ok {
			return true, nil
		}
		if score := q.score(text); score > 0 {
			hits = append(hits, index.Hit{Source: project(row, req.Source), Score: score})
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	// Stable keeps key order among ties, which is arbitrary to callers.
	slices.SortStableFunc(hits, func(a, b index.Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	size := req.Size
	if size <= 0 {
		size = DefaultSize
	}
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits, nil
}

// Rows returns every row of the index, in key order.
func (e *Engine) Rows(ctx context.Context, name string) ([]index.Document, error) {
	var rows []index.Document
	err := e.backend.Scan(ctx, makeRowPrefix(name), func(_, value []byte) (bool, error) {
		var row index.Document
		if err := json.Unmarshal(value, &row); err != nil {
			return false, err
		}
		rows = append(rows, row)
		return true, nil
	})
	return rows, err
}

func project(row index.Document, fields []string) index.Document {
	if len(fields) == 0 {
		return row
	}
	out := make(index.Document, len(fields))
	for _, f := range fields {
		if v, ok := row[f]; ok {
			out[f] = v
		}
	}
	return out
}
