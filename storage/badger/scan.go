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

package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/acooeaz/storage"
)

// ScanFunc receives a copy of one key/value pair. Returning false stops the scan.
type ScanFunc func(key, value []byte) (bool, error)

// Scan walks all keys under prefix in key order and calls fn for each.
//
// A single read transaction is kept for at most the refresh interval. After
// that the transaction and iterator are released and a new one resumes right
// after the last visited key, so arbitrarily slow consumers never pin one
// snapshot for the whole walk. Documents written during the walk may or may
// not be seen.
func (b *Backend) Scan(ctx context.Context, prefix []byte, fn ScanFunc) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	var after []byte
	for {
		last, done, err := b.scanWindow(ctx, prefix, after, fn)
		if err != nil || done {
			return err
		}
		b.logger.Debug("refreshing read transaction", "prefix", string(prefix))
		after = last
	}
}

// scanWindow runs one transaction's worth of a scan. It returns the last
// visited key and done=false when the window expired before the prefix was
// exhausted.
func (b *Backend) scanWindow(ctx context.Context, prefix, after []byte, fn ScanFunc) ([]byte, bool, error) {
	tx := b.db.NewTransaction(false)
	defer tx.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.NewIterator(opts)
	defer it.Close()

	var deadline time.Time
	if b.refresh > 0 {
		deadline = time.Now().Add(b.refresh)
	}

	if after == nil {
		it.Seek(prefix)
	} else {
		it.Seek(after)
		if it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), after) {
			it.Next()
		}
	}

	for ; it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, true, err
		}

		item := it.Item()
		key := item.KeyCopy(nil)
		value, err := item.ValueCopy(nil)
		if err != nil {
			return nil, true, err
		}

		more, err := fn(key, value)
		if err != nil || !more {
			return nil, true, err
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return key, false, nil
		}
	}
	return nil, true, nil
}

// CountPrefix counts keys under prefix without reading values.
func (b *Backend) CountPrefix(prefix []byte) (int, error) {
	count := 0
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
