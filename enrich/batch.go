package enrich

import (
	"context"
	"iter"
)

// DefaultBatchSize is the number of documents submitted to the pool at once.
const DefaultBatchSize = 50

// forEachBatch collects the sequence into batches of size and calls fn for
// each. Iteration stops on the first error from the sequence or fn.
// Context cancellation is checked between batches.
func forEachBatch[T any](ctx context.Context, seq iter.Seq2[T, error], size int, fn func([]T) error) error {
	if size <= 0 {
		size = DefaultBatchSize
	}

	batch := make([]T, 0, size)
	for item, err := range seq {
		if err != nil {
			return err
		}
		batch = append(batch, item)
		if len(batch) < size {
			continue
		}
		if err := fn(batch); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = make([]T, 0, size)
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// count drains the sequence and returns its length.
func count[T any](seq iter.Seq2[T, error]) (int, error) {
	n := 0
	for _, err := range seq {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
