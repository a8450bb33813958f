package badger

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage"
)

// VocabularyRepository implements storage.VocabularyRepository for BadgerDB.
type VocabularyRepository struct {
	backend *Backend
}

var _ storage.VocabularyRepository = (*VocabularyRepository)(nil)

// NewVocabularyRepository creates a new VocabularyRepository.
func NewVocabularyRepository(backend *Backend) *VocabularyRepository {
	return &VocabularyRepository{
		backend: backend,
	}
}

// GetIndication retrieves a term by code.
func (r *VocabularyRepository) GetIndication(ctx context.Context, code string) (*core.Indication, error) {
	var indication *core.Indication
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVocabularyKey(code))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			indication, err = storage.UnmarshalIndication(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return indication, nil
}

// UpsertIndication inserts the term or replaces the stored term.
func (r *VocabularyRepository) UpsertIndication(ctx context.Context, indication *core.Indication) (storage.UpsertResult, error) {
	if indication == nil || indication.Code == "" {
		err := fmt.Errorf("%w: indication without code", storage.ErrInvalidQuery)
		r.backend.logger.Error("failed to upsert indication", "err", err)
		return storage.UpsertFailed, err
	}
	value, err := storage.MarshalIndication(indication)
	if err != nil {
		r.backend.logger.Error("failed to upsert indication", "code", indication.Code, "err", err)
		return storage.UpsertFailed, err
	}

	result := storage.UpsertInserted
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeVocabularyKey(indication.Code)
		if _, err := tx.Get(key); err == nil {
			result = storage.UpsertReplaced
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		r.backend.logger.Error("failed to upsert indication", "code", indication.Code, "err", err)
		return storage.UpsertFailed, err
	}
	return result, nil
}

// Indications lazily yields all terms ordered by code.
func (r *VocabularyRepository) Indications(ctx context.Context) iter.Seq2[*core.Indication, error] {
	return func(yield func(*core.Indication, error) bool) {
		err := r.backend.Scan(ctx, []byte(vocabularyPrefix), func(_, value []byte) (bool, error) {
			indication, err := storage.UnmarshalIndication(value)
			if err != nil {
				return false, err
			}
			return yield(indication, nil), nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}
