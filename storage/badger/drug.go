package badger

import (
	"context"
	"errors"
	"iter"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/storage"
)

// DrugRepository implements storage.DrugRepository for BadgerDB.
type DrugRepository struct {
	backend *Backend
}

var _ storage.DrugRepository = (*DrugRepository)(nil)

// NewDrugRepository creates a new DrugRepository.
func NewDrugRepository(backend *Backend) *DrugRepository {
	return &DrugRepository{
		backend: backend,
	}
}

// GetDrug retrieves a drug by natural id.
func (r *DrugRepository) GetDrug(ctx context.Context, id string) (*core.Drug, error) {
	var drug *core.Drug
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		drug, err = readDrug(tx, makeDrugKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if drug == nil {
		return nil, storage.ErrNotFound
	}
	return drug, nil
}

// UpsertDrug inserts the drug or replaces the stored document.
func (r *DrugRepository) UpsertDrug(ctx context.Context, drug *core.Drug) (storage.UpsertResult, error) {
	result, err := r.upsert(drug)
	if err != nil {
		r.backend.logger.Error("failed to upsert drug", "id", drugID(drug), "err", err)
		return storage.UpsertFailed, err
	}
	return result, nil
}

func (r *DrugRepository) upsert(drug *core.Drug) (storage.UpsertResult, error) {
	if err := core.ValidateDrug(drug); err != nil {
		return storage.UpsertFailed, err
	}
	value, err := storage.MarshalDrug(drug)
	if err != nil {
		return storage.UpsertFailed, err
	}

	result := storage.UpsertInserted
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDrugKey(drug.ID)
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
		return storage.UpsertFailed, err
	}
	return result, nil
}

// Drugs lazily yields drugs matching the filter.
func (r *DrugRepository) Drugs(ctx context.Context, filter storage.DrugFilter) iter.Seq2[*core.Drug, error] {
	return func(yield func(*core.Drug, error) bool) {
		err := r.backend.Scan(ctx, []byte(drugPrefix), func(_, value []byte) (bool, error) {
			drug, err := storage.UnmarshalDrug(value)
			if err != nil {
				return false, err
			}
			if !filter.Match(drug) {
				return true, nil
			}
			return yield(drug, nil), nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

// DeleteDrug removes a drug.
func (r *DrugRepository) DeleteDrug(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDrugKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CountDrugs returns the number of stored drugs.
func (r *DrugRepository) CountDrugs(ctx context.Context) (int, error) {
	return r.backend.CountPrefix([]byte(drugPrefix))
}

// readDrug reads a drug within a transaction.
// Returns nil, nil if the key doesn't exist.
func readDrug(tx *badger.Txn, key []byte) (*core.Drug, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var drug *core.Drug
	err = item.Value(func(val []byte) error {
		var err error
		drug, err = storage.UnmarshalDrug(val)
		return err
	})
	return drug, err
}

func drugID(drug *core.Drug) string {
	if drug == nil {
		return ""
	}
	return drug.ID
}
