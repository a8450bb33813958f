package badger

import "github.com/poiesic/acooeaz/storage"

// Store bundles the repositories sharing one backend.
type Store struct {
	*DrugRepository
	*ArticleRepository
	*VocabularyRepository

	backend *Backend
	owned   bool
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) a store at path.
func Open(path string, opts ...BackendOption) (*Store, error) {
	backend, err := OpenBackend(path, false, opts...)
	if err != nil {
		return nil, err
	}
	store := NewStore(backend)
	store.owned = true
	return store, nil
}

// NewStore creates a store on an existing backend. Closing the store leaves
// the backend open.
func NewStore(backend *Backend) *Store {
	return &Store{
		DrugRepository:       NewDrugRepository(backend),
		ArticleRepository:    NewArticleRepository(backend),
		VocabularyRepository: NewVocabularyRepository(backend),
		backend:              backend,
	}
}

// Backend returns the underlying backend.
func (s *Store) Backend() *Backend {
	return s.backend
}

// Close closes the backend if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.backend.Close()
}
