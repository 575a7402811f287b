package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

// Store is an in-process implementation of docstore.Store.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]map[string]map[string]any
	newID func() string
}

func NewStore() *Store {
	return &Store{
		docs:  make(map[string]map[string]map[string]any),
		newID: uuid.NewString,
	}
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[collection][id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return docstore.Document{ID: id, Data: docstore.CloneData(data)}, nil
}

func (s *Store) Query(_ context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	s.mu.RLock()
	docs := make([]docstore.Document, 0, len(s.docs[collection]))
	for id, data := range s.docs[collection] {
		docs = append(docs, docstore.Document{ID: id, Data: docstore.CloneData(data)})
	}
	s.mu.RUnlock()
	return docstore.Evaluate(docs, q), nil
}

func (s *Store) Create(_ context.Context, collection string, data map[string]any) (string, error) {
	normalized, err := docstore.Normalize(data)
	if err != nil {
		return "", err
	}
	id := s.newID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectionLocked(collection)[id] = normalized
	return id, nil
}

func (s *Store) Set(_ context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	normalized, err := docstore.Normalize(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collectionLocked(collection)
	if existing, ok := docs[id]; ok && docstore.IsMerge(opts) {
		docstore.MergeInto(existing, normalized)
		return nil
	}
	docs[id] = normalized
	return nil
}

func (s *Store) Update(_ context.Context, collection, id string, updates []docstore.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.docs[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	// Apply to a copy so a failing update leaves the document untouched.
	updated := docstore.CloneData(existing)
	if err := docstore.ApplyUpdates(updated, updates); err != nil {
		return err
	}
	s.docs[collection][id] = updated
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

func (s *Store) collectionLocked(collection string) map[string]map[string]any {
	docs, ok := s.docs[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.docs[collection] = docs
	}
	return docs
}
