// Package memory is an in-process store backend: a mutex-guarded document map
// with brute-force cosine KNN. It backs single-node deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tsurugi-io/kensaku/internal/domain"
	"github.com/tsurugi-io/kensaku/internal/store"
)

// Compile-time checks.
var (
	_ store.Store        = (*Store)(nil)
	_ store.KV           = (*Store)(nil)
	_ store.CounterStore = (*Store)(nil)
)

// Store keeps documents and the embedding cache in process memory.
type Store struct {
	mu       sync.RWMutex
	docs     map[int]domain.Document
	kv       map[string][]byte
	counters map[string]int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		docs:     make(map[int]domain.Document),
		kv:       make(map[string][]byte),
		counters: make(map[string]int64),
	}
}

// Put inserts or replaces a document. The first stored embedding fixes the
// index dimension; later mismatches are rejected.
func (s *Store) Put(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(doc.Embedding) > 0 {
		for _, existing := range s.docs {
			if existing.ID == doc.ID || len(existing.Embedding) == 0 {
				continue
			}
			if len(existing.Embedding) != len(doc.Embedding) {
				return fmt.Errorf("document %d has dimension %d, index has %d: %w",
					doc.ID, len(doc.Embedding), len(existing.Embedding), domain.ErrVectorDimMismatch)
			}
			break
		}
	}

	s.docs[doc.ID] = doc
	return nil
}

// Get returns a document by id.
func (s *Store) Get(_ context.Context, id int) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %d: %w", id, domain.ErrDocumentNotFound)
	}
	return doc, nil
}

// Delete removes a document by id. Deleting a missing document is not an error.
func (s *Store) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// All returns a snapshot of every document, ordered by id.
func (s *Store) All(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Ping reports the store as available. It exists for health check parity
// with the redis backend.
func (s *Store) Ping(_ context.Context) error { return nil }

// Query returns the k nearest documents to vector by cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]store.Candidate, error) {
	docs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return store.Rank(docs, vector, k), nil
}

// GetBytes implements store.KV for the embedding cache.
func (s *Store) GetBytes(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.kv[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	return val, nil
}

// SetBytes implements store.KV for the embedding cache.
func (s *Store) SetBytes(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = append([]byte(nil), value...)
	return nil
}

// IncrBy implements store.CounterStore for the token budget tracker.
func (s *Store) IncrBy(_ context.Context, key string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += delta
	return nil
}

// GetInt64 implements store.CounterStore. Missing keys read as 0.
func (s *Store) GetInt64(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[key], nil
}
