package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in a mutex-guarded map. It is the default
// backend for tests and single-instance serving.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*Record)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.recs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("record %q: %w", id, ErrNotFound)
	}
	if rec.IsExpired() {
		s.mu.Lock()
		delete(s.recs, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("record %q: %w", id, ErrExpired)
	}
	return rec, nil
}

func (s *MemoryStore) Put(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record has no ID")
	}

	// Store a copy so later caller mutations don't reach into the store.
	copied := *rec
	copied.Data = append([]byte(nil), rec.Data...)
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.recs[copied.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recs[id]; !ok {
		return fmt.Errorf("record %q: %w", id, ErrNotFound)
	}
	delete(s.recs, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	recs := make([]*Record, 0, len(s.recs))
	for _, rec := range s.recs {
		if !rec.IsExpired() {
			recs = append(recs, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.recs {
		if rec.IsExpired() {
			delete(s.recs, id)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
