package state

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store intended for tests and examples. It keys
// records by Ref.Identifier.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	snapshot Snapshot
	meta     Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (Snapshot, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return record.snapshot.Clone(), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	s.records[key] = memoryRecord{snapshot: snapshot.Clone(), meta: cloneMeta(meta)}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}

// Len returns the number of stored snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
