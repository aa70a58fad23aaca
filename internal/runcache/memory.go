package runcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an ephemeral, thread-safe Store for tests and
// single-process deployments. Entries are round-tripped through JSON on
// both Put and Get, so callers get the same isolation guarantees as with
// an external store: no shared mutable state between the live run and the
// cached snapshot.
type MemoryStore struct {
	entries sync.Map // run id -> []byte (JSON-encoded Entry)
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(ctx context.Context, runID string) (*Entry, error) {
	raw, ok := s.entries.Load(runID)
	if !ok {
		return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	var entry Entry
	if err := json.Unmarshal(raw.([]byte), &entry); err != nil {
		return nil, fmt.Errorf("decode cached entry for run %q: %w", runID, err)
	}
	return &entry, nil
}

func (s *MemoryStore) Put(ctx context.Context, runID string, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry for run %q: %w", runID, err)
	}
	s.entries.Store(runID, raw)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, runID string) error {
	s.entries.Delete(runID)
	return nil
}
