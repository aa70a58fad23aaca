package blackboard

import (
	"fmt"
	"sort"
	"sync"
)

// Board is the mutable bag of named values produced and consumed by the
// stages of one run.
type Board struct {
	mu     sync.RWMutex
	values map[string]any
}

// New creates an empty board.
func New() *Board {
	return &Board{values: make(map[string]any)}
}

// Seed writes the given values without write-once enforcement. It is used
// once, when a run is created, to install initial inputs and manifest
// defaults. Later values win over earlier ones.
func (b *Board) Seed(values map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range values {
		b.values[k] = v
	}
}

// Get returns the value stored under key.
func (b *Board) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Set writes a value under key. A key may only be written once; re-entry
// paths must Reset the key first.
func (b *Board) Set(key string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.values[key]; exists {
		return fmt.Errorf("key %q already written", key)
	}
	b.values[key] = value
	return nil
}

// Reset removes the given keys so their producing stages can be
// re-executed. Missing keys are ignored.
func (b *Board) Reset(keys ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.values, k)
	}
}

// Has reports whether key is present.
func (b *Board) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.values[key]
	return ok
}

// Keys returns all present keys in sorted order.
func (b *Board) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a shallow copy of the board's contents, used as the
// read-only input view handed to stage handlers.
func (b *Board) Values() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}
