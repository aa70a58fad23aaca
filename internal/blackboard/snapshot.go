package blackboard

import (
	"encoding/json"
	"fmt"
)

// Snapshot is a deep, immutable copy of a board, encoded key by key.
// Mutating the live board after taking a snapshot cannot affect it.
type Snapshot map[string]json.RawMessage

// Snapshot encodes every present value. A value that cannot be encoded
// makes the whole snapshot fail; the caller treats that as the
// checkpointing stage's failure.
func (b *Board) Snapshot() (Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := make(Snapshot, len(b.values))
	for k, v := range b.values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", k, err)
		}
		snap[k] = raw
	}
	return snap, nil
}

// Restore builds a fresh board from a snapshot. Values come back in their
// generic JSON shape (maps, slices, float64, string, bool, nil).
func Restore(snap Snapshot) (*Board, error) {
	b := New()
	for k, raw := range snap {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode key %q: %w", k, err)
		}
		b.values[k] = v
	}
	return b, nil
}
