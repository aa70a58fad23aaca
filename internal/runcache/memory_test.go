package runcache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/blackboard"
)

func testEntry(runID, stage string) *Entry {
	return &Entry{
		RunID:    runID,
		Pipeline: "report",
		Stage:    stage,
		Context: blackboard.Snapshot{
			"rows": json.RawMessage(`["a","b"]`),
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestMemoryStore_MissReturnsErrNotFound(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	entry := testEntry("run-1", "fetch")
	require.NoError(t, store.Put(ctx, "run-1", entry))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "report", got.Pipeline)
	assert.Equal(t, "fetch", got.Stage)
	assert.JSONEq(t, `["a","b"]`, string(got.Context["rows"]))
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))
}

func TestMemoryStore_EntriesAreIsolated(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	entry := testEntry("run-1", "fetch")
	require.NoError(t, store.Put(ctx, "run-1", entry))

	// Mutating the caller's entry after Put must not affect the store.
	entry.Stage = "tampered"
	entry.Context["rows"] = json.RawMessage(`["hacked"]`)

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "fetch", got.Stage)
	assert.JSONEq(t, `["a","b"]`, string(got.Context["rows"]))

	// And mutating one Get result must not affect the next.
	got.Stage = "also tampered"
	again, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "fetch", again.Stage)
}

func TestMemoryStore_LatestCheckpointWins(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "run-1", testEntry("run-1", "fetch")))
	require.NoError(t, store.Put(ctx, "run-1", testEntry("run-1", "aggregate")))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "aggregate", got.Stage)
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "run-1", testEntry("run-1", "fetch")))
	require.NoError(t, store.Delete(ctx, "run-1"))

	_, err := store.Get(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete(ctx, "run-1"))
}
