package blackboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_SetIsWriteOnce(t *testing.T) {
	t.Parallel()
	b := New()

	require.NoError(t, b.Set("report", "v1"))

	err := b.Set("report", "v2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"report"`)

	v, ok := b.Get("report")
	require.True(t, ok)
	assert.Equal(t, "v1", v, "failed overwrite must not clobber the stored value")
}

func TestBoard_ResetAllowsRewrite(t *testing.T) {
	t.Parallel()
	b := New()

	require.NoError(t, b.Set("draft", 1))
	b.Reset("draft", "never-written")

	assert.False(t, b.Has("draft"))
	require.NoError(t, b.Set("draft", 2))

	v, _ := b.Get("draft")
	assert.Equal(t, 2, v)
}

func TestBoard_SeedLaterValuesWin(t *testing.T) {
	t.Parallel()
	b := New()

	b.Seed(map[string]any{"region": "default", "limit": 10})
	b.Seed(map[string]any{"region": "eu-west"})

	region, _ := b.Get("region")
	assert.Equal(t, "eu-west", region)
	limit, _ := b.Get("limit")
	assert.Equal(t, 10, limit)

	// Seeded keys are still write-once afterwards.
	require.Error(t, b.Set("region", "us-east"))
}

func TestBoard_ValuesIsACopy(t *testing.T) {
	t.Parallel()
	b := New()
	require.NoError(t, b.Set("k", "v"))

	values := b.Values()
	values["k"] = "mutated"
	values["extra"] = true

	v, _ := b.Get("k")
	assert.Equal(t, "v", v)
	assert.False(t, b.Has("extra"))
}

func TestBoard_KeysSorted(t *testing.T) {
	t.Parallel()
	b := New()
	b.Seed(map[string]any{"zeta": 1, "alpha": 2, "mid": 3})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, b.Keys())
}

func TestSnapshot_IsolatedFromLiveBoard(t *testing.T) {
	t.Parallel()
	b := New()
	nested := map[string]any{"rows": []any{"a", "b"}}
	require.NoError(t, b.Set("data", nested))

	snap, err := b.Snapshot()
	require.NoError(t, err)

	// Mutations after the snapshot must not leak into it.
	nested["rows"] = []any{"tampered"}
	require.NoError(t, b.Set("later", true))

	restored, err := Restore(snap)
	require.NoError(t, err)

	assert.False(t, restored.Has("later"))
	v, ok := restored.Get("data")
	require.True(t, ok)
	data, ok := v.(map[string]any)
	require.True(t, ok, "restored values come back in generic JSON shape")
	assert.Equal(t, []any{"a", "b"}, data["rows"])
}

func TestSnapshot_UnencodableValueFails(t *testing.T) {
	t.Parallel()
	b := New()
	require.NoError(t, b.Set("fn", func() {}))

	_, err := b.Snapshot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"fn"`)
}

func TestRestore_NumbersComeBackAsFloat64(t *testing.T) {
	t.Parallel()
	b := New()
	require.NoError(t, b.Set("count", 42))

	snap, err := b.Snapshot()
	require.NoError(t, err)
	restored, err := Restore(snap)
	require.NoError(t, err)

	v, _ := restored.Get("count")
	assert.Equal(t, float64(42), v)
}
