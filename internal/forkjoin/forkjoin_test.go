package forkjoin

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PreservesPartitionOrder(t *testing.T) {
	t.Parallel()
	items := make([]any, 16)
	for i := range items {
		items[i] = i
	}

	// Randomized delays scramble completion order on purpose.
	fn := func(ctx context.Context, item any) (any, error) {
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		return fmt.Sprintf("done-%d", item.(int)), nil
	}

	outcomes := Run(context.Background(), items, fn, Options{MaxConcurrency: 8})
	require.Len(t, outcomes, len(items))
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, i, o.Item)
		assert.Equal(t, fmt.Sprintf("done-%d", i), o.Value)
		assert.NoError(t, o.Err)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	t.Parallel()
	const limit = 3
	items := make([]any, 20)
	for i := range items {
		items[i] = i
	}

	var inFlight, peak atomic.Int64
	fn := func(ctx context.Context, item any) (any, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	}

	Run(context.Background(), items, fn, Options{MaxConcurrency: limit})
	assert.LessOrEqual(t, peak.Load(), int64(limit))
}

func TestRun_FailureIsCapturedInSlot(t *testing.T) {
	t.Parallel()
	items := []any{"x", "y", "z"}
	boom := errors.New("y exploded")
	fn := func(ctx context.Context, item any) (any, error) {
		if item == "y" {
			return nil, boom
		}
		return "ok-" + item.(string), nil
	}

	outcomes := Run(context.Background(), items, fn, Options{MaxConcurrency: 2})
	require.Len(t, outcomes, 3)

	assert.Equal(t, "ok-x", outcomes[0].Value)
	assert.True(t, outcomes[1].Failed())
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Equal(t, "y", outcomes[1].Item, "a failure still identifies its partition slot")
	assert.Equal(t, "ok-z", outcomes[2].Value)

	assert.InDelta(t, 1.0/3.0, FailedFraction(outcomes), 1e-9)
	require.Len(t, Failures(outcomes), 1)
	assert.Equal(t, 1, Failures(outcomes)[0].Index)
}

func TestRun_CancellationSkipsUndispatchedTasks(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]any, 10)
	for i := range items {
		items[i] = i
	}

	// The first task cancels the group; with one worker every later task
	// must be recorded as failed without running.
	var ran atomic.Int64
	fn := func(ctx context.Context, item any) (any, error) {
		ran.Add(1)
		cancel()
		return nil, nil
	}

	outcomes := Run(ctx, items, fn, Options{MaxConcurrency: 1})
	require.Len(t, outcomes, len(items))
	assert.Equal(t, int64(1), ran.Load())
	for _, o := range outcomes[1:] {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestRun_PerTaskTimeout(t *testing.T) {
	t.Parallel()
	fn := func(ctx context.Context, item any) (any, error) {
		select {
		case <-time.After(5 * time.Second):
			return "too late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	outcomes := Run(context.Background(), []any{"slow"}, fn, Options{
		MaxConcurrency: 1,
		Timeout:        20 * time.Millisecond,
	})
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, context.DeadlineExceeded)
}

func TestRun_PanicBecomesTaskError(t *testing.T) {
	t.Parallel()
	fn := func(ctx context.Context, item any) (any, error) {
		if item == "bad" {
			panic("handler bug")
		}
		return "fine", nil
	}

	outcomes := Run(context.Background(), []any{"good", "bad"}, fn, Options{MaxConcurrency: 2})
	assert.NoError(t, outcomes[0].Err)
	require.Error(t, outcomes[1].Err)
	assert.Contains(t, outcomes[1].Err.Error(), "panicked")
}

func TestRun_EmptyPartition(t *testing.T) {
	t.Parallel()
	var called atomic.Bool
	outcomes := Run(context.Background(), nil, func(ctx context.Context, item any) (any, error) {
		called.Store(true)
		return nil, nil
	}, Options{MaxConcurrency: 4})
	assert.Empty(t, outcomes)
	assert.False(t, called.Load())
}

func TestOutcome_ErrorFlattensThroughJSON(t *testing.T) {
	t.Parallel()
	o := Outcome{Index: 2, Item: "y", Err: errors.New("transient fetch failure")}

	raw, err := o.MarshalJSON()
	require.NoError(t, err)

	var back Outcome
	require.NoError(t, back.UnmarshalJSON(raw))
	assert.Equal(t, 2, back.Index)
	assert.Equal(t, "y", back.Item)
	require.Error(t, back.Err)
	assert.Equal(t, "transient fetch failure", back.Err.Error())
}
