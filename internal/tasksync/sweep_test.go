package tasksync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/kv"
)

type countingKV struct {
	kv.KV
	sweeps  atomic.Int32
	removed atomic.Int64
}

func (c *countingKV) Sweep(ctx context.Context) (int64, error) {
	c.sweeps.Add(1)
	n, err := c.KV.Sweep(ctx)
	c.removed.Add(n)
	return n, err
}

func TestSweep(t *testing.T) {
	store := &countingKV{KV: kv.NewMemory()}
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, store.Put(ctx, "blob:short", []byte("x"), time.Millisecond))
	require.NoError(t, store.Put(ctx, "blob:forever", []byte("y"), 0))

	done := make(chan struct{})
	go func() {
		Sweep(ctx, store, 5*time.Millisecond, zerolog.Nop())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return store.removed.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after cancel")
	}

	assert.GreaterOrEqual(t, store.sweeps.Load(), int32(1))
	_, err := store.Get(context.Background(), "blob:forever")
	require.NoError(t, err)
}
