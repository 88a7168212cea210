package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"github.com/tendant/simple-files/pkg/simplefiles/cache/memory"
)

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := memory.New()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, simplefiles.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, c.Set(ctx, "k", "w", time.Minute))
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "w", got)

	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, simplefiles.ErrCacheMiss)

	assert.NoError(t, c.Ping(ctx))
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := memory.NewWithClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "k", "v", time.Hour))

	now = now.Add(59 * time.Minute)
	_, err := c.Get(ctx, "k")
	assert.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, simplefiles.ErrCacheMiss)
}

func TestCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := memory.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "shared", "v", time.Minute)
			_, _ = c.Get(ctx, "shared")
			_ = c.Delete(ctx, "shared")
		}()
	}
	wg.Wait()
}
