package xid

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		g := NewGenerator()
		assert.Equal(t, defaultMaxWaitDuration, g.maxWaitDuration)
		assert.Equal(t, defaultRetryInterval, g.retryInterval)
	})

	t.Run("options", func(t *testing.T) {
		g := NewGenerator(
			WithMaxWaitDuration(time.Second),
			WithRetryInterval(time.Millisecond),
		)
		assert.Equal(t, time.Second, g.maxWaitDuration)
		assert.Equal(t, time.Millisecond, g.retryInterval)
	})

	t.Run("invalid options ignored", func(t *testing.T) {
		g := NewGenerator(WithMaxWaitDuration(-1), WithRetryInterval(0))
		assert.Equal(t, defaultMaxWaitDuration, g.maxWaitDuration)
		assert.Equal(t, defaultRetryInterval, g.retryInterval)
	})
}

func TestGenerator_NewString(t *testing.T) {
	t.Run("never empty", func(t *testing.T) {
		g := NewGenerator()
		id := g.NewString(context.Background())
		assert.NotEmpty(t, id)
	})

	t.Run("unique under concurrency", func(t *testing.T) {
		g := NewGenerator()
		const n = 200

		var mu sync.Mutex
		seen := make(map[string]struct{}, n)

		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := g.NewString(context.Background())
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Len(t, seen, n)
	})

	t.Run("nil generator falls back to uuid", func(t *testing.T) {
		var g *Generator
		id := g.NewString(context.Background())
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("sonyflake path yields numeric id", func(t *testing.T) {
		g := NewGenerator()
		if g.sf == nil {
			t.Skip("sonyflake unavailable in this environment")
		}
		id := g.NewString(context.Background())
		_, err := strconv.ParseInt(id, 10, 64)
		require.NoError(t, err)
	})

	t.Run("cancelled context still returns id", func(t *testing.T) {
		g := NewGenerator()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NotEmpty(t, g.NewString(ctx))
	})
}
