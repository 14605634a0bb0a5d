package xadmit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的测试时钟
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestBackend(algorithm Algorithm) (*localBackend, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	b := newLocalBackend(algorithm, 4)
	b.now = clock.Now
	return b, clock
}

func TestTokenBucket(t *testing.T) {
	ctx := context.Background()
	limit := Limit{Rate: 10, Period: time.Second, Burst: 10}

	t.Run("allows burst then denies", func(t *testing.T) {
		b, _ := newTestBackend(AlgorithmTokenBucket)

		for i := 0; i < 10; i++ {
			dec, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
			assert.True(t, dec.Allowed, "request %d", i)
		}

		dec, err := b.Check(ctx, "k", limit)
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
		assert.Greater(t, dec.RetryAfter, time.Duration(0))
	})

	t.Run("refills over time", func(t *testing.T) {
		b, clock := newTestBackend(AlgorithmTokenBucket)

		for i := 0; i < 10; i++ {
			_, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
		}
		dec, err := b.Check(ctx, "k", limit)
		require.NoError(t, err)
		require.False(t, dec.Allowed)

		// 100ms 补充一个令牌
		clock.Advance(110 * time.Millisecond)
		dec, err = b.Check(ctx, "k", limit)
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	})

	t.Run("tokens cap at burst", func(t *testing.T) {
		b, clock := newTestBackend(AlgorithmTokenBucket)

		_, err := b.Check(ctx, "k", limit)
		require.NoError(t, err)

		// 长时间空闲后仍只有 Burst 个令牌
		clock.Advance(time.Hour)
		allowed := 0
		for i := 0; i < 20; i++ {
			dec, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
			if dec.Allowed {
				allowed++
			}
		}
		assert.Equal(t, 10, allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		b, _ := newTestBackend(AlgorithmTokenBucket)

		for i := 0; i < 10; i++ {
			_, err := b.Check(ctx, "a", limit)
			require.NoError(t, err)
		}
		dec, err := b.Check(ctx, "a", limit)
		require.NoError(t, err)
		require.False(t, dec.Allowed)

		dec, err = b.Check(ctx, "b", limit)
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	})

	t.Run("reset clears state", func(t *testing.T) {
		b, _ := newTestBackend(AlgorithmTokenBucket)

		for i := 0; i < 10; i++ {
			_, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
		}
		require.NoError(t, b.Reset(ctx, "k"))

		dec, err := b.Check(ctx, "k", limit)
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	})

	t.Run("canceled context", func(t *testing.T) {
		b, _ := newTestBackend(AlgorithmTokenBucket)
		canceled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := b.Check(canceled, "k", limit)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSlidingWindow(t *testing.T) {
	ctx := context.Background()
	limit := Limit{Rate: 10, Period: time.Second}

	t.Run("caps within window", func(t *testing.T) {
		b, _ := newTestBackend(AlgorithmSlidingWindow)

		allowed := 0
		for i := 0; i < 15; i++ {
			dec, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
			if dec.Allowed {
				allowed++
			}
		}
		assert.Equal(t, 10, allowed)
	})

	t.Run("previous window weight decays", func(t *testing.T) {
		b, clock := newTestBackend(AlgorithmSlidingWindow)

		// 填满第一个窗口
		for i := 0; i < 10; i++ {
			dec, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
			require.True(t, dec.Allowed)
		}

		// 进入下一窗口一半处：上一窗口权重 0.5，有效计数 5，
		// 还能放行约 5 个
		clock.Advance(1500 * time.Millisecond)
		allowed := 0
		for i := 0; i < 10; i++ {
			dec, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
			if dec.Allowed {
				allowed++
			}
		}
		assert.InDelta(t, 5, allowed, 1)
	})

	t.Run("idle resets both windows", func(t *testing.T) {
		b, clock := newTestBackend(AlgorithmSlidingWindow)

		for i := 0; i < 10; i++ {
			_, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
		}

		clock.Advance(5 * time.Second)
		allowed := 0
		for i := 0; i < 15; i++ {
			dec, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
			if dec.Allowed {
				allowed++
			}
		}
		assert.Equal(t, 10, allowed)
	})

	t.Run("denied carries retry hint", func(t *testing.T) {
		b, _ := newTestBackend(AlgorithmSlidingWindow)

		for i := 0; i < 10; i++ {
			_, err := b.Check(ctx, "k", limit)
			require.NoError(t, err)
		}
		dec, err := b.Check(ctx, "k", limit)
		require.NoError(t, err)
		require.False(t, dec.Allowed)
		assert.Greater(t, dec.RetryAfter, time.Duration(0))
		assert.LessOrEqual(t, dec.RetryAfter, limit.Period)
	})
}

func TestAlgorithmString(t *testing.T) {
	assert.Equal(t, "token_bucket", AlgorithmTokenBucket.String())
	assert.Equal(t, "sliding_window", AlgorithmSlidingWindow.String())
	assert.Equal(t, "algorithm(unknown)", Algorithm(9).String())
}
