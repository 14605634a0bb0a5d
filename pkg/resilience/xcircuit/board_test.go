package xcircuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		FailureThreshold: 3,
		RecoveryTime:     50 * time.Millisecond,
		HalfOpenRequests: 1,
	}
}

// fail 执行一次失败调用
func fail(t *testing.T, b *Board, key string) {
	t.Helper()
	done, err := b.Acquire(key, testConfig())
	require.NoError(t, err)
	done(false)
}

// succeed 执行一次成功调用
func succeed(t *testing.T, b *Board, key string) {
	t.Helper()
	done, err := b.Acquire(key, testConfig())
	require.NoError(t, err)
	done(true)
}

func TestBoardAcquire(t *testing.T) {
	t.Run("empty key", func(t *testing.T) {
		b := NewBoard()
		_, err := b.Acquire("", testConfig())
		require.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("closed allows", func(t *testing.T) {
		b := NewBoard()
		done, err := b.Acquire("k", testConfig())
		require.NoError(t, err)
		done(true)
		assert.Equal(t, StateClosed, b.State("k"))
	})

	t.Run("unknown key is closed", func(t *testing.T) {
		b := NewBoard()
		assert.Equal(t, StateClosed, b.State("never-seen"))
		assert.Equal(t, Counts{}, b.Counts("never-seen"))
	})
}

func TestBoardTripsAtThreshold(t *testing.T) {
	b := NewBoard()

	// 阈值为 3：前两次失败后仍放行
	fail(t, b, "k")
	fail(t, b, "k")
	assert.Equal(t, StateClosed, b.State("k"))

	fail(t, b, "k")
	assert.Equal(t, StateOpen, b.State("k"))

	// Open 状态快速拒绝，不触达后端
	_, err := b.Acquire("k", testConfig())
	require.Error(t, err)
	assert.True(t, IsOpen(err))

	var ce *CircuitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "k", ce.Key)
	assert.Equal(t, StateOpen, ce.State)
	assert.False(t, ce.Retryable())
}

func TestBoardDoneReportsOutcome(t *testing.T) {
	b := NewBoard()

	// done(false) 记为失败，done(true) 记为成功并打断连续失败
	fail(t, b, "k")
	assert.Equal(t, uint32(1), b.Counts("k").ConsecutiveFailures)
	assert.Equal(t, uint32(1), b.Counts("k").TotalFailures)

	succeed(t, b, "k")
	assert.Equal(t, uint32(0), b.Counts("k").ConsecutiveFailures)
	assert.Equal(t, uint32(1), b.Counts("k").TotalSuccesses)
}

func TestBoardPrepareFreezesConfig(t *testing.T) {
	b := NewBoard()

	// 预创建以阈值 1 生效；后续 Acquire 传入的配置被忽略
	b.Prepare("k", Config{FailureThreshold: 1, RecoveryTime: time.Minute})

	fail(t, b, "k") // testConfig 的阈值 3 不生效
	assert.Equal(t, StateOpen, b.State("k"))

	t.Run("empty key ignored", func(t *testing.T) {
		b.Prepare("", testConfig())
		assert.Equal(t, StateClosed, b.State(""))
	})
}

func TestBoardSuccessResetsStreak(t *testing.T) {
	b := NewBoard()

	fail(t, b, "k")
	fail(t, b, "k")
	succeed(t, b, "k")
	fail(t, b, "k")
	fail(t, b, "k")

	// 成功打断连续失败，计数重新开始
	assert.Equal(t, StateClosed, b.State("k"))
}

func TestBoardRecovery(t *testing.T) {
	b := NewBoard()

	for i := 0; i < 3; i++ {
		fail(t, b, "k")
	}
	require.Equal(t, StateOpen, b.State("k"))

	// 恢复时间后进入 HalfOpen，放行探测
	time.Sleep(60 * time.Millisecond)

	done, err := b.Acquire("k", testConfig())
	require.NoError(t, err)
	done(true)
	assert.Equal(t, StateClosed, b.State("k"))
}

func TestBoardHalfOpenProbeBound(t *testing.T) {
	b := NewBoard()

	for i := 0; i < 3; i++ {
		fail(t, b, "k")
	}
	time.Sleep(60 * time.Millisecond)

	// HalfOpenRequests=1：第一个探测放行，第二个被拒
	done, err := b.Acquire("k", testConfig())
	require.NoError(t, err)

	_, err2 := b.Acquire("k", testConfig())
	require.Error(t, err2)
	assert.True(t, IsTooManyRequests(err2))
	assert.True(t, IsCircuitError(err2))

	// 探测失败回到 Open
	done(false)
	assert.Equal(t, StateOpen, b.State("k"))
}

func TestBoardKeysAreIndependent(t *testing.T) {
	b := NewBoard()

	for i := 0; i < 3; i++ {
		fail(t, b, "a")
	}
	require.Equal(t, StateOpen, b.State("a"))

	// a 熔断不影响 b
	done, err := b.Acquire("b", testConfig())
	require.NoError(t, err)
	done(true)
	assert.Equal(t, StateClosed, b.State("b"))

	assert.ElementsMatch(t, []string{"a", "b"}, b.Keys())
}

func TestBoardStateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	type transition struct{ from, to State }
	transitions := make(map[string][]transition)

	b := NewBoard(WithOnStateChange(func(key string, from, to State) {
		mu.Lock()
		transitions[key] = append(transitions[key], transition{from, to})
		mu.Unlock()
	}))

	for i := 0; i < 3; i++ {
		fail(t, b, "k")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, transitions["k"])
	assert.Equal(t, transition{StateClosed, StateOpen}, transitions["k"][0])
}

func TestBoardConcurrentAccess(t *testing.T) {
	b := NewBoard()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				done, err := b.Acquire("shared", Config{FailureThreshold: 1 << 30})
				if err == nil {
					done(true)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, StateClosed, b.State("shared"))
}
