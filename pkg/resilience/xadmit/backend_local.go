package xadmit

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Algorithm 本地后端的限流算法
type Algorithm uint8

// 支持的本地限流算法
const (
	// AlgorithmTokenBucket 令牌桶：以 Rate/Period 的速率补充令牌，
	// 容量为 Burst，允许短时突发
	AlgorithmTokenBucket Algorithm = iota

	// AlgorithmSlidingWindow 滑动窗口：按上一窗口计数加权近似
	// 当前窗口的请求速率，平滑窗口边界的突刺
	AlgorithmSlidingWindow
)

// String 返回算法名称
func (a Algorithm) String() string {
	switch a {
	case AlgorithmTokenBucket:
		return "token_bucket"
	case AlgorithmSlidingWindow:
		return "sliding_window"
	default:
		return "algorithm(unknown)"
	}
}

// localBackend 进程内准入后端
//
// 按键哈希分片，每个分片独立加锁，降低热点键之间的锁竞争。
type localBackend struct {
	algorithm Algorithm
	shards    []*localShard
	// now 可注入的时钟，测试用
	now func() time.Time
}

// localShard 一个键分片
type localShard struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	windows map[string]*slidingWindow
}

// newLocalBackend 创建本地后端
func newLocalBackend(algorithm Algorithm, shardCount int) *localBackend {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	shards := make([]*localShard, shardCount)
	for i := range shards {
		shards[i] = &localShard{
			buckets: make(map[string]*tokenBucket),
			windows: make(map[string]*slidingWindow),
		}
	}
	return &localBackend{
		algorithm: algorithm,
		shards:    shards,
		now:       time.Now,
	}
}

// Type 返回后端类型
func (b *localBackend) Type() string {
	return "local"
}

// shardFor 按 xxhash 选择键所属分片
func (b *localBackend) shardFor(key string) *localShard {
	return b.shards[xxhash.Sum64String(key)%uint64(len(b.shards))]
}

// Check 对 key 做一次准入检查
func (b *localBackend) Check(ctx context.Context, key string, limit Limit) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	shard := b.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	now := b.now()
	switch b.algorithm {
	case AlgorithmSlidingWindow:
		w, ok := shard.windows[key]
		if !ok {
			w = &slidingWindow{windowStart: now}
			shard.windows[key] = w
		}
		return w.take(now, limit), nil
	default:
		tb, ok := shard.buckets[key]
		if !ok {
			tb = &tokenBucket{tokens: float64(limit.burst()), lastUpdate: now}
			shard.buckets[key] = tb
		}
		return tb.take(now, limit), nil
	}
}

// Reset 清除 key 的计数状态
func (b *localBackend) Reset(_ context.Context, key string) error {
	shard := b.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.buckets, key)
	delete(shard.windows, key)
	return nil
}

// Close 关闭后端
func (b *localBackend) Close(_ context.Context) error {
	return nil
}

// =============================================================================
// 令牌桶
// =============================================================================

// tokenBucket 令牌桶状态，由所属分片的锁保护
type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// take 尝试取一个令牌
func (tb *tokenBucket) take(now time.Time, limit Limit) Decision {
	burst := float64(limit.burst())
	rate := float64(limit.Rate) / limit.Period.Seconds()

	elapsed := now.Sub(tb.lastUpdate)
	if elapsed > 0 {
		tb.tokens += rate * elapsed.Seconds()
		if tb.tokens > burst {
			tb.tokens = burst
		}
		tb.lastUpdate = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return Decision{Allowed: true, Remaining: int(tb.tokens)}
	}

	deficit := 1 - tb.tokens
	return Decision{
		Allowed:    false,
		RetryAfter: time.Duration(deficit / rate * float64(time.Second)),
	}
}

// =============================================================================
// 滑动窗口
// =============================================================================

// slidingWindow 滑动窗口计数状态，由所属分片的锁保护
//
// 经典的两窗口加权近似：有效计数 = 上一窗口计数 × 上一窗口
// 在滑动窗口中的剩余占比 + 当前窗口计数。
type slidingWindow struct {
	windowStart time.Time
	curCount    int
	prevCount   int
}

// take 尝试在滑动窗口内记一次请求
func (w *slidingWindow) take(now time.Time, limit Limit) Decision {
	// 窗口推进
	for !now.Before(w.windowStart.Add(limit.Period)) {
		if now.Sub(w.windowStart) >= 2*limit.Period {
			// 空闲超过一个完整周期，两个窗口都清零
			w.windowStart = now
			w.prevCount = 0
			w.curCount = 0
			break
		}
		w.windowStart = w.windowStart.Add(limit.Period)
		w.prevCount = w.curCount
		w.curCount = 0
	}

	elapsed := now.Sub(w.windowStart)
	prevWeight := 1 - float64(elapsed)/float64(limit.Period)
	effective := float64(w.prevCount)*prevWeight + float64(w.curCount)

	if effective+1 > float64(limit.Rate) {
		// 等到上一窗口的权重衰减到放得下为止
		retryAfter := limit.Period - elapsed
		if w.prevCount > 0 {
			// overshoot/prevCount 是需要再衰减的权重比例
			overshoot := effective + 1 - float64(limit.Rate)
			wait := time.Duration(overshoot / float64(w.prevCount) * float64(limit.Period))
			if wait < retryAfter {
				retryAfter = wait
			}
		}
		if retryAfter <= 0 {
			retryAfter = time.Millisecond
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}
	}

	w.curCount++
	remaining := limit.Rate - int(effective) - 1
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}
}

// 编译时接口检查
var _ Backend = (*localBackend)(nil)
