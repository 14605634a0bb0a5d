package xcircuit

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State 熔断器状态，gobreaker.State 的别名
type State = gobreaker.State

// 熔断器状态常量
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Counts 熔断器统计计数，gobreaker.Counts 的别名
type Counts = gobreaker.Counts

// 默认配置
const (
	// DefaultFailureThreshold 默认连续失败阈值
	DefaultFailureThreshold = 5

	// DefaultRecoveryTime Open 状态默认持续时间
	DefaultRecoveryTime = 30 * time.Second

	// DefaultHalfOpenRequests 半开状态默认允许的并发探测数
	DefaultHalfOpenRequests = 1
)

// Config 单个熔断器的配置
//
// 配置在键首次出现时生效；同一键后续传入的不同配置被忽略，
// 熔断器的历史状态比新配置更有价值。
type Config struct {
	// FailureThreshold 连续失败多少次后熔断
	FailureThreshold int
	// RecoveryTime Open 状态持续多久后进入 HalfOpen
	RecoveryTime time.Duration
	// HalfOpenRequests HalfOpen 状态允许的并发探测数
	HalfOpenRequests int
}

// withDefaults 返回填充了默认值的副本
func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.RecoveryTime <= 0 {
		c.RecoveryTime = DefaultRecoveryTime
	}
	if c.HalfOpenRequests <= 0 {
		c.HalfOpenRequests = DefaultHalfOpenRequests
	}
	return c
}

// StateChangeFunc 状态变化回调
type StateChangeFunc func(key string, from, to State)

// BoardOption 面板配置选项
type BoardOption func(*Board)

// WithOnStateChange 设置状态变化回调，用于日志与事件上报。
// 回调在 gobreaker 内部锁外调用，但实现仍应保持轻量。
func WithOnStateChange(f StateChangeFunc) BoardOption {
	return func(b *Board) {
		if f != nil {
			b.onStateChange = f
		}
	}
}

// Board 按目标键隔离的熔断器面板
//
// 并发安全。熔断器按键惰性创建，创建后不再销毁。
type Board struct {
	breakers      sync.Map // map[string]*gobreaker.TwoStepCircuitBreaker[any]
	onStateChange StateChangeFunc
}

// NewBoard 创建熔断器面板
func NewBoard(opts ...BoardOption) *Board {
	b := &Board{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Acquire 为一次调用申请放行
//
// 放行时返回 done 回调，调用结束后必须以成功与否调用一次；
// 拦截时返回 *CircuitError，调用不应触达后端。
func (b *Board) Acquire(key string, cfg Config) (done func(success bool), err error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	cb := b.breakerFor(key, cfg)
	report, err := cb.Allow()
	if err != nil {
		return nil, wrapCircuitError(err, key)
	}
	// gobreaker v2 以 error 上报结果，对外保留布尔语义
	return func(success bool) {
		if success {
			report(nil)
			return
		}
		report(errAttemptFailed)
	}, nil
}

// Prepare 以给定配置预创建键的熔断器
//
// 配置在键首次出现时冻结，需要非默认配置先于首次 Acquire
// 生效时（如池级覆盖），在构造期调用。键已存在时无效果。
func (b *Board) Prepare(key string, cfg Config) {
	if key == "" {
		return
	}
	b.breakerFor(key, cfg)
}

// State 返回键的熔断器状态；键未出现过时视为 Closed
func (b *Board) State(key string) State {
	if val, ok := b.breakers.Load(key); ok {
		return val.(*gobreaker.TwoStepCircuitBreaker[any]).State()
	}
	return StateClosed
}

// Counts 返回键的当前统计计数；键未出现过时为零值
func (b *Board) Counts(key string) Counts {
	if val, ok := b.breakers.Load(key); ok {
		return val.(*gobreaker.TwoStepCircuitBreaker[any]).Counts()
	}
	return Counts{}
}

// Keys 返回面板上已创建熔断器的所有键
func (b *Board) Keys() []string {
	var keys []string
	b.breakers.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}

// breakerFor 获取或创建键的熔断器
func (b *Board) breakerFor(key string, cfg Config) *gobreaker.TwoStepCircuitBreaker[any] {
	if val, ok := b.breakers.Load(key); ok {
		return val.(*gobreaker.TwoStepCircuitBreaker[any])
	}

	cfg = cfg.withDefaults()
	cb := gobreaker.NewTwoStepCircuitBreaker[any](gobreaker.Settings{
		Name:        key,
		MaxRequests: uint32(cfg.HalfOpenRequests), //nolint:gosec // withDefaults 保证为小正数
		Timeout:     cfg.RecoveryTime,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold) //nolint:gosec
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if b.onStateChange != nil {
				b.onStateChange(name, from, to)
			}
		},
	})

	actual, _ := b.breakers.LoadOrStore(key, cb)
	return actual.(*gobreaker.TwoStepCircuitBreaker[any])
}
