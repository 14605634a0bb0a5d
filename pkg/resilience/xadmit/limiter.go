package xadmit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/omeyang/xdispatch/pkg/observability/xlog"
)

// Limiter 按目标键的速率准入器
//
// 并发安全。一个 Limiter 管理任意多个键的配额状态，
// 键的状态在首次检查时惰性创建。
type Limiter struct {
	backend Backend
	// fallback Redis 故障时的本地降级后端，未启用时为 nil
	fallback Backend
	logger   xlog.Logger
	closed   atomic.Bool
}

// New 创建准入器
//
// 默认使用本地令牌桶后端；传入 WithRedis 切换为分布式后端。
func New(opts ...Option) (*Limiter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	l := &Limiter{logger: o.logger}

	if o.rdb != nil {
		l.backend = newRedisBackend(o.rdb)
		if o.localFallback {
			l.fallback = newLocalBackend(o.algorithm, o.shardCount)
		}
	} else {
		l.backend = newLocalBackend(o.algorithm, o.shardCount)
	}

	return l, nil
}

// Admit 对 key 按 limit 做一次非阻塞准入检查
//
// 返回的 Decision 指示放行或拒绝；拒绝不是错误。
// error 只在后端故障（且未启用本地降级）或参数非法时非 nil。
func (l *Limiter) Admit(ctx context.Context, key string, limit Limit) (Decision, error) {
	if l.closed.Load() {
		return Decision{}, ErrClosed
	}
	if key == "" {
		return Decision{}, ErrEmptyKey
	}
	if err := limit.validate(); err != nil {
		return Decision{}, err
	}

	dec, err := l.backend.Check(ctx, key, limit)
	if err == nil {
		return dec, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Decision{}, err
	}

	// 分布式后端故障时降级到本地配额，保住可用性
	if l.fallback != nil {
		l.logger.Warn(ctx, "admit backend failed, falling back to local",
			slog.String("key", key),
			slog.String("backend", l.backend.Type()),
			slog.Any("error", err),
		)
		return l.fallback.Check(ctx, key, limit)
	}

	return Decision{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

// Reset 清除 key 的配额状态
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	if err := l.backend.Reset(ctx, key); err != nil {
		return err
	}
	if l.fallback != nil {
		return l.fallback.Reset(ctx, key)
	}
	return nil
}

// BackendType 返回当前主后端类型
func (l *Limiter) BackendType() string {
	return l.backend.Type()
}

// Close 关闭准入器，幂等
func (l *Limiter) Close(ctx context.Context) error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := l.backend.Close(ctx)
	if l.fallback != nil {
		err = errors.Join(err, l.fallback.Close(ctx))
	}
	return err
}
