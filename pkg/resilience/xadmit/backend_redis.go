package xadmit

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// redisBackend 基于 Redis 的分布式准入后端
//
// 使用 redis_rate 的 GCRA 算法，多实例共享同一份配额。
type redisBackend struct {
	limiter *redis_rate.Limiter
	rdb     redis.UniversalClient
}

// newRedisBackend 创建 Redis 后端
func newRedisBackend(rdb redis.UniversalClient) *redisBackend {
	return &redisBackend{
		limiter: redis_rate.NewLimiter(rdb),
		rdb:     rdb,
	}
}

// Type 返回后端类型
func (b *redisBackend) Type() string {
	return "redis"
}

// Check 对 key 做一次准入检查
func (b *redisBackend) Check(ctx context.Context, key string, limit Limit) (Decision, error) {
	res, err := b.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Burst:  limit.burst(),
		Period: limit.Period,
	})
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

// Reset 清除 key 的计数状态
func (b *redisBackend) Reset(ctx context.Context, key string) error {
	return b.limiter.Reset(ctx, key)
}

// Close 关闭后端。注入的 Redis 客户端由调用方管理，这里不关闭。
func (b *redisBackend) Close(_ context.Context) error {
	return nil
}

// 编译时接口检查
var _ Backend = (*redisBackend)(nil)
