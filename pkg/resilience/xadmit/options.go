package xadmit

import (
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xdispatch/pkg/observability/xlog"
)

// 默认配置
const (
	// defaultShardCount 本地后端默认分片数
	defaultShardCount = 16
)

// Option 限流器配置选项
type Option func(*options)

type options struct {
	algorithm     Algorithm
	shardCount    int
	rdb           redis.UniversalClient
	localFallback bool
	logger        xlog.Logger
}

func defaultOptions() *options {
	return &options{
		algorithm:     AlgorithmTokenBucket,
		shardCount:    defaultShardCount,
		localFallback: true,
		logger:        xlog.NewNop(),
	}
}

// WithAlgorithm 设置本地后端的限流算法，默认令牌桶
func WithAlgorithm(a Algorithm) Option {
	return func(o *options) {
		o.algorithm = a
	}
}

// WithShards 设置本地后端的分片数，默认 16
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shardCount = n
		}
	}
}

// WithRedis 使用 Redis 作为分布式准入后端。
// 客户端由调用方管理生命周期。
func WithRedis(rdb redis.UniversalClient) Option {
	return func(o *options) {
		if rdb != nil {
			o.rdb = rdb
		}
	}
}

// WithLocalFallback 设置 Redis 不可用时是否降级到本地后端，默认开启。
// 关闭后 Redis 故障会直接向调用方返回错误。
func WithLocalFallback(enabled bool) Option {
	return func(o *options) {
		o.localFallback = enabled
	}
}

// WithLogger 设置日志器，默认不输出
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
