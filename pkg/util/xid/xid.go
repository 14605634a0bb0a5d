package xid

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sony/sonyflake/v2"
)

// 预定义错误
var (
	// ErrNilContext context 参数为 nil
	ErrNilContext = errors.New("xid: nil context")

	// ErrInvalidConfig 配置参数无效
	ErrInvalidConfig = errors.New("xid: invalid config")
)

const (
	// defaultMaxWaitDuration 时钟回拨时的默认最大等待时间。
	// sonyflake 时间精度是 10ms，通常回拨不会超过几百毫秒。
	defaultMaxWaitDuration = 500 * time.Millisecond

	// defaultRetryInterval 默认重试间隔
	defaultRetryInterval = 10 * time.Millisecond
)

// Generator 请求 ID 生成器
//
// 并发安全。sf 为 nil（初始化失败）时所有请求直接走 UUID 降级路径。
type Generator struct {
	sf              *sonyflake.Sonyflake
	maxWaitDuration time.Duration
	retryInterval   time.Duration
}

// Option 生成器配置选项
type Option func(*Generator)

// WithMaxWaitDuration 设置时钟回拨时的最大等待时间。
// 非正值会被静默忽略。
func WithMaxWaitDuration(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.maxWaitDuration = d
		}
	}
}

// WithRetryInterval 设置时钟回拨重试间隔。
// 非正值会被静默忽略。
func WithRetryInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.retryInterval = d
		}
	}
}

// NewGenerator 创建请求 ID 生成器
//
// sonyflake 初始化失败不是错误：此时生成器以 UUID 降级模式工作。
// 这是有意的设计——调度引擎对 ID 的要求是唯一与可关联，
// 趋势递增只是锦上添花，不应因环境缺少机器 ID 而导致启动失败。
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		maxWaitDuration: defaultMaxWaitDuration,
		retryInterval:   defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(g)
	}

	// 初始化失败时 sf 保持 nil，NewString 走 UUID 路径
	if sf, err := sonyflake.New(sonyflake.Settings{}); err == nil {
		g.sf = sf
	}

	return g
}

// NewString 生成一个字符串形式的请求 ID
//
// 正常路径返回 sonyflake ID 的十进制表示；
// sonyflake 不可用或等待超时后返回 UUID v4。
// 此方法永不返回错误，调用方无需处理失败分支。
func (g *Generator) NewString(ctx context.Context) string {
	if g == nil || g.sf == nil {
		return uuid.NewString()
	}

	deadline := time.Now().Add(g.maxWaitDuration)
	for {
		id, err := g.sf.NextID()
		if err == nil {
			return strconv.FormatInt(id, 10)
		}

		// 时间分量溢出不可恢复，其余错误（时钟回拨）可等待重试
		if errors.Is(err, sonyflake.ErrOverTimeLimit) || time.Now().After(deadline) {
			return uuid.NewString()
		}

		select {
		case <-ctx.Done():
			return uuid.NewString()
		case <-time.After(g.retryInterval):
		}
	}
}
