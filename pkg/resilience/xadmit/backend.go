package xadmit

import (
	"context"
	"time"
)

// Limit 一条准入配额
//
// Rate 个请求 / Period，Burst 是瞬时突发容量。
// Burst 非正时取 Rate。
type Limit struct {
	// Rate 周期内允许的请求数
	Rate int
	// Period 配额周期
	Period time.Duration
	// Burst 突发容量
	Burst int
}

// PerMinute 构造每分钟 rate 个请求的配额
func PerMinute(rate int) Limit {
	return Limit{Rate: rate, Period: time.Minute, Burst: rate}
}

// PerSecond 构造每秒 rate 个请求的配额
func PerSecond(rate int) Limit {
	return Limit{Rate: rate, Period: time.Second, Burst: rate}
}

// validate 校验配额参数
func (l Limit) validate() error {
	if l.Rate <= 0 || l.Period <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

// burst 返回生效的突发容量
func (l Limit) burst() int {
	if l.Burst > 0 {
		return l.Burst
	}
	return l.Rate
}

// Decision 一次准入检查的结果
type Decision struct {
	// Allowed 是否放行
	Allowed bool
	// Remaining 剩余配额
	Remaining int
	// RetryAfter 被拒绝时建议的等待时间，放行时为 0
	RetryAfter time.Duration
}

// Backend 准入后端
//
// 实现必须并发安全。检查是非阻塞的：实现从不睡眠等配额。
type Backend interface {
	// Check 对 key 按 limit 做一次准入检查，消耗一个配额
	Check(ctx context.Context, key string, limit Limit) (Decision, error)

	// Reset 清除 key 的计数状态
	Reset(ctx context.Context, key string) error

	// Close 释放后端自有资源（不关闭注入的外部客户端）
	Close(ctx context.Context) error

	// Type 后端类型标识，用于日志
	Type() string
}
