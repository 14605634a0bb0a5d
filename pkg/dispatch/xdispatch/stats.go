package xdispatch

import (
	"sync/atomic"

	"github.com/omeyang/xdispatch/pkg/resilience/xcircuit"
)

// Stats 调度器运行统计快照
type Stats struct {
	// Submitted 已提交的逻辑请求数
	Submitted uint64
	// Succeeded 成功的逻辑请求数
	Succeeded uint64
	// Failed 失败（耗尽或超时）的逻辑请求数
	Failed uint64
	// Attempts 后端尝试总数
	Attempts uint64
	// Throttled 被速率准入拒绝的尝试数
	Throttled uint64
	// CircuitRejected 被熔断拦截的尝试数
	CircuitRejected uint64
	// QueueRejected 被并发队列拒绝的尝试数
	QueueRejected uint64
	// Fallbacks 降级切换次数
	Fallbacks uint64
	// InFlight 当前在途的逻辑请求数
	InFlight int64
}

// TargetStats 单个梯队目标的运行时视图
type TargetStats struct {
	// CircuitState 梯队内端点熔断器的最差状态
	CircuitState xcircuit.State
	// Failures 梯队内端点的累计失败数（当前熔断周期）
	Failures uint32
	// InFlight 梯队当前在途请求数
	InFlight int64
	// QueueDepth 梯队并发队列中的等待数
	QueueDepth int64
	// RemainingTokens 最近一次速率准入后的剩余配额，-1 表示尚未准入过
	RemainingTokens int
}

// counters 原子计数器集合
type counters struct {
	submitted       atomic.Uint64
	succeeded       atomic.Uint64
	failed          atomic.Uint64
	attempts        atomic.Uint64
	throttled       atomic.Uint64
	circuitRejected atomic.Uint64
	queueRejected   atomic.Uint64
	fallbacks       atomic.Uint64
	inFlight        atomic.Int64
}

// snapshot 导出一致性要求不高的瞬时快照
func (c *counters) snapshot() Stats {
	return Stats{
		Submitted:       c.submitted.Load(),
		Succeeded:       c.succeeded.Load(),
		Failed:          c.failed.Load(),
		Attempts:        c.attempts.Load(),
		Throttled:       c.throttled.Load(),
		CircuitRejected: c.circuitRejected.Load(),
		QueueRejected:   c.queueRejected.Load(),
		Fallbacks:       c.fallbacks.Load(),
		InFlight:        c.inFlight.Load(),
	}
}
