package xevent

import (
	"context"
	"log/slog"
	"time"

	"github.com/omeyang/xdispatch/pkg/observability/xlog"
)

// Type 事件类型
type Type string

// 引擎发布的事件类型
const (
	// TypeAttemptStarted 一次后端尝试开始
	TypeAttemptStarted Type = "attempt_started"

	// TypeAttemptSucceeded 一次后端尝试成功
	TypeAttemptSucceeded Type = "attempt_succeeded"

	// TypeAttemptFailed 一次后端尝试失败（含超时）
	TypeAttemptFailed Type = "attempt_failed"

	// TypeCircuitOpened 某个目标的熔断器打开
	TypeCircuitOpened Type = "circuit_opened"

	// TypeCircuitClosed 某个目标的熔断器关闭（恢复）
	TypeCircuitClosed Type = "circuit_closed"

	// TypeThrottled 请求在准入阶段被限流或并发限制拒绝
	TypeThrottled Type = "throttled"
)

// Event 引擎事件
//
// Target 为事件关联的目标键（group、group.echelon 或
// group.echelon/endpoint），RequestID 关联一次逻辑请求。
// Err 仅在失败类事件中非空。
type Event struct {
	// Type 事件类型
	Type Type
	// RequestID 逻辑请求标识
	RequestID string
	// Target 关联的目标键
	Target string
	// Endpoint 具体端点 ID（选中端点后的事件才有值）
	Endpoint string
	// Attempt 当前尝试序号（从 1 开始）
	Attempt int
	// Elapsed 本次尝试耗时（完成类事件才有值）
	Elapsed time.Duration
	// Err 失败原因
	Err error
}

// Sink 事件接收器接口
//
// 实现必须并发安全且不阻塞调用方。
type Sink interface {
	// Emit 发布一个事件
	Emit(ctx context.Context, ev Event)
}

// 编译时接口检查
var (
	_ Sink = (*logSink)(nil)
	_ Sink = (*nopSink)(nil)
	_ Sink = (SinkFunc)(nil)
)

// SinkFunc 函数式 Sink 适配器
type SinkFunc func(ctx context.Context, ev Event)

// Emit 实现 Sink 接口
func (f SinkFunc) Emit(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// logSink 基于 xlog.Logger 的事件接收器
type logSink struct {
	logger xlog.Logger
}

// NewLogSink 创建写入日志的事件接收器
//
// logger 为 nil 时退化为 NopSink。
func NewLogSink(logger xlog.Logger) Sink {
	if logger == nil {
		return NewNopSink()
	}
	return &logSink{logger: logger}
}

// Emit 将事件按类型映射到日志级别：
// 失败与熔断打开为 Warn，其余为 Debug。
func (s *logSink) Emit(ctx context.Context, ev Event) {
	attrs := make([]slog.Attr, 0, 6)
	attrs = append(attrs,
		slog.String("event", string(ev.Type)),
		slog.String("request_id", ev.RequestID),
		slog.String("target", ev.Target),
	)
	if ev.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", ev.Endpoint))
	}
	if ev.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", ev.Attempt))
	}
	if ev.Elapsed > 0 {
		attrs = append(attrs, slog.Duration("elapsed", ev.Elapsed))
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}

	switch ev.Type {
	case TypeAttemptFailed, TypeCircuitOpened, TypeThrottled:
		s.logger.Warn(ctx, "dispatch event", attrs...)
	default:
		s.logger.Debug(ctx, "dispatch event", attrs...)
	}
}

// nopSink 丢弃所有事件
type nopSink struct{}

// NewNopSink 创建空事件接收器
func NewNopSink() Sink {
	return nopSink{}
}

// Emit 实现 Sink 接口，直接丢弃
func (nopSink) Emit(context.Context, Event) {}
