package xdispatch

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xdispatch/pkg/observability/xevent"
	"github.com/omeyang/xdispatch/pkg/observability/xlog"
	"github.com/omeyang/xdispatch/pkg/resilience/xadmit"
	"github.com/omeyang/xdispatch/pkg/util/xid"
)

// Option 调度器配置选项
type Option func(*options)

// Backoff 降级尝试之间的等待策略
type Backoff int

const (
	// BackoffNone 不等待，立即切换下一个目标
	BackoffNone Backoff = iota
	// BackoffFixed 每次尝试之间等待固定基准时长
	BackoffFixed
	// BackoffExponential 以基准时长为起点指数退避
	BackoffExponential
)

type options struct {
	logger        xlog.Logger
	sink          xevent.Sink
	admitter      *xadmit.Limiter
	ids           *xid.Generator
	nodeLimit     int
	meterProvider metric.MeterProvider
	backoff       Backoff
	backoffBase   time.Duration
}

func defaultOptions() *options {
	return &options{
		logger: xlog.NewNop(),
		sink:   xevent.NewNopSink(),
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

// WithEventSink 设置事件接收器，默认丢弃
func WithEventSink(sink xevent.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithAdmitter 注入速率准入器
//
// 默认使用进程内令牌桶；多实例共享配额时注入带 Redis 后端的
// 准入器。注入后生命周期仍由调度器管理（Close 时关闭）。
func WithAdmitter(l *xadmit.Limiter) Option {
	return func(o *options) {
		if l != nil {
			o.admitter = l
		}
	}
}

// WithIDGenerator 注入请求 ID 生成器，默认内部创建
func WithIDGenerator(g *xid.Generator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithNodeConcurrency 设置节点级全局并发上限，非正值不启用
func WithNodeConcurrency(n int) Option {
	return func(o *options) {
		o.nodeLimit = n
	}
}

// WithMeterProvider 设置 OpenTelemetry 指标提供方，默认不收集
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithBackoff 设置降级尝试之间的等待策略，默认不等待
//
// 所有等待都受请求 ctx 的共享截止时间约束。
func WithBackoff(b Backoff, base time.Duration) Option {
	return func(o *options) {
		if base < 0 {
			return
		}
		o.backoff = b
		o.backoffBase = base
	}
}
