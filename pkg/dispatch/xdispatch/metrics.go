package xdispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称常量
const (
	// metricNameRequestsTotal 逻辑请求总数
	metricNameRequestsTotal = "xdispatch.requests.total"
	// metricNameAttemptsTotal 后端尝试总数
	metricNameAttemptsTotal = "xdispatch.attempts.total"
	// metricNameFallbacksTotal 降级切换次数
	metricNameFallbacksTotal = "xdispatch.fallbacks.total"
	// metricNameRequestDuration 逻辑请求端到端耗时
	metricNameRequestDuration = "xdispatch.request.duration"
)

// Metrics 调度指标收集器
type Metrics struct {
	requestsTotal   metric.Int64Counter
	attemptsTotal   metric.Int64Counter
	fallbacksTotal  metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics 创建指标收集器
// meterProvider 为 nil 时返回 nil（不收集指标）
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xdispatch",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	requestsTotal, err := meter.Int64Counter(
		metricNameRequestsTotal,
		metric.WithDescription("逻辑请求总数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	attemptsTotal, err := meter.Int64Counter(
		metricNameAttemptsTotal,
		metric.WithDescription("后端尝试总数"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacksTotal, err := meter.Int64Counter(
		metricNameFallbacksTotal,
		metric.WithDescription("降级切换次数"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		metricNameRequestDuration,
		metric.WithDescription("逻辑请求端到端耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0,
		),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestsTotal:   requestsTotal,
		attemptsTotal:   attemptsTotal,
		fallbacksTotal:  fallbacksTotal,
		requestDuration: requestDuration,
	}, nil
}

// RecordRequest 记录一次逻辑请求的终态
func (m *Metrics) RecordRequest(ctx context.Context, group string, success bool, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}

	// ctx 可能已取消，指标仍要记录
	metricsCtx := context.WithoutCancel(ctx)

	attrs := []attribute.KeyValue{
		attribute.String("group", group),
		attribute.Bool("success", success),
	}

	m.requestsTotal.Add(metricsCtx, 1, metric.WithAttributes(attrs...))
	m.attemptsTotal.Add(metricsCtx, int64(attempts), metric.WithAttributes(attrs...))
	if attempts > 1 {
		m.fallbacksTotal.Add(metricsCtx, int64(attempts-1), metric.WithAttributes(attrs...))
	}
	m.requestDuration.Record(metricsCtx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}
