package xlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// 编译时接口检查
var (
	_ Logger  = (*xlogger)(nil)
	_ Leveler = (*xlogger)(nil)
	_ Logger  = (*nopLogger)(nil)
)

// xlogger Logger 接口的实现
type xlogger struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
}

// Format 日志输出格式
type Format string

// 输出格式常量
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Option 日志构建选项
type Option func(*builder)

type builder struct {
	writer  io.Writer
	format  Format
	level   Level
	handler slog.Handler
}

// WithWriter 设置日志输出目标，默认 os.Stderr。
// 传入 nil 会被静默忽略。
func WithWriter(w io.Writer) Option {
	return func(b *builder) {
		if w != nil {
			b.writer = w
		}
	}
}

// WithFormat 设置输出格式（json 或 text），默认 json。
// 未知格式会被静默忽略。
func WithFormat(f Format) Option {
	return func(b *builder) {
		if f == FormatJSON || f == FormatText {
			b.format = f
		}
	}
}

// WithLevel 设置初始日志级别，默认 Info。
func WithLevel(level Level) Option {
	return func(b *builder) {
		b.level = level
	}
}

// WithHandler 直接指定 slog.Handler，覆盖 writer/format 设置。
// 适用于接入外部已有的日志管线。
func WithHandler(h slog.Handler) Option {
	return func(b *builder) {
		if h != nil {
			b.handler = h
		}
	}
}

// New 创建 Logger
//
// 默认配置：JSON 格式输出到 os.Stderr，级别 Info。
// 返回的实现同时满足 Leveler，可通过类型断言做动态级别调整。
func New(opts ...Option) Logger {
	b := &builder{
		writer: os.Stderr,
		format: FormatJSON,
		level:  LevelInfo,
	}
	for _, opt := range opts {
		opt(b)
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(b.level)

	handler := b.handler
	if handler == nil {
		hopts := &slog.HandlerOptions{Level: levelVar}
		if b.format == FormatText {
			handler = slog.NewTextHandler(b.writer, hopts)
		} else {
			handler = slog.NewJSONHandler(b.writer, hopts)
		}
	}

	return &xlogger{
		handler:  handler,
		levelVar: levelVar,
	}
}

// log 通用日志方法
func (l *xlogger) log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	// Handler 写入失败不反馈给业务调用链，日志子系统遵循"失败不扩散"原则
	_ = l.handler.Handle(ctx, r)
}

// Debug 记录 Debug 级别日志
func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, msg, attrs)
}

// Info 记录 Info 级别日志
func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, msg, attrs)
}

// Warn 记录 Warn 级别日志
func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, msg, attrs)
}

// Error 记录 Error 级别日志
func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, msg, attrs)
}

// With 返回带额外属性的派生 Logger
func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return &xlogger{
		handler:  l.handler.WithAttrs(attrs),
		levelVar: l.levelVar, // 派生 logger 共享级别变量
	}
}

// SetLevel 动态设置日志级别（实现 Leveler 接口）
func (l *xlogger) SetLevel(level Level) {
	l.levelVar.Set(level)
}

// GetLevel 获取当前日志级别（实现 Leveler 接口）
func (l *xlogger) GetLevel() Level {
	return l.levelVar.Level()
}

// Enabled 检查指定级别是否启用（实现 Leveler 接口）
func (l *xlogger) Enabled(ctx context.Context, level Level) bool {
	return l.handler.Enabled(ctx, level)
}

// nopLogger 空实现，所有方法零开销返回
type nopLogger struct{}

// NewNop 创建空 Logger
//
// 用于未注入日志器的组件默认值，所有日志调用直接丢弃。
func NewNop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(context.Context, string, ...slog.Attr) {}
func (nopLogger) Info(context.Context, string, ...slog.Attr)  {}
func (nopLogger) Warn(context.Context, string, ...slog.Attr)  {}
func (nopLogger) Error(context.Context, string, ...slog.Attr) {}
func (n nopLogger) With(...slog.Attr) Logger                  { return n }
