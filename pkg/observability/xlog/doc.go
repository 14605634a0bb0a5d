// Package xlog 提供引擎内部使用的结构化日志接口。
//
// # 设计理念
//
// 基于标准库 log/slog 构建，所有方法强制传递 context.Context，
// 方法签名只接受 slog.Attr，避免隐式 key-value 转换开销。
//
// 引擎各组件通过 WithLogger 选项注入 Logger，不做任何全局状态假设。
// 未注入时组件使用 NewNop() 返回的空实现，日志调用零开销退化。
//
// # 基本用法
//
//	logger := xlog.New(xlog.WithLevel(xlog.LevelDebug))
//	logger.Info(ctx, "dispatch started", slog.String("target", "plan_group.e1"))
//
// 动态级别控制：
//
//	if lv, ok := logger.(xlog.Leveler); ok {
//	    lv.SetLevel(xlog.LevelWarn)
//	}
package xlog
