// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//   - xevent: 调度生命周期事件（尝试开始/成功/失败、熔断开合、限流拒绝）
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 事件回调不阻塞调度主路径
//   - 支持空实现便于测试
package observability
