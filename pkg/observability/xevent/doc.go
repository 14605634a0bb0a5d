// Package xevent 定义调度引擎对外发布的结构化事件。
//
// 引擎在每次尝试的边界、熔断器状态变化和限流拒绝时发布事件，
// 由注入的 Sink 接口消费。包内提供两个实现：
//
//   - NewLogSink: 将事件写入 xlog.Logger，适合开发与排障
//   - NewNopSink: 丢弃所有事件，未注入 Sink 时的默认值
//
// Sink 实现必须是并发安全的，且不应阻塞：引擎在请求热路径上
// 同步调用 Emit，耗时的投递（消息队列、网络上报）应由实现方
// 自行异步化。
package xevent
