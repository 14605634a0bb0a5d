// Package xtarget 定义调度引擎的目标模型与配置加载。
//
// # 核心概念
//
//   - ModelEndpoint: 一个具体的后端模型端点，加载后不可变
//   - Echelon: 任务组内的一个优先级梯队，持有若干等价端点
//     以及自己的并发/速率/超时预算
//   - TaskGroup: 有序梯队集合，共享一个降级策略与熔断配置
//   - PollingPool: 跨任务组/梯队的负载均衡视图，持有独立的轮转策略
//
// # 目标引用语法
//
// 调用方通过字符串引用目标：
//
//	"plan_group.e1"  任务组内的指定梯队
//	"plan_group"     任务组（默认取优先级最高的梯队）
//	"chat_pool"      轮询池
//
// Registry.Resolve 将引用解析为具体目标或池展开。
//
// # 配置加载
//
// LoadFile/LoadBytes 基于 koanf 解析 YAML/JSON 配置，
// NewRegistry 做全量校验（引用可解析、优先级全序、降级链无环）。
// Watch 基于 fsnotify 监视配置文件变更，供宿主进程热重建调度器。
package xtarget
