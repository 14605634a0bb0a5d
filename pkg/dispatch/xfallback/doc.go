// Package xfallback 实现降级编排：一次尝试失败后，决定下一个目标。
//
// 编排器是纯函数式的：不持有请求状态，输入当前目标与访问轨迹，
// 输出下一个未访问过的目标。访问轨迹由调用方（调度器的尝试循环）
// 维护，编排器保证绝不返回已访问过的 (组, 梯队, 端点) 三元组，
// 因此降级链必然终止。
//
// 四种策略：
//   - echelon_down：同组内降到下一优先级梯队
//   - model_rotate：同梯队内换下一个端点，耗尽后退化为 echelon_down
//   - provider_failover：同梯队内换不同 provider 的端点，
//     无跨 provider 端点时退化为 model_rotate
//   - task_group_switch：直接跳到第一个降级任务组
//
// 所有策略在本组耗尽后都会沿 fallback_groups 链继续，
// 链上每个组内部按 echelon_down 展开。
package xfallback
