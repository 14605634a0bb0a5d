// Package xcircuit 提供按目标键的熔断器面板。
//
// 面板为每个目标键（任务组、梯队或端点）惰性创建一个独立的
// 熔断器，键之间完全隔离：一个端点熔断不影响同梯队的其他端点。
//
// 熔断器状态机：
//   - Closed：正常放行，连续失败达到阈值后转为 Open
//   - Open：快速拒绝，不触达后端；恢复时间到后转为 HalfOpen
//   - HalfOpen：放行有限个探测请求，成功则 Closed，失败则回到 Open
//
// 使用两段式 API：Acquire 在调用前申请放行，返回的 done 在调用
// 结束后上报结果。这让一次后端调用的生命周期可以跨越多个函数：
//
//	done, err := board.Acquire("plan_group.e1/gpt-large", cfg)
//	if err != nil {
//	    return err // 熔断中，快速失败
//	}
//	resp, err := invoke(ctx, req)
//	done(err == nil)
//
// 熔断器一经创建就不会销毁：Open 状态本身就是需要保留的信息，
// 键的数量与配置中的目标数同阶，不存在无界增长。
package xcircuit
