// Package xdispatch 是调度引擎的组合根。
//
// Dispatcher 把目标注册表、速率准入、并发额度、熔断面板、
// 轮询池与降级编排串成一条请求路径：
//
//	解析目标 → 速率准入 → 并发额度 → 熔断放行 → 调用后端
//
// 任何一步失败都算一次尝试失败，由降级编排器给出下一个目标，
// 直到成功、所有可达目标耗尽或共享截止时间到期。一次逻辑请求
// 的所有尝试共享同一个 ctx 截止时间，单次后端调用另有梯队级
// 超时兜底。
//
// 后端调用本身由调用方注入的 Invoker 完成，引擎不关心协议。
//
//	d, err := xdispatch.New(reg, invoker)
//	if err != nil {
//	    return err
//	}
//	d.Start()
//	defer func() { _ = d.Close() }()
//
//	resp, err := d.Submit(ctx, &xdispatch.Request{
//	    TargetRef: "plan_group",
//	    Messages:  []xdispatch.Message{{Role: "user", Content: "hi"}},
//	})
package xdispatch
