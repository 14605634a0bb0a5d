// Package xconcurrency 提供四级嵌套的并发额度控制。
//
// 四个级别自外向内依次是：任务组 → 梯队 → 模型端点 → 节点。
// 一次请求必须按序拿到所有启用级别的额度才算获准执行，
// 任何一级拿不到都会把已拿到的额度按逆序退回，不留泄漏。
//
// 前三级的额度按键惰性创建，容量在键首次出现时生效；
// 节点级是整个进程共享的全局上限，在构造时固定。
//
// 每一级都可以带一个有界等待队列：级别满载时，等待者数量
// 未超过队列容量的请求阻塞等待（受 ctx 取消控制），
// 超过的请求立即收到 ErrQueueFull，不做无界排队。
//
// 获准的请求拿到一个 Token，结束后调用 Release 逐级退还额度。
// Release 恰好一次：重复调用返回 ErrTokenReleased 且不产生副作用。
//
//	token, err := limiter.Acquire(ctx, grant, caps)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = token.Release() }()
package xconcurrency
