// Package xadmit 提供按目标键的速率准入控制。
//
// 准入检查是非阻塞的：Admit 立即返回放行或拒绝的决策，
// 被拒绝的请求拿到建议的 RetryAfter，由调用方决定等待或降级，
// 限流器本身从不睡眠。
//
// 支持两种后端：
//   - 本地后端：进程内内存状态，按键分片降低锁竞争，
//     支持令牌桶与滑动窗口两种算法
//   - Redis 后端：基于 redis_rate 的 GCRA 算法，
//     多实例共享配额，Redis 故障时可降级到本地后端
//
// 基本用法：
//
//	limiter, err := xadmit.New()
//	if err != nil {
//	    return err
//	}
//	defer limiter.Close(ctx)
//
//	dec, err := limiter.Admit(ctx, "plan_group.e1", xadmit.Limit{
//	    Rate:   60,
//	    Period: time.Minute,
//	})
//	if err != nil {
//	    return err
//	}
//	if !dec.Allowed {
//	    return fmt.Errorf("throttled, retry after %s", dec.RetryAfter)
//	}
package xadmit
