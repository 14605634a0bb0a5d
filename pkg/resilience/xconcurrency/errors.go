package xconcurrency

import "errors"

// 预定义错误
var (
	// ErrClosed 限制器已关闭
	ErrClosed = errors.New("xconcurrency: limiter closed")

	// ErrQueueFull 级别满载且等待队列已满
	ErrQueueFull = errors.New("xconcurrency: queue full")

	// ErrTokenReleased 令牌已释放，重复释放无副作用
	ErrTokenReleased = errors.New("xconcurrency: token already released")

	// ErrInvalidGrant 授权键不完整
	ErrInvalidGrant = errors.New("xconcurrency: invalid grant")
)
