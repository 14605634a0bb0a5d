package xdispatch

import (
	"errors"
	"fmt"
	"time"
)

// 预定义错误
var (
	// ErrClosed 调度器已关闭
	ErrClosed = errors.New("xdispatch: dispatcher closed")

	// ErrNilRegistry 注册表为空
	ErrNilRegistry = errors.New("xdispatch: nil registry")

	// ErrNilInvoker 后端调用器为空
	ErrNilInvoker = errors.New("xdispatch: nil invoker")

	// ErrNilRequest 请求为空
	ErrNilRequest = errors.New("xdispatch: nil request")

	// ErrExhausted 所有可达目标都已尝试
	ErrExhausted = errors.New("xdispatch: all targets exhausted")
)

// ThrottledError 单次尝试被速率准入拒绝
//
// 这是尝试级错误：调度器会继续降级到下一个目标，
// 只有全部目标耗尽时才会出现在最终错误链里。
type ThrottledError struct {
	// Key 被限流的目标键
	Key string
	// RetryAfter 建议的重试等待时间
	RetryAfter time.Duration
}

// Error 实现 error 接口
func (e *ThrottledError) Error() string {
	return fmt.Sprintf("xdispatch: %s throttled, retry after %s", e.Key, e.RetryAfter)
}

// QueueFullError 单次尝试因并发队列满被拒绝
type QueueFullError struct {
	// Key 满载的目标键
	Key string
}

// Error 实现 error 接口
func (e *QueueFullError) Error() string {
	return fmt.Sprintf("xdispatch: %s concurrency queue full", e.Key)
}

// BackendError 后端调用失败
type BackendError struct {
	// Key 失败的目标键（端点级）
	Key string
	// Timeout 是否因梯队级超时失败
	Timeout bool
	// Err 后端返回的原始错误
	Err error
}

// Error 实现 error 接口
func (e *BackendError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("xdispatch: backend %s timed out: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("xdispatch: backend %s: %v", e.Key, e.Err)
}

// Unwrap 返回底层错误
func (e *BackendError) Unwrap() error {
	return e.Err
}

// ExhaustedError 请求终态错误：降级链走完仍未成功
//
// Trail 记录了完整的尝试轨迹，LastErr 是最后一次尝试的错误。
type ExhaustedError struct {
	// RequestID 请求标识
	RequestID string
	// Attempts 总尝试次数
	Attempts int
	// Trail 尝试轨迹，"a.e1/m1 -> a.e2/m2" 形式
	Trail string
	// LastErr 最后一次尝试的错误
	LastErr error
}

// Error 实现 error 接口
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("xdispatch: request %s exhausted after %d attempts (%s): %v",
		e.RequestID, e.Attempts, e.Trail, e.LastErr)
}

// Unwrap 支持 errors.Is(err, ErrExhausted) 与对 LastErr 的链式检查
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.LastErr}
}

// IsThrottled 检查错误链中是否有速率准入拒绝
func IsThrottled(err error) bool {
	var te *ThrottledError
	return errors.As(err, &te)
}

// IsExhausted 检查错误是否为目标耗尽终态
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}

// IsTimeout 检查错误链中是否有梯队级超时的后端失败
func IsTimeout(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Timeout
}
