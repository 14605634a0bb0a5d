package xcircuit

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// 预定义错误
var (
	// ErrEmptyKey 目标键为空
	ErrEmptyKey = errors.New("xcircuit: empty key")
)

// errAttemptFailed 向 gobreaker 上报失败结果的占位错误
var errAttemptFailed = errors.New("xcircuit: attempt failed")

// CircuitError 熔断拦截错误
//
// 包装 gobreaker 的 ErrOpenState 与 ErrTooManyRequests，
// 携带目标键与拦截时的状态。Retryable 返回 false：
// 熔断拦截应立即切换目标而非原地重试。
type CircuitError struct {
	// Key 被拦截的目标键
	Key string
	// State 拦截时的熔断器状态
	State State
	// Err 原始错误
	Err error
}

// Error 实现 error 接口
func (e *CircuitError) Error() string {
	return fmt.Sprintf("xcircuit: %s rejected by breaker (state=%s): %v", e.Key, e.State, e.Err)
}

// Unwrap 返回底层错误
func (e *CircuitError) Unwrap() error {
	return e.Err
}

// Retryable 熔断拦截不可原地重试
func (e *CircuitError) Retryable() bool {
	return false
}

// wrapCircuitError 包装 gobreaker 的拦截错误
//
// 只匹配直接的 sentinel，从错误类型推导状态而非事后查询，
// 避免拦截发生到查询之间的状态竞态。
func wrapCircuitError(err error, key string) error {
	if err == nil {
		return nil
	}
	if err == gobreaker.ErrOpenState {
		return &CircuitError{Key: key, State: StateOpen, Err: err}
	}
	if err == gobreaker.ErrTooManyRequests {
		return &CircuitError{Key: key, State: StateHalfOpen, Err: err}
	}
	return err
}

// IsOpen 检查错误是否为熔断打开拦截
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}

// IsTooManyRequests 检查错误是否为半开探测数超限
func IsTooManyRequests(err error) bool {
	return errors.Is(err, gobreaker.ErrTooManyRequests)
}

// IsCircuitError 检查错误是否为熔断拦截（两种拦截之一）
func IsCircuitError(err error) bool {
	return IsOpen(err) || IsTooManyRequests(err)
}
