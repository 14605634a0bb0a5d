package xadmit

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrClosed 限流器已关闭
	ErrClosed = errors.New("xadmit: limiter closed")

	// ErrEmptyKey 准入键为空
	ErrEmptyKey = errors.New("xadmit: empty key")

	// ErrInvalidLimit 限流参数无效
	ErrInvalidLimit = errors.New("xadmit: invalid limit")

	// ErrBackendUnavailable 分布式后端不可用
	ErrBackendUnavailable = errors.New("xadmit: backend unavailable")
)
