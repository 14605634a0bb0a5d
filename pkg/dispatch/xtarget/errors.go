package xtarget

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrEmptyRef 目标引用为空字符串
	ErrEmptyRef = errors.New("xtarget: empty target ref")

	// ErrInvalidRef 目标引用语法无效
	ErrInvalidRef = errors.New("xtarget: invalid target ref")

	// ErrUnknownTarget 引用的目标不存在
	ErrUnknownTarget = errors.New("xtarget: unknown target")

	// ErrInvalidConfig 配置无效（缺字段、引用悬空、优先级冲突等）
	ErrInvalidConfig = errors.New("xtarget: invalid config")

	// ErrFallbackCycle 任务组降级链存在环
	ErrFallbackCycle = errors.New("xtarget: fallback group cycle")

	// ErrUnsupportedFormat 配置文件格式不支持
	ErrUnsupportedFormat = errors.New("xtarget: unsupported config format")

	// ErrLoadFailed 配置文件读取失败
	ErrLoadFailed = errors.New("xtarget: config load failed")

	// ErrParseFailed 配置内容解析失败
	ErrParseFailed = errors.New("xtarget: config parse failed")
)
