package xtarget

import (
	"encoding"
	"fmt"
)

// FallbackStrategy 降级策略
//
// 设计决策: 使用封闭枚举而非运行时字符串分支，
// 配置中的字符串在加载期经 UnmarshalText 转换，非法值是加载错误。
type FallbackStrategy uint8

// 降级策略枚举值
const (
	// FallbackEchelonDown 同任务组内降级到下一优先级梯队
	FallbackEchelonDown FallbackStrategy = iota

	// FallbackModelRotate 同梯队内轮换到下一个端点，耗尽后退化为 EchelonDown
	FallbackModelRotate

	// FallbackProviderFailover 同梯队内切换到不同 provider 的端点，
	// 无跨 provider 端点时退化为 ModelRotate
	FallbackProviderFailover

	// FallbackTaskGroupSwitch 直接跳转到 fallback_groups 的第一个任务组
	FallbackTaskGroupSwitch
)

// 编译时接口检查
var (
	_ encoding.TextMarshaler   = FallbackEchelonDown
	_ encoding.TextUnmarshaler = (*FallbackStrategy)(nil)
	_ encoding.TextMarshaler   = RotationRoundRobin
	_ encoding.TextUnmarshaler = (*RotationStrategy)(nil)
)

// fallbackStrategyNames 策略到配置字符串的映射
var fallbackStrategyNames = map[FallbackStrategy]string{
	FallbackEchelonDown:      "echelon_down",
	FallbackModelRotate:      "model_rotate",
	FallbackProviderFailover: "provider_failover",
	FallbackTaskGroupSwitch:  "task_group_switch",
}

// String 返回策略的配置字符串表示
func (s FallbackStrategy) String() string {
	if name, ok := fallbackStrategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("fallback_strategy(%d)", uint8(s))
}

// MarshalText 实现 encoding.TextMarshaler
func (s FallbackStrategy) MarshalText() ([]byte, error) {
	name, ok := fallbackStrategyNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: unknown fallback strategy %d", ErrInvalidConfig, uint8(s))
	}
	return []byte(name), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
//
// 空字符串视为默认策略 EchelonDown。
func (s *FallbackStrategy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "echelon_down":
		*s = FallbackEchelonDown
	case "model_rotate":
		*s = FallbackModelRotate
	case "provider_failover":
		*s = FallbackProviderFailover
	case "task_group_switch":
		*s = FallbackTaskGroupSwitch
	default:
		return fmt.Errorf("%w: unknown fallback strategy %q", ErrInvalidConfig, text)
	}
	return nil
}

// RotationStrategy 轮询池的成员轮转策略
type RotationStrategy uint8

// 轮转策略枚举值
const (
	// RotationRoundRobin 对存活成员做循环轮转，每次选择都推进游标
	RotationRoundRobin RotationStrategy = iota

	// RotationLeastRecentlyUsed 选择最久未被选中的存活成员
	RotationLeastRecentlyUsed

	// RotationWeighted 按静态权重做加权随机抽取
	RotationWeighted
)

// rotationStrategyNames 策略到配置字符串的映射
var rotationStrategyNames = map[RotationStrategy]string{
	RotationRoundRobin:        "round_robin",
	RotationLeastRecentlyUsed: "least_recently_used",
	RotationWeighted:          "weighted",
}

// String 返回策略的配置字符串表示
func (s RotationStrategy) String() string {
	if name, ok := rotationStrategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("rotation_strategy(%d)", uint8(s))
}

// MarshalText 实现 encoding.TextMarshaler
func (s RotationStrategy) MarshalText() ([]byte, error) {
	name, ok := rotationStrategyNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: unknown rotation strategy %d", ErrInvalidConfig, uint8(s))
	}
	return []byte(name), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
//
// 空字符串视为默认策略 RoundRobin；"lru" 是 least_recently_used 的别名。
func (s *RotationStrategy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "round_robin":
		*s = RotationRoundRobin
	case "least_recently_used", "lru":
		*s = RotationLeastRecentlyUsed
	case "weighted":
		*s = RotationWeighted
	default:
		return fmt.Errorf("%w: unknown rotation strategy %q", ErrInvalidConfig, text)
	}
	return nil
}
