package xtarget

import (
	"fmt"
	"strings"
)

// Ref 解析后的目标引用
//
// 语法上 "a.b" 一定是组内梯队，单段引用 "a" 可能是任务组
// 也可能是轮询池，需要 Registry.Resolve 结合注册表消歧。
type Ref struct {
	// First 第一段（组名或池名）
	First string
	// Echelon 第二段（梯队名），单段引用时为空
	Echelon string
}

// ParseRef 解析目标引用字符串
//
// 合法语法：
//
//	"<group>.<echelon>"
//	"<group>"
//	"<pool>"
//
// 多于一个分隔符、空段都是语法错误。
func ParseRef(ref string) (Ref, error) {
	if ref == "" {
		return Ref{}, ErrEmptyRef
	}

	parts := strings.Split(ref, ".")
	switch len(parts) {
	case 1:
		return Ref{First: parts[0]}, nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
		}
		return Ref{First: parts[0], Echelon: parts[1]}, nil
	default:
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
}

// String 还原引用字符串
func (r Ref) String() string {
	if r.Echelon == "" {
		return r.First
	}
	return r.First + "." + r.Echelon
}

// =============================================================================
// 目标键
// =============================================================================

// 熔断器、限流器、并发限制器共享同一套目标键命名空间：
//
//	组键       "plan_group"
//	梯队键     "plan_group.e1"
//	端点键     "plan_group.e1/gpt-large"
//
// 设计决策: 端点键用 "/" 而非第三个 "."，避免与引用语法混淆——
// 引用永远不含 "/"，键可以由引用加端点 ID 机械拼出。

// EchelonKey 生成梯队键
func EchelonKey(group, echelon string) string {
	return group + "." + echelon
}

// EndpointKey 生成端点键
func EndpointKey(group, echelon, endpointID string) string {
	return group + "." + echelon + "/" + endpointID
}

// Target 一个已解析的具体调度目标
//
// Endpoint 在端点选择完成前为 nil。
type Target struct {
	// Group 所属任务组
	Group *TaskGroup
	// Echelon 具体梯队
	Echelon *Echelon
	// Endpoint 选中的端点，未选中时为 nil
	Endpoint *ModelEndpoint
}

// Key 返回梯队键
func (t Target) Key() string {
	return EchelonKey(t.Group.Name, t.Echelon.Name)
}

// EndpointTargetKey 返回端点键；未选中端点时返回梯队键
func (t Target) EndpointTargetKey() string {
	if t.Endpoint == nil {
		return t.Key()
	}
	return EndpointKey(t.Group.Name, t.Echelon.Name, t.Endpoint.ID)
}

// Visit 返回当前目标的访问记录
func (t Target) Visit() Visit {
	v := Visit{Group: t.Group.Name, Echelon: t.Echelon.Name}
	if t.Endpoint != nil {
		v.Endpoint = t.Endpoint.ID
	}
	return v
}
