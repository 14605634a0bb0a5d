package xtarget

import "strings"

// Visit 一次逻辑请求中访问过的 (任务组, 梯队, 端点) 三元组
type Visit struct {
	Group    string
	Echelon  string
	Endpoint string
}

// String 返回 "group.echelon/endpoint" 形式
func (v Visit) String() string {
	if v.Endpoint == "" {
		return EchelonKey(v.Group, v.Echelon)
	}
	return EndpointKey(v.Group, v.Echelon, v.Endpoint)
}

// Visited 有序去重的访问轨迹
//
// 用于降级编排的防环与终态错误的诊断信息。
// 非并发安全：一次逻辑请求的尝试循环是串行的，由单个 goroutine 持有。
type Visited struct {
	order []Visit
	seen  map[Visit]struct{}
}

// NewVisited 创建空轨迹
func NewVisited() *Visited {
	return &Visited{seen: make(map[Visit]struct{})}
}

// Add 记录一次访问，重复记录返回 false
func (vs *Visited) Add(v Visit) bool {
	if _, ok := vs.seen[v]; ok {
		return false
	}
	vs.seen[v] = struct{}{}
	vs.order = append(vs.order, v)
	return true
}

// Has 检查三元组是否已访问
func (vs *Visited) Has(v Visit) bool {
	_, ok := vs.seen[v]
	return ok
}

// HasEndpoint 检查具体端点是否已访问
func (vs *Visited) HasEndpoint(group, echelon, endpointID string) bool {
	return vs.Has(Visit{Group: group, Echelon: echelon, Endpoint: endpointID})
}

// EchelonExhausted 检查梯队的所有端点是否都已访问
func (vs *Visited) EchelonExhausted(g *TaskGroup, e *Echelon) bool {
	for _, id := range e.Models {
		if !vs.HasEndpoint(g.Name, e.Name, id) {
			return false
		}
	}
	return true
}

// Len 返回访问次数
func (vs *Visited) Len() int {
	return len(vs.order)
}

// List 返回访问顺序的副本
func (vs *Visited) List() []Visit {
	out := make([]Visit, len(vs.order))
	copy(out, vs.order)
	return out
}

// String 返回 "a.e1/m1 -> a.e2/m2" 形式的轨迹
func (vs *Visited) String() string {
	if len(vs.order) == 0 {
		return "(none)"
	}
	parts := make([]string, len(vs.order))
	for i, v := range vs.order {
		parts[i] = v.String()
	}
	return strings.Join(parts, " -> ")
}
