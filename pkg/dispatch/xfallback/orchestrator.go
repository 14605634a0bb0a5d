package xfallback

import (
	"errors"

	"github.com/omeyang/xdispatch/pkg/dispatch/xtarget"
)

// 预定义错误
var (
	// ErrNilRegistry 注册表为空
	ErrNilRegistry = errors.New("xfallback: nil registry")
)

// Orchestrator 降级编排器
//
// 无状态、并发安全：同一个编排器可服务任意多个并发请求。
type Orchestrator struct {
	reg *xtarget.Registry
}

// New 创建降级编排器
func New(reg *xtarget.Registry) (*Orchestrator, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	return &Orchestrator{reg: reg}, nil
}

// First 为一次请求选出首个目标
//
// 从 target 的梯队内选第一个未访问的端点；梯队内全部访问过时
// 直接走 Next 的降级逻辑。
func (o *Orchestrator) First(target xtarget.Target, visited *xtarget.Visited) (xtarget.Target, bool) {
	if t, ok := o.endpointIn(target.Group, target.Echelon, visited, ""); ok {
		return t, true
	}
	return o.Next(target, visited)
}

// Next 在 cur 失败后选出下一个未访问的目标
//
// 策略取自 cur 所属任务组的配置。返回 ok=false 表示
// 所有可达目标都已访问，请求应以耗尽错误终止。
func (o *Orchestrator) Next(cur xtarget.Target, visited *xtarget.Visited) (xtarget.Target, bool) {
	step, ok := strategySteps[cur.Group.FallbackStrategy]
	if !ok {
		step = stepEchelonDown
	}
	return step(o, cur, visited)
}

// stepFunc 单步降级决策
type stepFunc func(o *Orchestrator, cur xtarget.Target, visited *xtarget.Visited) (xtarget.Target, bool)

// strategySteps 策略分发表
var strategySteps = map[xtarget.FallbackStrategy]stepFunc{
	xtarget.FallbackEchelonDown:      stepEchelonDown,
	xtarget.FallbackModelRotate:      stepModelRotate,
	xtarget.FallbackProviderFailover: stepProviderFailover,
	xtarget.FallbackTaskGroupSwitch:  stepTaskGroupSwitch,
}

// stepEchelonDown 降到同组下一优先级梯队，组耗尽后沿降级链继续
func stepEchelonDown(o *Orchestrator, cur xtarget.Target, visited *xtarget.Visited) (xtarget.Target, bool) {
	if t, ok := o.descendEchelons(cur.Group, cur.Echelon.Priority, visited); ok {
		return t, true
	}
	return o.switchGroups(cur.Group, visited, make(map[string]struct{}))
}

// stepModelRotate 同梯队换端点，耗尽后退化为 echelon_down
func stepModelRotate(o *Orchestrator, cur xtarget.Target, visited *xtarget.Visited) (xtarget.Target, bool) {
	if t, ok := o.endpointIn(cur.Group, cur.Echelon, visited, ""); ok {
		return t, true
	}
	return stepEchelonDown(o, cur, visited)
}

// stepProviderFailover 同梯队换 provider，无跨 provider 端点时退化为 model_rotate
func stepProviderFailover(o *Orchestrator, cur xtarget.Target, visited *xtarget.Visited) (xtarget.Target, bool) {
	if cur.Endpoint != nil {
		if t, ok := o.endpointIn(cur.Group, cur.Echelon, visited, cur.Endpoint.Provider); ok {
			return t, true
		}
	}
	return stepModelRotate(o, cur, visited)
}

// stepTaskGroupSwitch 直接跳到降级任务组
func stepTaskGroupSwitch(o *Orchestrator, cur xtarget.Target, visited *xtarget.Visited) (xtarget.Target, bool) {
	return o.switchGroups(cur.Group, visited, make(map[string]struct{}))
}

// =============================================================================
// 遍历原语
// =============================================================================

// endpointIn 在梯队内找第一个未访问的端点
//
// excludeProvider 非空时跳过该 provider 的端点。
func (o *Orchestrator) endpointIn(g *xtarget.TaskGroup, e *xtarget.Echelon, visited *xtarget.Visited, excludeProvider string) (xtarget.Target, bool) {
	for _, ep := range o.reg.EndpointsOf(e) {
		if excludeProvider != "" && ep.Provider == excludeProvider {
			continue
		}
		if visited.HasEndpoint(g.Name, e.Name, ep.ID) {
			continue
		}
		return xtarget.Target{Group: g, Echelon: e, Endpoint: ep}, true
	}
	return xtarget.Target{}, false
}

// descendEchelons 从 afterPriority 之后的梯队里找未访问端点
//
// afterPriority 为负时从组内第一个梯队开始。
func (o *Orchestrator) descendEchelons(g *xtarget.TaskGroup, afterPriority int, visited *xtarget.Visited) (xtarget.Target, bool) {
	for i := range g.Echelons {
		e := &g.Echelons[i]
		if e.Priority <= afterPriority {
			continue
		}
		if t, ok := o.endpointIn(g, e, visited, ""); ok {
			return t, true
		}
	}
	return xtarget.Target{}, false
}

// switchGroups 沿 from 的降级链找下一个目标
//
// 链上每个组内部按 echelon_down 展开；seen 防止链上的组重复进入，
// 配合注册表构建期的无环校验双重保险。
func (o *Orchestrator) switchGroups(from *xtarget.TaskGroup, visited *xtarget.Visited, seen map[string]struct{}) (xtarget.Target, bool) {
	seen[from.Name] = struct{}{}

	for _, name := range from.FallbackGroups {
		if _, done := seen[name]; done {
			continue
		}
		g, ok := o.reg.Group(name)
		if !ok {
			continue
		}
		if t, ok := o.descendEchelons(g, -1<<31, visited); ok {
			return t, true
		}
		// 该组也耗尽，继续沿它自己的降级链走
		if t, ok := o.switchGroups(g, visited, seen); ok {
			return t, true
		}
	}
	return xtarget.Target{}, false
}
