package xtarget

import (
	"fmt"
	"sort"
)

// Registry 目标注册表
//
// 由一份完整配置构建，构建后只读，可被任意多个 goroutine 并发读取。
// 所有引用在构建期校验完毕，运行期的解析不会产生悬空引用。
type Registry struct {
	groups    map[string]*TaskGroup
	pools     map[string]*PollingPool
	endpoints map[string]*ModelEndpoint

	// groupOrder 保留配置中的声明顺序，供 CLI 与诊断输出使用
	groupOrder []string
	poolOrder  []string
}

// Resolution 引用解析结果
//
// Pool 非 nil 时表示池引用，Target 无意义；
// 否则 Target 是一个具体的 (任务组, 梯队) 目标。
type Resolution struct {
	// Target 具体目标
	Target Target
	// Pool 池引用时非 nil
	Pool *PollingPool
}

// NewRegistry 从配置构建注册表并做全量校验
//
// 校验失败返回的错误都包装了 ErrInvalidConfig（或 ErrFallbackCycle），
// 错误信息带具体定位。
func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	r := &Registry{
		groups:    make(map[string]*TaskGroup, len(cfg.TaskGroups)),
		pools:     make(map[string]*PollingPool, len(cfg.PollingPools)),
		endpoints: make(map[string]*ModelEndpoint, len(cfg.Endpoints)),
	}

	if err := r.indexEndpoints(cfg.Endpoints); err != nil {
		return nil, err
	}
	if err := r.indexGroups(cfg.TaskGroups); err != nil {
		return nil, err
	}
	if err := r.checkFallbackChains(); err != nil {
		return nil, err
	}
	if err := r.indexPools(cfg.PollingPools); err != nil {
		return nil, err
	}

	return r, nil
}

// indexEndpoints 索引并校验端点
func (r *Registry) indexEndpoints(endpoints []ModelEndpoint) error {
	for i := range endpoints {
		ep := endpoints[i]
		if ep.ID == "" {
			return fmt.Errorf("%w: endpoint[%d] missing id", ErrInvalidConfig, i)
		}
		if ep.Provider == "" {
			return fmt.Errorf("%w: endpoint %q missing provider", ErrInvalidConfig, ep.ID)
		}
		if ep.ModelName == "" {
			return fmt.Errorf("%w: endpoint %q missing model", ErrInvalidConfig, ep.ID)
		}
		if _, dup := r.endpoints[ep.ID]; dup {
			return fmt.Errorf("%w: duplicate endpoint id %q", ErrInvalidConfig, ep.ID)
		}
		r.endpoints[ep.ID] = &endpoints[i]
	}
	return nil
}

// indexGroups 索引并校验任务组与梯队
func (r *Registry) indexGroups(groups []TaskGroup) error {
	for i := range groups {
		g := &groups[i]
		if g.Name == "" {
			return fmt.Errorf("%w: task_group[%d] missing name", ErrInvalidConfig, i)
		}
		if _, dup := r.groups[g.Name]; dup {
			return fmt.Errorf("%w: duplicate task group %q", ErrInvalidConfig, g.Name)
		}
		if len(g.Echelons) == 0 {
			return fmt.Errorf("%w: task group %q has no echelons", ErrInvalidConfig, g.Name)
		}

		g.CircuitBreaker = g.CircuitBreaker.withDefaults()

		if err := r.normalizeEchelons(g); err != nil {
			return err
		}

		r.groups[g.Name] = g
		r.groupOrder = append(r.groupOrder, g.Name)
	}
	return nil
}

// normalizeEchelons 校验梯队、回填默认值并按优先级排序
func (r *Registry) normalizeEchelons(g *TaskGroup) error {
	names := make(map[string]struct{}, len(g.Echelons))
	priorities := make(map[int]string, len(g.Echelons))

	for i := range g.Echelons {
		e := &g.Echelons[i]
		if e.Name == "" {
			return fmt.Errorf("%w: group %q echelon[%d] missing name", ErrInvalidConfig, g.Name, i)
		}
		if _, dup := names[e.Name]; dup {
			return fmt.Errorf("%w: group %q duplicate echelon %q", ErrInvalidConfig, g.Name, e.Name)
		}
		names[e.Name] = struct{}{}

		// 梯队属于且仅属于一个任务组
		e.group = g.Name

		if other, dup := priorities[e.Priority]; dup {
			return fmt.Errorf("%w: group %q echelons %q and %q share priority %d",
				ErrInvalidConfig, g.Name, other, e.Name, e.Priority)
		}
		priorities[e.Priority] = e.Name

		if len(e.Models) == 0 {
			return fmt.Errorf("%w: group %q echelon %q has no models", ErrInvalidConfig, g.Name, e.Name)
		}
		for _, id := range e.Models {
			if _, ok := r.endpoints[id]; !ok {
				return fmt.Errorf("%w: group %q echelon %q references unknown endpoint %q",
					ErrInvalidConfig, g.Name, e.Name, id)
			}
		}

		if e.ConcurrencyLimit <= 0 {
			return fmt.Errorf("%w: group %q echelon %q concurrency_limit must be positive",
				ErrInvalidConfig, g.Name, e.Name)
		}
		if e.RPMLimit < 0 {
			return fmt.Errorf("%w: group %q echelon %q rpm_limit cannot be negative",
				ErrInvalidConfig, g.Name, e.Name)
		}
		if e.QueueSize < 0 {
			return fmt.Errorf("%w: group %q echelon %q queue_size cannot be negative",
				ErrInvalidConfig, g.Name, e.Name)
		}
		if e.MaxRetries < 0 {
			return fmt.Errorf("%w: group %q echelon %q max_retries cannot be negative",
				ErrInvalidConfig, g.Name, e.Name)
		}
		if e.Timeout <= 0 {
			e.Timeout = DefaultTimeout
		}
	}

	sort.SliceStable(g.Echelons, func(i, j int) bool {
		return g.Echelons[i].Priority < g.Echelons[j].Priority
	})
	return nil
}

// checkFallbackChains 校验降级组引用可解析且无环
func (r *Registry) checkFallbackChains() error {
	for name, g := range r.groups {
		for _, fg := range g.FallbackGroups {
			if fg == name {
				return fmt.Errorf("%w: group %q lists itself as fallback", ErrFallbackCycle, name)
			}
			if _, ok := r.groups[fg]; !ok {
				return fmt.Errorf("%w: group %q references unknown fallback group %q",
					ErrInvalidConfig, name, fg)
			}
		}
	}

	// 沿降级链做带色 DFS 检测环
	const (
		white = 0 // 未访问
		gray  = 1 // 在当前路径上
		black = 2 // 已完成
	)
	color := make(map[string]int, len(r.groups))

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			return fmt.Errorf("%w: involving group %q", ErrFallbackCycle, name)
		case black:
			return nil
		}
		color[name] = gray
		for _, fg := range r.groups[name].FallbackGroups {
			if err := visit(fg); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	for name := range r.groups {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// indexPools 索引并校验轮询池
func (r *Registry) indexPools(pools []PollingPool) error {
	for i := range pools {
		p := &pools[i]
		if p.Name == "" {
			return fmt.Errorf("%w: polling_pool[%d] missing name", ErrInvalidConfig, i)
		}
		if _, dup := r.pools[p.Name]; dup {
			return fmt.Errorf("%w: duplicate polling pool %q", ErrInvalidConfig, p.Name)
		}
		if _, clash := r.groups[p.Name]; clash {
			return fmt.Errorf("%w: polling pool %q clashes with a task group name",
				ErrInvalidConfig, p.Name)
		}
		if len(p.Members) == 0 {
			return fmt.Errorf("%w: polling pool %q has no members", ErrInvalidConfig, p.Name)
		}

		for _, member := range p.Members {
			ref, err := ParseRef(member)
			if err != nil {
				return fmt.Errorf("%w: pool %q member %q: %v", ErrInvalidConfig, p.Name, member, err)
			}
			g, ok := r.groups[ref.First]
			if !ok {
				return fmt.Errorf("%w: pool %q member %q references unknown group",
					ErrInvalidConfig, p.Name, member)
			}
			if ref.Echelon != "" {
				if _, ok := g.EchelonByName(ref.Echelon); !ok {
					return fmt.Errorf("%w: pool %q member %q references unknown echelon",
						ErrInvalidConfig, p.Name, member)
				}
			}
		}

		if p.HealthCheckInterval <= 0 {
			p.HealthCheckInterval = DefaultHealthCheckInterval
		}

		r.pools[p.Name] = p
		r.poolOrder = append(r.poolOrder, p.Name)
	}
	return nil
}

// =============================================================================
// 查询
// =============================================================================

// Group 按名称查找任务组
func (r *Registry) Group(name string) (*TaskGroup, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// Pool 按名称查找轮询池
func (r *Registry) Pool(name string) (*PollingPool, bool) {
	p, ok := r.pools[name]
	return p, ok
}

// Endpoint 按 ID 查找端点
func (r *Registry) Endpoint(id string) (*ModelEndpoint, bool) {
	ep, ok := r.endpoints[id]
	return ep, ok
}

// GroupNames 按声明顺序返回所有任务组名
func (r *Registry) GroupNames() []string {
	out := make([]string, len(r.groupOrder))
	copy(out, r.groupOrder)
	return out
}

// PoolNames 按声明顺序返回所有轮询池名
func (r *Registry) PoolNames() []string {
	out := make([]string, len(r.poolOrder))
	copy(out, r.poolOrder)
	return out
}

// EndpointsOf 返回梯队持有的端点，保持配置顺序。
// 注册表构建期已校验全部可解析。
func (r *Registry) EndpointsOf(e *Echelon) []*ModelEndpoint {
	out := make([]*ModelEndpoint, 0, len(e.Models))
	for _, id := range e.Models {
		if ep, ok := r.endpoints[id]; ok {
			out = append(out, ep)
		}
	}
	return out
}

// Resolve 解析目标引用
//
// "a.b" 解析为组 a 的梯队 b；单段引用优先匹配任务组
// （取其默认梯队），其次匹配轮询池。
func (r *Registry) Resolve(ref string) (Resolution, error) {
	parsed, err := ParseRef(ref)
	if err != nil {
		return Resolution{}, err
	}

	g, isGroup := r.groups[parsed.First]

	if parsed.Echelon != "" {
		if !isGroup {
			return Resolution{}, fmt.Errorf("%w: group %q", ErrUnknownTarget, parsed.First)
		}
		e, ok := g.EchelonByName(parsed.Echelon)
		if !ok {
			return Resolution{}, fmt.Errorf("%w: echelon %q in group %q",
				ErrUnknownTarget, parsed.Echelon, parsed.First)
		}
		return Resolution{Target: Target{Group: g, Echelon: e}}, nil
	}

	if isGroup {
		return Resolution{Target: Target{Group: g, Echelon: g.DefaultEchelon()}}, nil
	}
	if p, ok := r.pools[parsed.First]; ok {
		return Resolution{Pool: p}, nil
	}
	return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownTarget, ref)
}

// ResolveMember 解析池成员引用为具体目标。
// 构建期已校验成员引用，运行期失败说明调用方传入了未注册的成员。
func (r *Registry) ResolveMember(member string) (Target, error) {
	res, err := r.Resolve(member)
	if err != nil {
		return Target{}, err
	}
	if res.Pool != nil {
		return Target{}, fmt.Errorf("%w: pool member cannot be a pool: %q", ErrInvalidRef, member)
	}
	return res.Target, nil
}

// AttemptBudget 计算从 group 出发（含降级链）的最大尝试预算：
// 每个可达梯队贡献 MaxRetries + 1。
// 用作调度器尝试循环的硬上限，精确判断由降级编排器负责。
func (r *Registry) AttemptBudget(group string) int {
	budget := 0
	seen := make(map[string]struct{})

	var walk func(name string)
	walk = func(name string) {
		if _, done := seen[name]; done {
			return
		}
		seen[name] = struct{}{}
		g, ok := r.groups[name]
		if !ok {
			return
		}
		for i := range g.Echelons {
			budget += g.Echelons[i].MaxRetries + 1
		}
		for _, fg := range g.FallbackGroups {
			walk(fg)
		}
	}
	walk(group)
	return budget
}
