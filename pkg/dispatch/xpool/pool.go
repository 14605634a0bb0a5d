package xpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/omeyang/xdispatch/pkg/dispatch/xtarget"
	"github.com/omeyang/xdispatch/pkg/observability/xlog"
)

// 预定义错误
var (
	// ErrNilConfig 池配置为空
	ErrNilConfig = errors.New("xpool: nil config")

	// ErrNilRegistry 注册表为空
	ErrNilRegistry = errors.New("xpool: nil registry")

	// ErrClosed 池已关闭
	ErrClosed = errors.New("xpool: pool closed")
)

// Gate 成员存活判定
//
// 典型实现委托熔断器面板：Open 状态的目标不可被选中。
type Gate interface {
	// Healthy 返回目标键当前是否可被选中
	Healthy(key string) bool
}

// GateFunc 函数式 Gate 适配器
type GateFunc func(key string) bool

// Healthy 实现 Gate 接口
func (f GateFunc) Healthy(key string) bool {
	return f(key)
}

// Member 池成员
type Member struct {
	// Ref 成员的引用字符串（"group" 或 "group.echelon"）
	Ref string
	// Target 解析后的具体目标
	Target xtarget.Target
	// Weight 加权轮转的静态权重
	Weight int
}

// Key 返回成员的目标键
func (m Member) Key() string {
	return m.Target.Key()
}

// HealthChangeFunc 成员存活状态变化回调
type HealthChangeFunc func(ref string, healthy bool)

// Option 池配置选项
type Option func(*Pool)

// WithLogger 设置日志器，默认不输出
func WithLogger(logger xlog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOnHealthChange 设置成员存活状态变化回调
func WithOnHealthChange(f HealthChangeFunc) Option {
	return func(p *Pool) {
		if f != nil {
			p.onHealthChange = f
		}
	}
}

// Pool 轮询池
//
// 并发安全。Select 可在任意 goroutine 调用；
// Run 启动后台健康循环，Close 停止并等待其退出。
type Pool struct {
	name     string
	strategy xtarget.RotationStrategy
	members  []Member
	gate     Gate
	interval time.Duration

	// cursor round_robin 策略的原子游标
	cursor atomic.Uint64
	// recency least_recently_used 策略的选中历史，
	// Keys() 从最久到最近有序
	recency *lru.Cache[string, struct{}]
	// recencyMu 保护 LRU 选择的 读-选-写 序列
	recencyMu sync.Mutex

	// health 上次健康循环观察到的存活状态
	health sync.Map // map[string]bool

	logger         xlog.Logger
	onHealthChange HealthChangeFunc

	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New 从配置构建轮询池
//
// 成员引用在注册表中解析，加权轮转的成员权重取该成员梯队内
// 全部端点权重之和（至少为 1）。
func New(cfg *xtarget.PollingPool, reg *xtarget.Registry, gate Gate, opts ...Option) (*Pool, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if gate == nil {
		gate = GateFunc(func(string) bool { return true })
	}

	members := make([]Member, 0, len(cfg.Members))
	for _, ref := range cfg.Members {
		target, err := reg.ResolveMember(ref)
		if err != nil {
			return nil, fmt.Errorf("xpool: pool %q: %w", cfg.Name, err)
		}
		members = append(members, Member{
			Ref:    ref,
			Target: target,
			Weight: memberWeight(reg, target),
		})
	}

	interval := cfg.HealthCheckInterval
	if interval <= 0 {
		interval = xtarget.DefaultHealthCheckInterval
	}

	p := &Pool{
		name:     cfg.Name,
		strategy: cfg.RotationStrategy,
		members:  members,
		gate:     gate,
		interval: interval,
		logger:   xlog.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.strategy == xtarget.RotationLeastRecentlyUsed {
		cache, err := lru.New[string, struct{}](len(members) + 1)
		if err != nil {
			return nil, fmt.Errorf("xpool: pool %q: %w", cfg.Name, err)
		}
		p.recency = cache
	}

	// 初始视角：所有成员存活，第一轮健康循环前不拒绝任何成员
	for _, m := range members {
		p.health.Store(m.Ref, true)
	}

	return p, nil
}

// memberWeight 计算成员的静态权重
func memberWeight(reg *xtarget.Registry, target xtarget.Target) int {
	total := 0
	for _, ep := range reg.EndpointsOf(target.Echelon) {
		if ep.Weight > 0 {
			total += ep.Weight
		}
	}
	if total <= 0 {
		total = 1
	}
	return total
}

// Name 返回池名
func (p *Pool) Name() string {
	return p.name
}

// Members 返回全部成员的副本
func (p *Pool) Members() []Member {
	out := make([]Member, len(p.members))
	copy(out, p.members)
	return out
}

// Select 按轮转策略选出下一个存活成员
//
// 所有成员都死亡时返回 ok=false，调用方应走降级路径。
func (p *Pool) Select(ctx context.Context) (Member, bool) {
	if p.closed.Load() || ctx.Err() != nil {
		return Member{}, false
	}

	alive := p.aliveMembers()
	if len(alive) == 0 {
		return Member{}, false
	}

	switch p.strategy {
	case xtarget.RotationLeastRecentlyUsed:
		return p.selectLRU(alive), true
	case xtarget.RotationWeighted:
		return p.selectWeighted(alive), true
	default:
		return p.selectRoundRobin(alive), true
	}
}

// aliveMembers 返回当前存活的成员，保持声明顺序
func (p *Pool) aliveMembers() []Member {
	alive := make([]Member, 0, len(p.members))
	for _, m := range p.members {
		if p.gate.Healthy(m.Key()) {
			alive = append(alive, m)
		}
	}
	return alive
}

// Run 启动后台健康循环
func (p *Pool) Run() {
	if p.closed.Load() {
		return
	}
	p.wg.Add(1)
	go p.healthLoop()
}

// Close 停止健康循环并等待其退出，幂等
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.done)
	p.wg.Wait()
	return nil
}

// healthLoop 按固定间隔重读成员存活状态
func (p *Pool) healthLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.checkHealth()
		}
	}
}

// checkHealth 对比存活状态并通知变化
func (p *Pool) checkHealth() {
	for _, m := range p.members {
		healthy := p.gate.Healthy(m.Key())

		prev, _ := p.health.Load(m.Ref)
		if prevBool, ok := prev.(bool); ok && prevBool == healthy {
			continue
		}
		p.health.Store(m.Ref, healthy)

		p.logger.Info(context.Background(), "pool member health changed",
			slog.String("pool", p.name),
			slog.String("member", m.Ref),
			slog.Bool("healthy", healthy),
		)
		if p.onHealthChange != nil {
			p.onHealthChange(m.Ref, healthy)
		}
	}
}
