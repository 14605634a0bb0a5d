package xconcurrency

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Grant 一次请求在前三级上的授权键
//
// 键为空的级别跳过，不参与额度控制。
type Grant struct {
	// GroupKey 任务组级键
	GroupKey string
	// EchelonKey 梯队级键
	EchelonKey string
	// ModelKey 模型端点级键
	ModelKey string
}

// Caps 一次请求各级的容量声明
//
// 容量在键首次出现时生效，同一键后续传入的不同容量被忽略。
// 级别容量非正时该级不限流。
type Caps struct {
	// Group 任务组级并发上限
	Group int
	// Echelon 梯队级并发上限
	Echelon int
	// Model 模型端点级并发上限
	Model int
	// Queue 每级满载时允许等待的请求数，0 表示满载即拒绝
	Queue int
}

// levelState 一个键的级别状态
type levelState struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
	waiters  atomic.Int64
}

// Limiter 四级嵌套并发限制器
//
// 并发安全。前三级按键惰性创建，节点级在构造时固定。
type Limiter struct {
	levels sync.Map // map[string]*levelState
	// node 节点级全局额度，未启用时为 nil
	node   *levelState
	closed atomic.Bool
}

// Option 限制器配置选项
type Option func(*Limiter)

// WithNodeLimit 设置节点级全局并发上限。
// 这是整个进程所有请求共享的最外层保险，非正值时不启用。
func WithNodeLimit(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.node = &levelState{
				sem:      semaphore.NewWeighted(int64(n)),
				capacity: int64(n),
			}
		}
	}
}

// New 创建并发限制器
func New(opts ...Option) *Limiter {
	l := &Limiter{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire 按 组 → 梯队 → 模型 → 节点 的顺序申请额度
//
// 任何一级失败都会把已持有的额度逆序退回。成功返回的 Token
// 必须（且只能）Release 一次。
func (l *Limiter) Acquire(ctx context.Context, grant Grant, caps Caps) (*Token, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if grant.GroupKey == "" && grant.EchelonKey == "" && grant.ModelKey == "" {
		return nil, ErrInvalidGrant
	}

	type step struct {
		key      string
		capacity int
	}
	steps := []step{
		{grant.GroupKey, caps.Group},
		{grant.EchelonKey, caps.Echelon},
		{grant.ModelKey, caps.Model},
	}

	held := make([]*levelState, 0, 4)
	rollback := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].release()
		}
	}

	for _, s := range steps {
		if s.key == "" || s.capacity <= 0 {
			continue
		}
		ls := l.levelFor(s.key, s.capacity)
		if err := ls.acquire(ctx, caps.Queue); err != nil {
			rollback()
			return nil, err
		}
		held = append(held, ls)
	}

	if l.node != nil {
		if err := l.node.acquire(ctx, caps.Queue); err != nil {
			rollback()
			return nil, err
		}
		held = append(held, l.node)
	}

	return newToken(held), nil
}

// TryAcquire 非阻塞申请，任何一级满载立即失败
func (l *Limiter) TryAcquire(grant Grant, caps Caps) (*Token, error) {
	return l.Acquire(context.Background(), grant, Caps{
		Group:   caps.Group,
		Echelon: caps.Echelon,
		Model:   caps.Model,
		Queue:   -1, // 队列容量为负：满载即拒绝，不进入等待
	})
}

// InFlight 返回键当前在途的请求数；键未出现过时为 0
func (l *Limiter) InFlight(key string) int {
	if val, ok := l.levels.Load(key); ok {
		return int(val.(*levelState).inFlight.Load())
	}
	return 0
}

// QueueDepth 返回键当前排队等待的请求数；键未出现过时为 0
func (l *Limiter) QueueDepth(key string) int {
	if val, ok := l.levels.Load(key); ok {
		return int(val.(*levelState).waiters.Load())
	}
	return 0
}

// NodeInFlight 返回节点级在途请求数；未启用节点级时为 0
func (l *Limiter) NodeInFlight() int {
	if l.node == nil {
		return 0
	}
	return int(l.node.inFlight.Load())
}

// Close 关闭限制器，幂等。已持有的 Token 仍可正常 Release。
func (l *Limiter) Close() error {
	l.closed.Store(true)
	return nil
}

// levelFor 获取或创建键的级别状态
func (l *Limiter) levelFor(key string, capacity int) *levelState {
	if val, ok := l.levels.Load(key); ok {
		return val.(*levelState)
	}

	ls := &levelState{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
	actual, _ := l.levels.LoadOrStore(key, ls)
	return actual.(*levelState)
}

// acquire 在单个级别上申请一个额度
//
// 满载时：队列未满则阻塞等待（受 ctx 控制），已满则立即 ErrQueueFull。
func (ls *levelState) acquire(ctx context.Context, queue int) error {
	if ls.sem.TryAcquire(1) {
		ls.inFlight.Add(1)
		return nil
	}

	// 先占后查：并发突发下队列上限依然严格
	if ls.waiters.Add(1) > int64(queue) {
		ls.waiters.Add(-1)
		return ErrQueueFull
	}

	err := ls.sem.Acquire(ctx, 1)
	ls.waiters.Add(-1)
	if err != nil {
		return err
	}
	ls.inFlight.Add(1)
	return nil
}

// release 退还一个额度
func (ls *levelState) release() {
	ls.inFlight.Add(-1)
	ls.sem.Release(1)
}
