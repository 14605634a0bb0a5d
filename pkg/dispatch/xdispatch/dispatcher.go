package xdispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/xdispatch/pkg/dispatch/xfallback"
	"github.com/omeyang/xdispatch/pkg/dispatch/xpool"
	"github.com/omeyang/xdispatch/pkg/dispatch/xtarget"
	"github.com/omeyang/xdispatch/pkg/observability/xevent"
	"github.com/omeyang/xdispatch/pkg/observability/xlog"
	"github.com/omeyang/xdispatch/pkg/resilience/xadmit"
	"github.com/omeyang/xdispatch/pkg/resilience/xcircuit"
	"github.com/omeyang/xdispatch/pkg/resilience/xconcurrency"
	"github.com/omeyang/xdispatch/pkg/util/xid"
)

// Dispatcher 请求调度器
//
// 并发安全。Start 启动轮询池的后台健康循环，Close 停止一切
// 后台活动并关闭持有的组件，二者都幂等。
type Dispatcher struct {
	reg     *xtarget.Registry
	invoker Invoker
	orch    *xfallback.Orchestrator

	admitter *xadmit.Limiter
	conc     *xconcurrency.Limiter
	board    *xcircuit.Board
	pools    map[string]*xpool.Pool

	ids     *xid.Generator
	logger  xlog.Logger
	sink    xevent.Sink
	metrics *Metrics

	backoff     Backoff
	backoffBase time.Duration

	stats     counters
	remaining sync.Map // 目标键 -> 最近一次速率准入的剩余配额
	started   atomic.Bool
	closed    atomic.Bool
}

// New 创建调度器
func New(reg *xtarget.Registry, invoker Invoker, opts ...Option) (*Dispatcher, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if invoker == nil {
		return nil, ErrNilInvoker
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	orch, err := xfallback.New(reg)
	if err != nil {
		return nil, err
	}

	admitter := o.admitter
	if admitter == nil {
		admitter, err = xadmit.New(xadmit.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
	}

	ids := o.ids
	if ids == nil {
		ids = xid.NewGenerator()
	}

	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		reg:         reg,
		invoker:     invoker,
		orch:        orch,
		admitter:    admitter,
		conc:        xconcurrency.New(xconcurrency.WithNodeLimit(o.nodeLimit)),
		ids:         ids,
		logger:      o.logger,
		sink:        o.sink,
		metrics:     metrics,
		backoff:     o.backoff,
		backoffBase: o.backoffBase,
		pools:       make(map[string]*xpool.Pool),
	}

	// 熔断状态变化上报事件
	d.board = xcircuit.NewBoard(xcircuit.WithOnStateChange(d.onCircuitChange))

	// 每个配置的轮询池一个实例，存活判定委托熔断面板
	gate := xpool.GateFunc(d.memberAlive)
	for _, name := range reg.PoolNames() {
		cfg, _ := reg.Pool(name)
		d.preparePoolBreakers(cfg)
		p, err := xpool.New(cfg, reg, gate, xpool.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		d.pools[name] = p
	}

	return d, nil
}

// memberAlive 判定池成员是否存活
//
// 熔断器按端点键创建，成员梯队下任一端点未熔断即存活。
// 读取 State 同时推动超过恢复时间的 Open 熔断器进入 HalfOpen。
func (d *Dispatcher) memberAlive(key string) bool {
	target, err := d.reg.ResolveMember(key)
	if err != nil {
		return false
	}
	for _, ep := range d.reg.EndpointsOf(target.Echelon) {
		epKey := xtarget.EndpointKey(target.Group.Name, target.Echelon.Name, ep.ID)
		if d.board.State(epKey) != xcircuit.StateOpen {
			return true
		}
	}
	return false
}

// preparePoolBreakers 让池级熔断配置对成员端点生效
//
// 熔断器配置在键首次出现时冻结，池声明了自己的阈值或恢复时间
// 时需要在构造期预创建；未声明的字段沿用成员所属组的配置。
func (d *Dispatcher) preparePoolBreakers(pool *xtarget.PollingPool) {
	if pool.FailureThreshold <= 0 && pool.RecoveryTime <= 0 {
		return
	}
	for _, ref := range pool.Members {
		target, err := d.reg.ResolveMember(ref)
		if err != nil {
			continue
		}
		cfg := xcircuit.Config{
			FailureThreshold: pool.FailureThreshold,
			RecoveryTime:     pool.RecoveryTime,
			HalfOpenRequests: target.Group.CircuitBreaker.HalfOpenRequests,
		}
		if cfg.FailureThreshold <= 0 {
			cfg.FailureThreshold = target.Group.CircuitBreaker.FailureThreshold
		}
		if cfg.RecoveryTime <= 0 {
			cfg.RecoveryTime = target.Group.CircuitBreaker.RecoveryTime
		}
		for _, ep := range d.reg.EndpointsOf(target.Echelon) {
			d.board.Prepare(xtarget.EndpointKey(target.Group.Name, target.Echelon.Name, ep.ID), cfg)
		}
	}
}

// Start 启动轮询池的后台健康循环，幂等
func (d *Dispatcher) Start() {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	for _, p := range d.pools {
		p.Run()
	}
}

// Close 停止后台活动并关闭持有的组件，幂等
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	for _, p := range d.pools {
		errs = append(errs, p.Close())
	}
	errs = append(errs,
		d.admitter.Close(context.Background()),
		d.conc.Close(),
	)
	return errors.Join(errs...)
}

// Stats 返回运行统计快照
func (d *Dispatcher) Stats() Stats {
	return d.stats.snapshot()
}

// Board 返回熔断面板，供诊断读取状态
func (d *Dispatcher) Board() *xcircuit.Board {
	return d.board
}

// TargetStats 返回单个梯队目标的运行时视图
//
// ref 必须解析为梯队目标（"group" 或 "group.echelon"），池引用不支持。
func (d *Dispatcher) TargetStats(ref string) (TargetStats, error) {
	target, err := d.reg.ResolveMember(ref)
	if err != nil {
		return TargetStats{}, err
	}
	key := target.Key()

	ts := TargetStats{
		CircuitState:    xcircuit.StateClosed,
		InFlight:        int64(d.conc.InFlight(key)),
		QueueDepth:      int64(d.conc.QueueDepth(key)),
		RemainingTokens: -1,
	}
	if v, ok := d.remaining.Load(key); ok {
		ts.RemainingTokens = v.(int)
	}

	// 端点熔断器取最差状态，失败数求和
	for _, ep := range d.reg.EndpointsOf(target.Echelon) {
		epKey := xtarget.EndpointKey(target.Group.Name, target.Echelon.Name, ep.ID)
		if st := d.board.State(epKey); st > ts.CircuitState {
			ts.CircuitState = st
		}
		ts.Failures += d.board.Counts(epKey).TotalFailures
	}
	return ts, nil
}

// Submit 同步提交一次逻辑请求
//
// 所有尝试共享 ctx 的截止时间。返回 nil error 时 Response 非 nil。
func (d *Dispatcher) Submit(ctx context.Context, req *Request) (*Response, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if req == nil {
		return nil, ErrNilRequest
	}

	requestID := d.ids.NewString(ctx)
	start := time.Now()

	d.stats.submitted.Add(1)
	d.stats.inFlight.Add(1)
	defer d.stats.inFlight.Add(-1)

	resp, group, err := d.run(ctx, requestID, req)
	elapsed := time.Since(start)

	if err != nil {
		d.stats.failed.Add(1)
		d.metrics.RecordRequest(ctx, group, false, attemptsOf(err), elapsed)
		return nil, err
	}

	resp.RequestID = requestID
	resp.Elapsed = elapsed
	d.stats.succeeded.Add(1)
	if resp.Attempts > 1 {
		d.stats.fallbacks.Add(uint64(resp.Attempts - 1))
	}
	d.metrics.RecordRequest(ctx, group, true, resp.Attempts, elapsed)
	return resp, nil
}

// SubmitAsync 异步提交，立即返回 Future
func (d *Dispatcher) SubmitAsync(ctx context.Context, req *Request) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.resp, f.err = d.Submit(ctx, req)
	}()
	return f
}

// run 执行降级尝试循环，返回成功响应与所属任务组名
func (d *Dispatcher) run(ctx context.Context, requestID string, req *Request) (*Response, string, error) {
	initial, err := d.resolveInitial(ctx, req.TargetRef)
	if err != nil {
		return nil, "", err
	}
	group := initial.Group.Name

	visited := xtarget.NewVisited()
	cur, ok := d.orch.First(initial, visited)
	if !ok {
		return nil, group, &ExhaustedError{
			RequestID: requestID,
			Trail:     visited.String(),
			LastErr:   fmt.Errorf("no selectable endpoint under %q", req.TargetRef),
		}
	}

	// 预算是硬上限；实际终止由编排器的未访问判定决定
	budget := d.reg.AttemptBudget(group)
	if budget < 1 {
		budget = 1
	}

	var (
		resp    *Response
		lastErr error
	)

	err = retry.New(d.retryOptions(ctx, budget)...).Do(func() error {
		visited.Add(cur.Visit())

		r, aerr := d.attempt(ctx, requestID, cur, req, visited.Len())
		if aerr == nil {
			resp = r
			return nil
		}
		lastErr = aerr

		if ctx.Err() != nil {
			return retry.Unrecoverable(aerr)
		}
		next, ok := d.orch.Next(cur, visited)
		if !ok {
			return retry.Unrecoverable(aerr)
		}
		cur = next
		return aerr
	})
	if err == nil {
		resp.Attempts = visited.Len()
		resp.Trail = visited.String()
		return resp, group, nil
	}

	if lastErr == nil {
		lastErr = err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		// 共享截止时间到期：以 context 错误为主因，保留轨迹
		return nil, group, fmt.Errorf("xdispatch: request %s aborted after %d attempts (%s): %w",
			requestID, visited.Len(), visited.String(), errors.Join(ctxErr, lastErr))
	}
	return nil, group, &ExhaustedError{
		RequestID: requestID,
		Attempts:  visited.Len(),
		Trail:     visited.String(),
		LastErr:   lastErr,
	}
}

// retryOptions 组装尝试循环的 retry-go 参数
func (d *Dispatcher) retryOptions(ctx context.Context, budget int) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(budget)), //nolint:gosec // 预算来自配置校验，为小正数
		retry.LastErrorOnly(true),
	}
	switch d.backoff {
	case BackoffFixed:
		opts = append(opts, retry.Delay(d.backoffBase), retry.DelayType(retry.FixedDelay))
	case BackoffExponential:
		opts = append(opts, retry.Delay(d.backoffBase), retry.DelayType(retry.BackOffDelay))
	default:
		opts = append(opts, retry.Delay(0), retry.DelayType(retry.FixedDelay))
	}
	return opts
}

// resolveInitial 解析请求的初始目标；池引用先做成员选择
func (d *Dispatcher) resolveInitial(ctx context.Context, ref string) (xtarget.Target, error) {
	res, err := d.reg.Resolve(ref)
	if err != nil {
		return xtarget.Target{}, err
	}
	if res.Pool == nil {
		return res.Target, nil
	}

	p, ok := d.pools[res.Pool.Name]
	if !ok {
		return xtarget.Target{}, fmt.Errorf("%w: pool %q not running", xtarget.ErrUnknownTarget, res.Pool.Name)
	}
	member, ok := p.Select(ctx)
	if !ok {
		return xtarget.Target{}, fmt.Errorf("xdispatch: pool %q has no healthy member: %w", res.Pool.Name, ErrExhausted)
	}
	return member.Target, nil
}

// attempt 对单个目标执行一次完整的尝试
//
// 准入顺序：速率 → 并发 → 熔断。任何一步拒绝都不触达后端。
func (d *Dispatcher) attempt(ctx context.Context, requestID string, target xtarget.Target, req *Request, attemptNo int) (*Response, error) {
	d.stats.attempts.Add(1)

	e := target.Echelon
	key := target.Key()
	endpointKey := target.EndpointTargetKey()

	d.emit(ctx, xevent.Event{
		Type:      xevent.TypeAttemptStarted,
		RequestID: requestID,
		Target:    key,
		Endpoint:  endpointID(target),
		Attempt:   attemptNo,
	})

	// 速率准入
	if e.RPMLimit > 0 {
		dec, err := d.admitter.Admit(ctx, key, xadmit.PerMinute(e.RPMLimit))
		if err != nil {
			return nil, d.failAttempt(ctx, requestID, target, attemptNo, err)
		}
		d.remaining.Store(key, dec.Remaining)
		if !dec.Allowed {
			d.stats.throttled.Add(1)
			d.emit(ctx, xevent.Event{
				Type:      xevent.TypeThrottled,
				RequestID: requestID,
				Target:    key,
				Attempt:   attemptNo,
			})
			return nil, d.failAttempt(ctx, requestID, target, attemptNo,
				&ThrottledError{Key: key, RetryAfter: dec.RetryAfter})
		}
	}

	// 并发额度
	token, err := d.conc.Acquire(ctx, xconcurrency.Grant{
		GroupKey:   target.Group.Name,
		EchelonKey: key,
		ModelKey:   endpointKey,
	}, xconcurrency.Caps{
		Echelon: e.ConcurrencyLimit,
		Queue:   e.QueueSize,
	})
	if err != nil {
		if errors.Is(err, xconcurrency.ErrQueueFull) {
			d.stats.queueRejected.Add(1)
			err = &QueueFullError{Key: key}
		}
		return nil, d.failAttempt(ctx, requestID, target, attemptNo, err)
	}
	defer func() { _ = token.Release() }()

	// 熔断放行
	done, err := d.board.Acquire(endpointKey, xcircuit.Config{
		FailureThreshold: target.Group.CircuitBreaker.FailureThreshold,
		RecoveryTime:     target.Group.CircuitBreaker.RecoveryTime,
		HalfOpenRequests: target.Group.CircuitBreaker.HalfOpenRequests,
	})
	if err != nil {
		d.stats.circuitRejected.Add(1)
		return nil, d.failAttempt(ctx, requestID, target, attemptNo, err)
	}

	// 后端调用，梯队级超时叠加在共享截止时间之内
	start := time.Now()
	attemptCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	resp, invokeErr := d.invoker.Invoke(attemptCtx, target.Endpoint, req)
	cancel()
	done(invokeErr == nil)

	if invokeErr != nil {
		// 梯队级超时不等于共享截止时间到期，单独标记
		timeout := errors.Is(invokeErr, context.DeadlineExceeded) && ctx.Err() == nil
		return nil, d.failAttempt(ctx, requestID, target, attemptNo,
			&BackendError{Key: endpointKey, Timeout: timeout, Err: invokeErr})
	}

	if resp == nil {
		resp = &Response{}
	}
	resp.Provider = target.Endpoint.Provider
	resp.Model = target.Endpoint.ModelName
	resp.EndpointID = target.Endpoint.ID

	d.emit(ctx, xevent.Event{
		Type:      xevent.TypeAttemptSucceeded,
		RequestID: requestID,
		Target:    key,
		Endpoint:  target.Endpoint.ID,
		Attempt:   attemptNo,
		Elapsed:   time.Since(start),
	})
	return resp, nil
}

// failAttempt 统一的尝试失败出口：记日志、发事件、透传错误
func (d *Dispatcher) failAttempt(ctx context.Context, requestID string, target xtarget.Target, attemptNo int, err error) error {
	d.logger.Debug(ctx, "attempt failed",
		slog.String("request_id", requestID),
		slog.String("target", target.EndpointTargetKey()),
		slog.Int("attempt", attemptNo),
		slog.Any("error", err),
	)
	d.emit(ctx, xevent.Event{
		Type:      xevent.TypeAttemptFailed,
		RequestID: requestID,
		Target:    target.Key(),
		Endpoint:  endpointID(target),
		Attempt:   attemptNo,
		Err:       err,
	})
	return err
}

// onCircuitChange 熔断状态变化上报
func (d *Dispatcher) onCircuitChange(key string, from, to xcircuit.State) {
	ctx := context.Background()
	d.logger.Warn(ctx, "circuit state changed",
		slog.String("target", key),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	switch to {
	case xcircuit.StateOpen:
		d.emit(ctx, xevent.Event{Type: xevent.TypeCircuitOpened, Target: key})
	case xcircuit.StateClosed:
		d.emit(ctx, xevent.Event{Type: xevent.TypeCircuitClosed, Target: key})
	}
}

// emit 发送事件
func (d *Dispatcher) emit(ctx context.Context, ev xevent.Event) {
	d.sink.Emit(ctx, ev)
}

// endpointID 返回目标端点 ID，未选中端点时为空
func endpointID(t xtarget.Target) string {
	if t.Endpoint == nil {
		return ""
	}
	return t.Endpoint.ID
}

// attemptsOf 从终态错误里恢复尝试次数，用于指标
func attemptsOf(err error) int {
	var ee *ExhaustedError
	if errors.As(err, &ee) {
		return ee.Attempts
	}
	return 0
}
