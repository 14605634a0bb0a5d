package xtarget

import "time"

// 各项配置的默认值
const (
	// DefaultTimeout 梯队后端调用默认超时
	DefaultTimeout = 30 * time.Second

	// DefaultFailureThreshold 熔断器默认连续失败阈值
	DefaultFailureThreshold = 5

	// DefaultRecoveryTime 熔断器默认恢复等待时间
	DefaultRecoveryTime = 30 * time.Second

	// DefaultHalfOpenRequests 半开状态默认允许的并发探测数
	DefaultHalfOpenRequests = 1

	// DefaultHealthCheckInterval 轮询池默认健康检查间隔
	DefaultHealthCheckInterval = 30 * time.Second
)

// ModelEndpoint 一个具体的后端模型端点
//
// 加载后不可变。ClientRef 是外部后端客户端的句柄，
// 引擎不解释其内容，原样传递给 Invoker 协作方。
type ModelEndpoint struct {
	// ID 端点唯一标识
	ID string `koanf:"id"`
	// Provider 后端提供方（openai、anthropic 等）
	Provider string `koanf:"provider"`
	// ModelName 提供方侧的模型名
	ModelName string `koanf:"model"`
	// Weight 加权轮转时的静态权重；非正值不计入所属梯队的权重
	Weight int `koanf:"weight"`
	// ClientRef 外部后端客户端句柄
	ClientRef string `koanf:"client_ref"`
}

// Echelon 任务组内的一个优先级梯队
//
// Priority 数值越小越先被尝试；同组内 Priority 全序。
// 梯队持有自己的并发/速率/超时/重试预算。
type Echelon struct {
	// Name 梯队名，组内唯一
	Name string `koanf:"name"`
	// Models 端点 ID 列表，有序
	Models []string `koanf:"models"`
	// Priority 优先级，数值越小越先尝试
	Priority int `koanf:"priority"`
	// ConcurrencyLimit 并发上限
	ConcurrencyLimit int `koanf:"concurrency_limit"`
	// RPMLimit 每分钟请求数上限，0 表示不限
	RPMLimit int `koanf:"rpm_limit"`
	// QueueSize 并发满载时允许排队等待的请求数，0 表示满载即拒绝
	QueueSize int `koanf:"queue_size"`
	// Timeout 单次后端调用超时
	Timeout time.Duration `koanf:"timeout"`
	// MaxRetries 该梯队计入全局预算的重试次数
	MaxRetries int `koanf:"max_retries"`

	// group 所属任务组名，Registry 构建时回填
	group string
}

// GroupName 返回所属任务组名
func (e *Echelon) GroupName() string {
	return e.group
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	// FailureThreshold 连续失败多少次后熔断
	FailureThreshold int `koanf:"failure_threshold"`
	// RecoveryTime Open 状态持续多久后进入 HalfOpen
	RecoveryTime time.Duration `koanf:"recovery_time"`
	// HalfOpenRequests HalfOpen 状态允许的并发探测数
	HalfOpenRequests int `koanf:"half_open_requests"`
}

// withDefaults 返回填充了默认值的副本
func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.RecoveryTime <= 0 {
		c.RecoveryTime = DefaultRecoveryTime
	}
	if c.HalfOpenRequests <= 0 {
		c.HalfOpenRequests = DefaultHalfOpenRequests
	}
	return c
}

// TaskGroup 有序梯队集合，共享降级策略与熔断配置
type TaskGroup struct {
	// Name 任务组名，全局唯一
	Name string `koanf:"name"`
	// Echelons 梯队列表，NewRegistry 构建后按 Priority 升序排列
	Echelons []Echelon `koanf:"echelons"`
	// FallbackStrategy 降级策略
	FallbackStrategy FallbackStrategy `koanf:"fallback_strategy"`
	// FallbackGroups 本组耗尽后依次尝试的任务组
	FallbackGroups []string `koanf:"fallback_groups"`
	// CircuitBreaker 组内所有目标共用的熔断配置
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// DefaultEchelon 返回组内优先级最高（数值最小）的梯队。
// NewRegistry 保证每个组至少有一个梯队。
func (g *TaskGroup) DefaultEchelon() *Echelon {
	return &g.Echelons[0]
}

// EchelonByName 按名称查找梯队
func (g *TaskGroup) EchelonByName(name string) (*Echelon, bool) {
	for i := range g.Echelons {
		if g.Echelons[i].Name == name {
			return &g.Echelons[i], true
		}
	}
	return nil, false
}

// PollingPool 跨任务组/梯队的负载均衡视图
//
// 池拥有独立的轮转游标与健康检查节奏，
// 与成员所属任务组的降级顺序互不干扰。
type PollingPool struct {
	// Name 池名，全局唯一，且不得与任务组重名
	Name string `koanf:"name"`
	// Members 成员引用列表（"group" 或 "group.echelon"）
	Members []string `koanf:"members"`
	// RotationStrategy 成员轮转策略
	RotationStrategy RotationStrategy `koanf:"rotation_strategy"`
	// HealthCheckInterval 后台健康检查间隔
	HealthCheckInterval time.Duration `koanf:"health_check_interval"`
	// FailureThreshold 池视角的熔断阈值（0 时沿用成员所属组的配置）
	FailureThreshold int `koanf:"failure_threshold"`
	// RecoveryTime 池视角的熔断恢复时间（0 时沿用成员所属组的配置）
	RecoveryTime time.Duration `koanf:"recovery_time"`
}
