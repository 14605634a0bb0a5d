package xdispatch

import (
	"context"
	"time"

	"github.com/omeyang/xdispatch/pkg/dispatch/xtarget"
)

// Message 一条对话消息
type Message struct {
	// Role 消息角色（system、user、assistant）
	Role string `json:"role"`
	// Content 消息内容
	Content string `json:"content"`
}

// Request 一次逻辑请求
type Request struct {
	// TargetRef 目标引用（"group"、"group.echelon" 或池名）
	TargetRef string `json:"target_ref"`
	// System 系统提示词，可为空
	System string `json:"system,omitempty"`
	// Messages 对话消息列表
	Messages []Message `json:"messages"`
	// MaxTokens 响应 token 上限，0 表示由后端决定
	MaxTokens int `json:"max_tokens,omitempty"`
	// Metadata 随请求透传给 Invoker 的附加信息
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Usage 一次调用的 token 消耗
type Usage struct {
	// PromptTokens 输入 token 数
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens 输出 token 数
	CompletionTokens int `json:"completion_tokens"`
}

// Response 一次成功调用的结果
type Response struct {
	// RequestID 引擎分配的请求标识
	RequestID string `json:"request_id"`
	// Content 后端返回的内容
	Content string `json:"content"`
	// Provider 实际服务的提供方
	Provider string `json:"provider"`
	// Model 实际服务的模型名
	Model string `json:"model"`
	// EndpointID 实际服务的端点
	EndpointID string `json:"endpoint_id"`
	// Usage token 消耗，由 Invoker 填充
	Usage Usage `json:"usage"`
	// Attempts 总尝试次数（含成功的这一次）
	Attempts int `json:"attempts"`
	// Trail 尝试轨迹
	Trail string `json:"trail"`
	// Elapsed 从提交到成功的总耗时
	Elapsed time.Duration `json:"elapsed"`
}

// Invoker 后端调用协作方
//
// 引擎负责选目标与兜底，Invoker 负责真正把请求发给 ep 指向的
// 后端。实现必须尊重 ctx 的截止时间。
type Invoker interface {
	Invoke(ctx context.Context, ep *xtarget.ModelEndpoint, req *Request) (*Response, error)
}

// InvokerFunc 函数式 Invoker 适配器
type InvokerFunc func(ctx context.Context, ep *xtarget.ModelEndpoint, req *Request) (*Response, error)

// Invoke 实现 Invoker 接口
func (f InvokerFunc) Invoke(ctx context.Context, ep *xtarget.ModelEndpoint, req *Request) (*Response, error) {
	return f(ctx, ep, req)
}
