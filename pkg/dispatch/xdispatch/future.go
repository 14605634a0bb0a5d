package xdispatch

import "context"

// Future 异步提交的结果句柄
type Future struct {
	done chan struct{}
	resp *Response
	err  error
}

// Wait 阻塞等待结果，受 ctx 取消控制
//
// ctx 先到期时请求仍在后台执行，结果可由后续的 Wait 取回。
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done 返回完成通知通道，可用于 select 多路等待
func (f *Future) Done() <-chan struct{} {
	return f.done
}
