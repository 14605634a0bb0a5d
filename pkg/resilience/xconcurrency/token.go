package xconcurrency

import "sync/atomic"

// Token 一次获准执行的凭证
//
// 持有按获取顺序排列的各级额度，Release 按逆序退还。
// Release 恰好一次：CAS 保证并发重复调用也只有一次生效。
type Token struct {
	held     []*levelState
	released atomic.Bool
}

// newToken 创建凭证
func newToken(held []*levelState) *Token {
	return &Token{held: held}
}

// Release 逆序退还所有级别的额度
//
// 第二次及后续调用返回 ErrTokenReleased，不产生任何副作用。
func (t *Token) Release() error {
	if !t.released.CompareAndSwap(false, true) {
		return ErrTokenReleased
	}
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].release()
	}
	return nil
}

// Released 返回凭证是否已释放
func (t *Token) Released() bool {
	return t.released.Load()
}

// Levels 返回凭证持有的级别数
func (t *Token) Levels() int {
	return len(t.held)
}
