package xpool

import (
	"crypto/rand"
	"encoding/binary"
)

// selectRoundRobin 对存活成员循环推进游标
//
// 游标基于全量选择次数而非成员下标，成员死亡/复活只会
// 造成一次相位偏移，不会让轮转卡在某个成员上。
func (p *Pool) selectRoundRobin(alive []Member) Member {
	idx := (p.cursor.Add(1) - 1) % uint64(len(alive))
	return alive[idx]
}

// selectLRU 选择最久未被选中的存活成员
//
// recency 缓存的 Keys() 从最久到最近有序；
// 从未被选中的成员排在一切已选成员之前。
func (p *Pool) selectLRU(alive []Member) Member {
	p.recencyMu.Lock()
	defer p.recencyMu.Unlock()

	// 从未选中的成员优先，按声明顺序
	for _, m := range alive {
		if !p.recency.Contains(m.Ref) {
			p.recency.Add(m.Ref, struct{}{})
			return m
		}
	}

	// 都选过：按 recency 从最久到最近找第一个存活成员
	aliveSet := make(map[string]Member, len(alive))
	for _, m := range alive {
		aliveSet[m.Ref] = m
	}
	for _, ref := range p.recency.Keys() {
		if m, ok := aliveSet[ref]; ok {
			p.recency.Add(m.Ref, struct{}{})
			return m
		}
	}

	// 存活成员都不在 recency 里（缓存被换出），退化为首个存活成员
	m := alive[0]
	p.recency.Add(m.Ref, struct{}{})
	return m
}

// selectWeighted 按静态权重加权随机抽取
func (p *Pool) selectWeighted(alive []Member) Member {
	total := 0
	for _, m := range alive {
		total += m.Weight
	}
	if total <= 0 {
		return alive[0]
	}

	draw := randomFloat64() * float64(total)
	acc := 0.0
	for _, m := range alive {
		acc += float64(m.Weight)
		if draw < acc {
			return m
		}
	}
	return alive[len(alive)-1]
}

const (
	floatBits  = 53
	floatScale = 1.0 / (1 << floatBits)
)

// randomFloat64 返回 [0, 1) 内的随机数
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand 失败时退化为确定性选择
		return 0
	}
	return float64(binary.BigEndian.Uint64(buf[:])>>(64-floatBits)) * floatScale
}
