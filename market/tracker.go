package market

// Tracker 记录每个品种最近一次已知的最优价，以及单调不减的序列号游标。
// 只在单个事件处理协程中使用，不加锁。
type Tracker struct {
	best     [instrumentCount]Depth
	sequence int64
}

func NewTracker() *Tracker {
	return &Tracker{sequence: -1}
}

// Observe 应用一次行情更新，返回该更新是否过期（序列号小于已观察到的最大值）。
// 过期更新仍按字段写入非零价格，只是不推动游标。
func (t *Tracker) Observe(inst Instrument, sequence, bestAsk, bestBid int64) (stale bool) {
	if !inst.Valid() {
		return false
	}
	stale = sequence < t.sequence
	if sequence > t.sequence {
		t.sequence = sequence
	}
	t.best[inst].Update(bestBid, bestAsk)
	return stale
}

// Best 返回品种的最优价。
func (t *Tracker) Best(inst Instrument) Depth {
	if !inst.Valid() {
		return Depth{}
	}
	return t.best[inst]
}

// Sequence 当前游标，尚未收到任何更新时为 -1。
func (t *Tracker) Sequence() int64 {
	return t.sequence
}
