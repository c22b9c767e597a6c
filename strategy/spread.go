package strategy

import "etf-market-maker/market"

// Anchors 计算不会与期货盘口形成套利的报价锚点。
// 离期货中价更远的一侧保持 ETF 原价，另一侧向期货盘口收敛且至少相隔一个 tick。
// 使用 2 倍价格比较，避免中价出现半分。
func Anchors(tradable, reference market.Depth, tick int64) (bid, ask int64) {
	mid2 := reference.DoubleMid()
	if abs(2*tradable.Bid-mid2) > abs(2*tradable.Ask-mid2) {
		return tradable.Bid, max(tradable.Bid+tick, reference.Ask)
	}
	return min(tradable.Ask-tick, reference.Bid), tradable.Ask
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
