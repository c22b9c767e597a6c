package strategy

import "etf-market-maker/order"

// BuildLadder 以锚点为起点向外逐 tick 铺 levelCount 档，整体按 shift 平移。
// 每档数量相同；数量为 0 时该侧不挂单。
func BuildLadder(bidAnchor, askAnchor, shift, tick int64, levelCount int, bidSize, askSize int64) (bids, asks order.Target) {
	if levelCount < 1 {
		levelCount = 1
	}
	for i := 0; i < levelCount; i++ {
		step := int64(i) * tick
		if bidSize > 0 {
			bids.Levels = append(bids.Levels, order.Level{Price: bidAnchor - step + shift, Volume: bidSize})
		}
		if askSize > 0 {
			asks.Levels = append(asks.Levels, order.Level{Price: askAnchor + step + shift, Volume: askSize})
		}
	}
	return bids, asks
}

// Ladder 多档网格策略，整体价格随持仓反向偏移以回归零库存。
type Ladder struct {
	cfg Config
}

func NewLadder(cfg Config) *Ladder {
	if cfg.LadderDepth < 1 {
		cfg.LadderDepth = 1
	}
	if cfg.SkewDivisor < 1 {
		cfg.SkewDivisor = 1
	}
	return &Ladder{cfg: cfg}
}

func (l *Ladder) Name() string { return string(LadderStrategy) }

func (l *Ladder) Depth() int { return l.cfg.LadderDepth }

func (l *Ladder) Tune(cfg Config) {
	l.cfg.LotSize = cfg.LotSize
	l.cfg.ArbMaxVolume = cfg.ArbMaxVolume
	if cfg.SkewDivisor >= 1 {
		l.cfg.SkewDivisor = cfg.SkewDivisor
	}
}

// Skew 持仓对应的价格偏移：多头下移、空头上移，按整 tick 向下取整。
func (l *Ladder) Skew(position int64) int64 {
	return -floorDiv(position, l.cfg.SkewDivisor) * l.cfg.TickSize
}

func (l *Ladder) Decide(snap Snapshot) Plan {
	if !quotable(snap) {
		return Plan{}
	}
	// 套利当轮撤掉全部网格
	if arb := detectArbitrage(snap, l.cfg); arb != nil {
		return Plan{Arbitrage: arb}
	}

	n := int64(l.cfg.LadderDepth)
	bidSize := floorDiv(min(l.cfg.LotSize, snap.BidCapacity), n)
	askSize := floorDiv(min(l.cfg.LotSize, snap.AskCapacity), n)

	bid, ask := Anchors(snap.Tradable, snap.Reference, l.cfg.TickSize)
	bids, asks := BuildLadder(bid, ask, l.Skew(snap.Position), l.cfg.TickSize, l.cfg.LadderDepth, bidSize, askSize)
	return Plan{Quotes: order.Desired{Bids: bids, Asks: asks}}
}

// floorDiv 向负无穷取整的整数除法。
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
