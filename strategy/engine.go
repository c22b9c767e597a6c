package strategy

import (
	"etf-market-maker/market"
	"etf-market-maker/order"
)

// Snapshot 一次报价决策所需的全部输入。
// Tradable 与两侧数量取自触发本轮决策的 ETF 行情事件；Reference 取自行情跟踪器。
type Snapshot struct {
	Tradable  market.Depth
	BidVolume int64 // ETF 买一量
	AskVolume int64 // ETF 卖一量
	Reference market.Depth
	Position  int64
	// 扣除在途 FAK 后的剩余可下单量，已有挂单由 Manager 下单时再次收敛。
	BidCapacity int64
	AskCapacity int64
}

// Arbitrage 立即吃单意图（FILL_AND_KILL）。
type Arbitrage struct {
	Side   market.Side
	Price  int64
	Volume int64
}

// Plan 策略输出：可选的套利单与期望挂单。
type Plan struct {
	Arbitrage *Arbitrage
	Quotes    order.Desired
}

// Withdrawn 是否为全部撤回的空计划。
func (p Plan) Withdrawn() bool {
	q := p.Quotes
	return p.Arbitrage == nil && !q.Bids.Hold && !q.Asks.Hold && len(q.Bids.Levels) == 0 && len(q.Asks.Levels) == 0
}

// Strategy 根据快照生成报价计划。实现必须是纯函数式的，不发单。
type Strategy interface {
	Name() string
	// Depth 单方向最多同时存在的挂单数。
	Depth() int
	Decide(s Snapshot) Plan
	// Tune 热更新可调参数（手数、偏移系数、套利上限），结构性参数保持不变。
	Tune(cfg Config)
}

// Config 策略参数，价格单位与行情一致（分）。
type Config struct {
	TickSize     int64
	LotSize      int64
	LadderDepth  int
	SkewDivisor  int64
	ArbMaxVolume int64 // 0 表示不限
}

// quotable 两个品种的盘口都已知时才报价。
func quotable(s Snapshot) bool {
	return s.Tradable.Valid() && s.Reference.Valid()
}

// detectArbitrage ETF 与期货盘口交叉超过一个 tick 时返回吃单意图。
func detectArbitrage(s Snapshot, cfg Config) *Arbitrage {
	capVolume := func(v int64) int64 {
		if cfg.ArbMaxVolume > 0 {
			v = min(v, cfg.ArbMaxVolume)
		}
		return v
	}
	if s.Tradable.Bid-cfg.TickSize > s.Reference.Ask && s.AskCapacity > 0 {
		if v := capVolume(min(s.BidVolume, s.AskCapacity)); v > 0 {
			return &Arbitrage{Side: market.Sell, Price: s.Tradable.Bid, Volume: v}
		}
	}
	if s.Tradable.Ask+cfg.TickSize < s.Reference.Bid && s.BidCapacity > 0 {
		if v := capVolume(min(s.AskVolume, s.BidCapacity)); v > 0 {
			return &Arbitrage{Side: market.Buy, Price: s.Tradable.Ask, Volume: v}
		}
	}
	return nil
}
