package strategy

import (
	"etf-market-maker/market"
	"etf-market-maker/order"
)

// SinglePair 每侧一张挂单的做市策略，盘口交叉时优先吃单套利。
type SinglePair struct {
	cfg Config
}

func NewSinglePair(cfg Config) *SinglePair {
	return &SinglePair{cfg: cfg}
}

func (s *SinglePair) Name() string { return string(SingleStrategy) }

func (s *SinglePair) Depth() int { return 1 }

func (s *SinglePair) Tune(cfg Config) {
	s.cfg.LotSize = cfg.LotSize
	s.cfg.ArbMaxVolume = cfg.ArbMaxVolume
}

func (s *SinglePair) Decide(snap Snapshot) Plan {
	if !quotable(snap) {
		return Plan{}
	}

	if arb := detectArbitrage(snap, s.cfg); arb != nil {
		plan := Plan{Arbitrage: arb}
		// 套利方向保持不动，另一侧挂在期货盘口上
		if arb.Side == market.Sell {
			plan.Quotes.Asks.Hold = true
			plan.Quotes.Bids = s.level(snap.Reference.Ask, snap.BidCapacity)
		} else {
			plan.Quotes.Bids.Hold = true
			plan.Quotes.Asks = s.level(snap.Reference.Bid, snap.AskCapacity)
		}
		return plan
	}

	bid, ask := Anchors(snap.Tradable, snap.Reference, s.cfg.TickSize)
	return Plan{Quotes: order.Desired{
		Bids: s.level(bid, snap.BidCapacity),
		Asks: s.level(ask, snap.AskCapacity),
	}}
}

func (s *SinglePair) level(price, capacity int64) order.Target {
	volume := min(s.cfg.LotSize, capacity)
	if volume <= 0 || price <= 0 {
		return order.Target{}
	}
	return order.Target{Levels: []order.Level{{Price: price, Volume: volume}}}
}
