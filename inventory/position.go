package inventory

import "etf-market-maker/market"

// Ledger 维护 ETF 净仓位、期货对冲仓位与现金流（单位：分）。
// 仓位上限在下单前通过 Capacity 收敛，Ledger 本身只记账。
type Ledger struct {
	limit    int64
	position int64
	hedge    int64
	cash     int64
}

func NewLedger(limit int64) *Ledger {
	return &Ledger{limit: limit}
}

// Limit 返回仓位上限。
func (l *Ledger) Limit() int64 { return l.limit }

// Position 返回 ETF 净仓位（正=多，负=空）。
func (l *Ledger) Position() int64 { return l.position }

// HedgePosition 返回期货对冲仓位。
func (l *Ledger) HedgePosition() int64 { return l.hedge }

// Delta 返回 ETF 仓位与对冲仓位之和，即尚未对冲的净敞口。
func (l *Ledger) Delta() int64 { return l.position + l.hedge }

// Cash 返回累计现金流（卖出为正，买入为负）。
func (l *Ledger) Cash() int64 { return l.cash }

// ApplyFill 记录一笔 ETF 成交。
func (l *Ledger) ApplyFill(side market.Side, price, volume int64) {
	if side == market.Buy {
		l.position += volume
		l.cash -= price * volume
		return
	}
	l.position -= volume
	l.cash += price * volume
}

// ApplyHedge 在对冲单发出时乐观记账。
func (l *Ledger) ApplyHedge(side market.Side, volume int64) {
	if side == market.Buy {
		l.hedge += volume
		return
	}
	l.hedge -= volume
}

// ApplyHedgeFill 对冲成交回报只影响现金流；对冲仓位已在发单时记账。
func (l *Ledger) ApplyHedgeFill(side market.Side, price, volume int64) {
	if side == market.Buy {
		l.cash -= price * volume
		return
	}
	l.cash += price * volume
}

// Capacity 返回某方向还能新增的数量：上限减去当前仓位与同向在途挂单。
// 结果不小于 0。
func (l *Ledger) Capacity(side market.Side, outstanding int64) int64 {
	var c int64
	if side == market.Buy {
		c = l.limit - l.position - outstanding
	} else {
		c = l.limit + l.position - outstanding
	}
	if c < 0 {
		return 0
	}
	return c
}

// Clip 把下单量收敛到剩余容量以内。
func (l *Ledger) Clip(side market.Side, volume, outstanding int64) int64 {
	return min(volume, l.Capacity(side, outstanding))
}
