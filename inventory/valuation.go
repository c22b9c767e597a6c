package inventory

// Valuation 以两倍中间价（避免半 tick）估算盯市盈亏，单位：分。
// 期货腿按已记账的对冲仓位估值。
func (l *Ledger) Valuation(etfDoubleMid, futureDoubleMid int64) (net int64, pnl int64) {
	net = l.position
	pnl = l.cash + (l.position*etfDoubleMid+l.hedge*futureDoubleMid)/2
	return
}
