package inventory

import (
	"testing"

	"etf-market-maker/market"
)

func TestValuation(t *testing.T) {
	l := NewLedger(90)
	l.ApplyFill(market.Buy, 10000, 1)
	l.ApplyHedge(market.Sell, 1)
	l.ApplyHedgeFill(market.Sell, 10000, 1)
	// ETF 中间价 10100，期货中间价 10050
	net, pnl := l.Valuation(20200, 20100)
	if net != 1 || pnl != 50 {
		t.Fatalf("unexpected net=%d pnl=%d", net, pnl)
	}
}
