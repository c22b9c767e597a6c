package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etf-market-maker/market"
	"etf-market-maker/sim"
)

func depthBook(bid, ask, volume int64) market.Book {
	var b market.Book
	b.BidPrices[0], b.AskPrices[0] = bid, ask
	b.BidVolumes[0], b.AskVolumes[0] = volume, volume
	return b
}

func newTestTrader(t *testing.T, mutate func(*Config)) (*Trader, *sim.Venue) {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	v := sim.NewVenue()
	tr, err := NewTrader(cfg, Components{Gateway: v})
	require.NoError(t, err)
	return tr, v
}

func TestNewTraderValidation(t *testing.T) {
	v := sim.NewVenue()
	_, err := NewTrader(DefaultConfig(), Components{})
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.TickSize = 0
	_, err = NewTrader(cfg, Components{Gateway: v})
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Strategy = "martingale"
	_, err = NewTrader(cfg, Components{Gateway: v})
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.HedgePolicy = "never"
	_, err = NewTrader(cfg, Components{Gateway: v})
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxAsk = cfg.MinBid
	_, err = NewTrader(cfg, Components{Gateway: v})
	assert.Error(t, err)
}

func TestTraderQuotesBothSides(t *testing.T) {
	tr, v := newTestTrader(t, nil)
	tr.OnOrderBookUpdate(market.Tradable, 1, depthBook(10000, 10100, 50))
	assert.Empty(t, v.Calls(), "reference book unknown")

	tr.OnOrderBookUpdate(market.Reference, 2, depthBook(10000, 10100, 50))
	assert.Empty(t, v.Calls(), "reference updates only refresh the tracker")

	tr.OnOrderBookUpdate(market.Tradable, 3, depthBook(10000, 10100, 50))
	assert.Equal(t, []sim.Call{
		{Kind: sim.CallInsert, ID: 1, Side: market.Buy, Price: 10000, Volume: 5, Lifespan: market.GoodForDay},
		{Kind: sim.CallInsert, ID: 2, Side: market.Sell, Price: 10100, Volume: 5, Lifespan: market.GoodForDay},
	}, v.Calls())

	// 目标不变时不重复下单
	tr.OnOrderBookUpdate(market.Tradable, 4, depthBook(10000, 10100, 50))
	assert.Len(t, v.Calls(), 2)
	assert.Equal(t, 1, tr.Stats().LiveBids)
}

func TestTraderSellArbitrage(t *testing.T) {
	tr, v := newTestTrader(t, nil)
	tr.OnOrderBookUpdate(market.Reference, 1, depthBook(10000, 10100, 50))
	tr.OnOrderBookUpdate(market.Tradable, 2, depthBook(10300, 10400, 120))

	calls := v.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, sim.Call{Kind: sim.CallInsert, ID: 1, Side: market.Sell, Price: 10300, Volume: 90, Lifespan: market.FillAndKill}, calls[0])
	assert.Equal(t, sim.Call{Kind: sim.CallInsert, ID: 2, Side: market.Buy, Price: 10100, Volume: 5, Lifespan: market.GoodForDay}, calls[1])
	assert.Equal(t, int64(1), tr.Stats().Arbitrages)
}

func TestTraderFillThenTerminalStatus(t *testing.T) {
	tr, v := newTestTrader(t, nil)
	tr.OnOrderBookUpdate(market.Reference, 1, depthBook(10000, 10100, 50))
	tr.OnOrderBookUpdate(market.Tradable, 2, depthBook(10000, 10100, 50))
	v.ClearCalls()

	tr.OnOrderFilled(1, 10000, 5)
	assert.Equal(t, int64(5), tr.Ledger().Position())
	assert.Equal(t, []sim.Call{{Kind: sim.CallHedge, ID: 3, Side: market.Sell, Price: 100, Volume: 5}}, v.Calls())
	assert.Equal(t, int64(-5), tr.Ledger().HedgePosition())

	tr.OnOrderStatus(1, 5, 0, 2)
	for _, o := range tr.Orders() {
		assert.NotEqual(t, int64(1), o.ID)
	}
	assert.Len(t, tr.Orders(), 1)

	// 重复的终态回报不改变任何状态
	tr.OnOrderStatus(1, 5, 0, 0)
	assert.Len(t, tr.Orders(), 1)
	assert.Equal(t, int64(5), tr.Ledger().Position())

	tr.OnHedgeFilled(3, 9900, 5)
	stats := tr.Stats()
	assert.Equal(t, int64(1), stats.Fills)
	assert.Equal(t, int64(1), stats.Hedges)
	assert.Equal(t, int64(1), stats.HedgeFills)
	assert.Equal(t, int64(2), stats.Fees)
	assert.Equal(t, int64(-10000*5+9900*5), stats.Cash)
	// 两腿按相同中间价盯市，盈亏即现金
	assert.Equal(t, stats.Cash, stats.PnL)
	assert.Equal(t, int64(5), stats.FillStats.HedgeSold)
}

func TestTraderUnknownFill(t *testing.T) {
	tr, v := newTestTrader(t, nil)
	tr.OnOrderFilled(42, 10000, 5)
	assert.Equal(t, int64(0), tr.Ledger().Position())
	assert.Equal(t, int64(1), tr.Stats().UnknownFills)
	assert.Empty(t, v.Calls())
}

func TestTraderReplacementWaitsForCancel(t *testing.T) {
	tr, v := newTestTrader(t, nil)
	tr.OnOrderBookUpdate(market.Reference, 1, depthBook(10000, 10100, 50))
	tr.OnOrderBookUpdate(market.Tradable, 2, depthBook(10000, 10100, 50))
	v.ClearCalls()

	tr.OnOrderBookUpdate(market.Tradable, 3, depthBook(9800, 10000, 50))
	assert.Equal(t, []sim.Call{{Kind: sim.CallCancel, ID: 1}}, v.Calls())

	tr.OnOrderBookUpdate(market.Tradable, 4, depthBook(9800, 10000, 50))
	assert.Len(t, v.Calls(), 1, "cancel is sent once and the slot stays occupied")

	tr.OnOrderStatus(1, 0, 0, 0)
	tr.OnOrderBookUpdate(market.Tradable, 5, depthBook(9800, 10000, 50))
	calls := v.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, sim.Call{Kind: sim.CallInsert, ID: 3, Side: market.Buy, Price: 9800, Volume: 5, Lifespan: market.GoodForDay}, calls[1])
}

func TestTraderErrors(t *testing.T) {
	tr, v := newTestTrader(t, nil)
	tr.OnOrderBookUpdate(market.Reference, 1, depthBook(10000, 10100, 50))
	tr.OnOrderBookUpdate(market.Tradable, 2, depthBook(10000, 10100, 50))
	tr.OnOrderFilled(1, 10000, 2)

	tr.OnError(2, "bad order")
	assert.Len(t, tr.Orders(), 1)

	hedges := v.CallsOf(sim.CallHedge)
	require.Len(t, hedges, 1)
	tr.OnError(hedges[0].ID, "hedge rejected")
	assert.Equal(t, int64(0), tr.Ledger().HedgePosition())

	tr.OnError(0, "venue busy")
	tr.OnError(77, "unknown")
	assert.Equal(t, int64(4), tr.Stats().Errors)
	assert.Len(t, tr.Orders(), 1)
}

func TestTraderLadderDebouncedHedge(t *testing.T) {
	tr, v := newTestTrader(t, func(c *Config) {
		c.Strategy = "ladder"
		c.LotSize = 15
	})
	tr.OnOrderBookUpdate(market.Reference, 1, depthBook(10000, 10100, 50))
	tr.OnOrderBookUpdate(market.Tradable, 2, depthBook(10000, 10100, 50))
	require.Len(t, v.CallsOf(sim.CallInsert), 6)

	tr.OnOrderFilled(4, 10100, 5)
	assert.Empty(t, v.CallsOf(sim.CallHedge), "debounced policy waits for trade ticks")

	// 期货买一高出 ETF 卖一两个 tick，净多头卖出期货
	tr.OnTradeTicks(market.Reference, 3, depthBook(10300, 10400, 10))
	assert.Empty(t, v.CallsOf(sim.CallHedge), "short delta is not hedged by a long signal")

	tr.OnOrderFilled(1, 10000, 5)
	tr.OnOrderFilled(2, 9900, 5)
	tr.OnTradeTicks(market.Reference, 4, depthBook(10300, 10400, 10))
	hedges := v.CallsOf(sim.CallHedge)
	require.Len(t, hedges, 1)
	assert.Equal(t, market.Sell, hedges[0].Side)
	assert.Equal(t, int64(5), hedges[0].Volume)
	assert.Equal(t, int64(0), tr.Ledger().Delta())
}

func TestTraderShutdownAndTune(t *testing.T) {
	tr, v := newTestTrader(t, nil)
	tr.OnOrderBookUpdate(market.Reference, 1, depthBook(10000, 10100, 50))
	tr.OnOrderBookUpdate(market.Tradable, 2, depthBook(10000, 10100, 50))

	tr.Tune(Config{LotSize: 3, TickSize: 1})
	tr.OnOrderBookUpdate(market.Tradable, 3, depthBook(9800, 10000, 50))
	tr.OnOrderStatus(1, 0, 0, 0)
	tr.OnOrderBookUpdate(market.Tradable, 4, depthBook(9800, 10000, 50))
	inserts := v.CallsOf(sim.CallInsert)
	assert.Equal(t, int64(3), inserts[len(inserts)-1].Volume)

	v.ClearCalls()
	tr.Shutdown()
	assert.Len(t, v.CallsOf(sim.CallCancel), 2)
	tr.Shutdown()
	assert.Len(t, v.CallsOf(sim.CallCancel), 2)
}

func TestTraderStaleUpdate(t *testing.T) {
	tr, _ := newTestTrader(t, nil)
	tr.OnOrderBookUpdate(market.Reference, 10, depthBook(10000, 10100, 50))
	tr.OnOrderBookUpdate(market.Reference, 5, depthBook(9900, 0, 50))
	assert.Equal(t, int64(1), tr.Stats().StaleUpdates)
	assert.Equal(t, market.Depth{Bid: 9900, Ask: 10100}, tr.tracker.Best(market.Reference))

	tr.OnOrderBookUpdate(market.Instrument(5), 11, depthBook(1, 2, 3))
	assert.Equal(t, int64(2), tr.Stats().BookUpdates)
}
