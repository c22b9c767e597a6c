package hedge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etf-market-maker/inventory"
	"etf-market-maker/market"
	"etf-market-maker/order"
)

type sentHedge struct {
	id            int64
	side          market.Side
	price, volume int64
}

type fakeGateway struct{ sent []sentHedge }

func (f *fakeGateway) HedgeOrder(id int64, side market.Side, price, volume int64) {
	f.sent = append(f.sent, sentHedge{id, side, price, volume})
}

type counter struct{ n int64 }

func (c *counter) NextID() int64 {
	c.n++
	return c.n
}

var constraints = order.Constraints{TickSize: 100, MinPrice: 1, MaxPrice: 2147483647}

func newManager(policy Policy, cooldown int) (*Manager, *fakeGateway, *inventory.Ledger) {
	gw := &fakeGateway{}
	ledger := inventory.NewLedger(90)
	return NewManager(gw, &counter{}, ledger, constraints, policy, cooldown, nil), gw, ledger
}

func TestImmediateHedgesEveryFill(t *testing.T) {
	m, gw, ledger := newManager(Immediate, 0)
	ledger.ApplyFill(market.Buy, 10000, 5)

	h, ok := m.OnFill(market.Buy, 5)
	require.True(t, ok)
	assert.Equal(t, market.Sell, h.Side)
	assert.Equal(t, int64(100), h.Price)
	assert.Equal(t, []sentHedge{{1, market.Sell, 100, 5}}, gw.sent)
	assert.Equal(t, int64(-5), ledger.HedgePosition())
	assert.Equal(t, int64(0), ledger.Delta())

	h, ok = m.OnFill(market.Sell, 3)
	require.True(t, ok)
	assert.Equal(t, int64(2147483600), h.Price)
	assert.Equal(t, 2, m.Open())

	// 延迟模式的检查在立即模式下不生效
	_, ok = m.Evaluate(market.Depth{Bid: 10300, Ask: 10400}, market.Depth{Bid: 10000, Ask: 10100})
	assert.False(t, ok)
}

func TestDebouncedWaitsForFavourableSpread(t *testing.T) {
	m, gw, ledger := newManager(Debounced, 0)
	ledger.ApplyFill(market.Sell, 10000, 10)

	_, ok := m.OnFill(market.Sell, 10)
	assert.False(t, ok)

	// ETF 买一仅高出期货卖一一个 tick，不满足严格大于
	_, ok = m.Evaluate(market.Depth{Bid: 10200, Ask: 10300}, market.Depth{Bid: 10000, Ask: 10100})
	assert.False(t, ok)

	h, ok := m.Evaluate(market.Depth{Bid: 10300, Ask: 10400}, market.Depth{Bid: 10000, Ask: 10100})
	require.True(t, ok)
	assert.Equal(t, market.Buy, h.Side)
	assert.Equal(t, int64(10), h.Volume)
	assert.Equal(t, int64(2147483600), h.Price)
	assert.Equal(t, int64(0), ledger.Delta())
	assert.Len(t, gw.sent, 1)

	_, ok = m.Evaluate(market.Depth{Bid: 10300, Ask: 10400}, market.Depth{Bid: 10000, Ask: 10100})
	assert.False(t, ok, "flat after hedge")
}

func TestDebouncedSellsLongDelta(t *testing.T) {
	m, _, ledger := newManager(Debounced, 0)
	ledger.ApplyFill(market.Buy, 10000, 7)

	h, ok := m.Evaluate(market.Depth{Bid: 9800, Ask: 9900}, market.Depth{Bid: 10100, Ask: 10200})
	require.True(t, ok)
	assert.Equal(t, market.Sell, h.Side)
	assert.Equal(t, int64(7), h.Volume)
	assert.Equal(t, int64(100), h.Price)

	_, ok = m.Evaluate(market.Depth{}, market.Depth{Bid: 10100, Ask: 10200})
	assert.False(t, ok)
}

func TestDebouncedCooldownRelaxesThreshold(t *testing.T) {
	m, _, ledger := newManager(Debounced, 3)
	ledger.ApplyFill(market.Sell, 10000, 5)
	etf := market.Depth{Bid: 10150, Ask: 10300}
	fut := market.Depth{Bid: 10000, Ask: 10100}

	_, ok := m.Evaluate(etf, fut)
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		m.OnBookUpdate()
	}
	h, ok := m.Evaluate(etf, fut)
	require.True(t, ok)
	assert.Equal(t, int64(5), h.Volume)

	// 对冲后计数清零，阈值恢复
	ledger.ApplyFill(market.Sell, 10000, 5)
	_, ok = m.Evaluate(etf, fut)
	assert.False(t, ok)
}

func TestHedgeFillsAndRejection(t *testing.T) {
	m, _, ledger := newManager(Immediate, 0)
	h, _ := m.OnFill(market.Buy, 5)

	got, ok := m.OnHedgeFilled(h.ID, 10100, 2)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.Remaining())
	assert.Equal(t, int64(20200), ledger.Cash())

	got, ok = m.OnError(h.ID)
	require.True(t, ok)
	assert.True(t, got.Rejected)
	assert.Equal(t, int64(-2), ledger.HedgePosition())
	assert.Equal(t, 0, m.Open())

	_, ok = m.OnError(h.ID)
	assert.False(t, ok)
	_, ok = m.OnHedgeFilled(99, 100, 1)
	assert.False(t, ok)

	h2, _ := m.OnFill(market.Sell, 4)
	_, ok = m.OnHedgeFilled(h2.ID, 10000, 4)
	require.True(t, ok)
	assert.Equal(t, 0, m.Open())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("", Debounced)
	require.NoError(t, err)
	assert.Equal(t, Debounced, p)
	p, err = ParsePolicy("immediate", Debounced)
	require.NoError(t, err)
	assert.Equal(t, Immediate, p)
	_, err = ParsePolicy("sometimes", Immediate)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
