package order

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etf-market-maker/market"
)

type mockGateway struct {
	inserted []Order
	canceled []int64
}

func (m *mockGateway) InsertOrder(id int64, side market.Side, price, volume int64, lifespan market.Lifespan) {
	m.inserted = append(m.inserted, Order{ID: id, Side: side, Price: price, Volume: volume, Lifespan: lifespan})
}

func (m *mockGateway) CancelOrder(id int64) {
	m.canceled = append(m.canceled, id)
}

type fixedLimiter struct{ capacity int64 }

func (f fixedLimiter) Capacity(side market.Side, outstanding int64) int64 {
	if c := f.capacity - outstanding; c > 0 {
		return c
	}
	return 0
}

var testConstraints = Constraints{TickSize: 100, MinPrice: 1, MaxPrice: 2147483647}

func newTestManager(capacity int64) (*Manager, *mockGateway) {
	gw := &mockGateway{}
	return NewManager(gw, testConstraints, fixedLimiter{capacity: capacity}, nil), gw
}

func TestManagerInsertAssignsMonotonicIDs(t *testing.T) {
	m, gw := newTestManager(90)
	id1, err := m.Insert(market.Buy, 10000, 5, market.GoodForDay)
	require.NoError(t, err)
	id2, err := m.Insert(market.Sell, 10100, 5, market.GoodForDay)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
	assert.Equal(t, int64(3), m.NextID())
	require.Len(t, gw.inserted, 2)

	o, ok := m.Book().Get(id1)
	require.True(t, ok)
	assert.Equal(t, StatusPending, o.Status)
}

func TestManagerInsertValidates(t *testing.T) {
	m, gw := newTestManager(90)
	_, err := m.Insert(market.Buy, 10050, 5, market.GoodForDay)
	assert.True(t, errors.Is(err, ErrInvalidPrice))

	_, err = m.Insert(market.Buy, 10000, 5, market.GoodForDay)
	require.NoError(t, err)
	_, err = m.Insert(market.Buy, 10000, 5, market.GoodForDay)
	assert.True(t, errors.Is(err, ErrPriceOccupied))
	assert.Len(t, gw.inserted, 1)
}

func TestManagerInsertClipsToCapacity(t *testing.T) {
	m, gw := newTestManager(7)
	_, err := m.Insert(market.Buy, 10000, 5, market.GoodForDay)
	require.NoError(t, err)
	_, err = m.Insert(market.Buy, 9900, 5, market.GoodForDay)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gw.inserted[1].Volume)

	_, err = m.Insert(market.Buy, 9800, 5, market.GoodForDay)
	assert.True(t, errors.Is(err, ErrNoCapacity))
}

func TestManagerCancelIsSentOnce(t *testing.T) {
	m, gw := newTestManager(90)
	id, _ := m.Insert(market.Buy, 10000, 5, market.GoodForDay)
	require.NoError(t, m.Cancel(id))
	require.NoError(t, m.Cancel(id))
	assert.Equal(t, []int64{id}, gw.canceled)

	// 撤单请求不会移除订单
	_, ok := m.Book().Get(id)
	assert.True(t, ok)
	assert.ErrorIs(t, m.Cancel(99), ErrUnknownOrder)
}

func TestManagerReconcileCancelsBeforeInsert(t *testing.T) {
	m, gw := newTestManager(90)
	res := m.Reconcile(Desired{
		Bids: Target{Levels: []Level{{Price: 10000, Volume: 5}}},
		Asks: Target{Levels: []Level{{Price: 10100, Volume: 5}}},
	}, 1)
	require.Len(t, res.Inserted, 2)

	// 买价变化：先撤旧单，撤单确认前不补新单
	res = m.Reconcile(Desired{
		Bids: Target{Levels: []Level{{Price: 9900, Volume: 5}}},
		Asks: Target{Levels: []Level{{Price: 10100, Volume: 5}}},
	}, 1)
	assert.Equal(t, []int64{1}, res.Canceled)
	assert.Empty(t, res.Inserted)
	assert.Equal(t, 1, m.Book().LiveCount(market.Buy))

	_, removed := m.OnStatus(1, 0, 0)
	require.True(t, removed)

	res = m.Reconcile(Desired{
		Bids: Target{Levels: []Level{{Price: 9900, Volume: 5}}},
		Asks: Target{Levels: []Level{{Price: 10100, Volume: 5}}},
	}, 1)
	assert.Empty(t, res.Canceled)
	require.Len(t, res.Inserted, 1)
	assert.Equal(t, int64(9900), gw.inserted[len(gw.inserted)-1].Price)
}

func TestManagerReconcileHoldAndWithdraw(t *testing.T) {
	m, gw := newTestManager(90)
	m.Reconcile(Desired{
		Bids: Target{Levels: []Level{{Price: 10000, Volume: 5}}},
		Asks: Target{Levels: []Level{{Price: 10100, Volume: 5}}},
	}, 1)

	res := m.Reconcile(Desired{Asks: Target{Hold: true}}, 1)
	assert.Equal(t, []int64{1}, res.Canceled)
	assert.Equal(t, []int64{1}, gw.canceled)

	res = m.Reconcile(Desired{}, 1)
	assert.Equal(t, []int64{2}, res.Canceled)
	assert.Empty(t, res.Inserted)
}

func TestManagerReconcileLadderSetDiff(t *testing.T) {
	m, _ := newTestManager(90)
	ladder := func(prices ...int64) Target {
		var t Target
		for _, p := range prices {
			t.Levels = append(t.Levels, Level{Price: p, Volume: 1})
		}
		return t
	}
	res := m.Reconcile(Desired{Bids: ladder(10000, 9900, 9800), Asks: ladder(10100, 10200, 10300)}, 3)
	require.Len(t, res.Inserted, 6)

	// 整体下移一个 tick：只撤移出目标的 10000 与 10100
	res = m.Reconcile(Desired{Bids: ladder(9900, 9800, 9700), Asks: ladder(10200, 10300, 10400)}, 3)
	assert.Len(t, res.Canceled, 2)
	assert.Empty(t, res.Inserted, "depth is full until cancels are confirmed")

	for _, id := range res.Canceled {
		m.OnStatus(id, 0, 0)
	}
	res = m.Reconcile(Desired{Bids: ladder(9900, 9800, 9700), Asks: ladder(10200, 10300, 10400)}, 3)
	assert.Len(t, res.Inserted, 2)

	var prices []int64
	for _, o := range m.Book().Live(market.Buy) {
		prices = append(prices, o.Price)
	}
	assert.Equal(t, []int64{9900, 9800, 9700}, prices)
}

func TestManagerFillStatusError(t *testing.T) {
	m, _ := newTestManager(90)
	id, _ := m.Insert(market.Buy, 10000, 5, market.GoodForDay)

	o, ok := m.OnFill(id, 2)
	require.True(t, ok)
	assert.Equal(t, StatusPartiallyFilled, o.Status)
	assert.Equal(t, int64(3), o.Remaining())

	o, removed := m.OnStatus(id, 2, 3)
	assert.False(t, removed)
	assert.Equal(t, int64(2), o.Filled)

	_, removed = m.OnStatus(id, 5, 0)
	assert.True(t, removed)
	_, removed = m.OnStatus(id, 5, 0)
	assert.False(t, removed, "replayed terminal status is a no-op")

	_, ok = m.OnFill(id, 1)
	assert.False(t, ok)

	id2, _ := m.Insert(market.Sell, 10100, 5, market.GoodForDay)
	_, removed = m.OnError(id2)
	assert.True(t, removed)
	assert.Equal(t, 0, m.Book().Len())
	_, removed = m.OnError(0)
	assert.False(t, removed)
}

func TestManagerCancelAll(t *testing.T) {
	m, gw := newTestManager(90)
	m.Insert(market.Buy, 10000, 5, market.GoodForDay)
	m.Insert(market.Sell, 10100, 5, market.GoodForDay)
	m.Insert(market.Sell, 10000, 5, market.FillAndKill)
	assert.Equal(t, []int64{1, 2, 3}, m.CancelAll())
	assert.Empty(t, m.CancelAll())
	assert.Len(t, gw.canceled, 3)
}
