package sim

import (
	"sort"
	"sync"

	"etf-market-maker/gateway"
	"etf-market-maker/market"
)

// CallKind 网关调用类型
type CallKind string

const (
	CallInsert CallKind = "insert"
	CallCancel CallKind = "cancel"
	CallHedge  CallKind = "hedge"
)

// Call 记录一次网关调用
type Call struct {
	Kind     CallKind
	ID       int64
	Side     market.Side
	Price    int64
	Volume   int64
	Lifespan market.Lifespan
}

type simOrder struct {
	Call
	filled   int64
	canceled bool
}

// Venue 内存交易所：记录引擎发出的全部指令，并在 Settle 时按给定盘口撮合、回报。
// 实现 gateway.Gateway。
type Venue struct {
	mu      sync.Mutex
	calls   []Call
	orders  map[int64]*simOrder
	hedges  []Call
	rejects map[int64]string
}

func NewVenue() *Venue {
	return &Venue{
		orders:  make(map[int64]*simOrder),
		rejects: make(map[int64]string),
	}
}

var _ gateway.Gateway = (*Venue)(nil)

func (v *Venue) InsertOrder(id int64, side market.Side, price, volume int64, lifespan market.Lifespan) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c := Call{Kind: CallInsert, ID: id, Side: side, Price: price, Volume: volume, Lifespan: lifespan}
	v.calls = append(v.calls, c)
	v.orders[id] = &simOrder{Call: c}
}

func (v *Venue) CancelOrder(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, Call{Kind: CallCancel, ID: id})
	if o, ok := v.orders[id]; ok {
		o.canceled = true
	}
}

func (v *Venue) HedgeOrder(id int64, side market.Side, price, volume int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c := Call{Kind: CallHedge, ID: id, Side: side, Price: price, Volume: volume}
	v.calls = append(v.calls, c)
	v.hedges = append(v.hedges, c)
}

// Reject 下一次 Settle 时对该 id 回报错误。
func (v *Venue) Reject(id int64, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rejects[id] = message
}

// Calls 返回全部调用记录（副本）
func (v *Venue) Calls() []Call {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Call(nil), v.calls...)
}

// CallsOf 按类型过滤调用记录
func (v *Venue) CallsOf(kind CallKind) []Call {
	var res []Call
	for _, c := range v.Calls() {
		if c.Kind == kind {
			res = append(res, c)
		}
	}
	return res
}

// Resting 交易所侧仍挂着的订单数
func (v *Venue) Resting() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.orders)
}

// ClearCalls 清空调用记录，不影响挂单。
func (v *Venue) ClearCalls() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = nil
}

type report func(h gateway.Handler)

// Settle 以 etf/future 最优价撮合：穿价的挂单按订单价全部成交，FAK 未成交部分过期，
// 撤单确认，对冲单按期货对手价成交。回调在锁外按订单 id 顺序发出。
func (v *Venue) Settle(h gateway.Handler, etf, future market.Depth) {
	v.mu.Lock()
	ids := make([]int64, 0, len(v.orders))
	for id := range v.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []report
	for _, id := range ids {
		o := v.orders[id]
		if msg, ok := v.rejects[id]; ok {
			delete(v.rejects, id)
			delete(v.orders, id)
			out = append(out, func(h gateway.Handler) { h.OnError(id, msg) })
			continue
		}
		if crosses(o.Side, o.Price, etf) {
			vol := o.Volume - o.filled
			o.filled = o.Volume
			price := o.Price
			out = append(out, func(h gateway.Handler) { h.OnOrderFilled(id, price, vol) })
		}
		if o.filled == o.Volume || o.canceled || o.Lifespan == market.FillAndKill {
			delete(v.orders, id)
			filled := o.filled
			out = append(out, func(h gateway.Handler) { h.OnOrderStatus(id, filled, 0, 0) })
		}
	}

	hedges := v.hedges
	v.hedges = nil
	for _, c := range hedges {
		if msg, ok := v.rejects[c.ID]; ok {
			delete(v.rejects, c.ID)
			out = append(out, func(h gateway.Handler) { h.OnError(c.ID, msg) })
			continue
		}
		price := future.Ask
		if c.Side == market.Sell {
			price = future.Bid
		}
		if price == 0 {
			price = c.Price
		}
		out = append(out, func(h gateway.Handler) { h.OnHedgeFilled(c.ID, price, c.Volume) })
	}
	v.mu.Unlock()

	for _, r := range out {
		r(h)
	}
}

func crosses(side market.Side, price int64, etf market.Depth) bool {
	if side == market.Buy {
		return etf.Ask > 0 && price >= etf.Ask
	}
	return etf.Bid > 0 && price <= etf.Bid
}
