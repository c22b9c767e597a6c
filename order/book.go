package order

import (
	"sort"

	"github.com/tidwall/btree"

	"etf-market-maker/market"
)

// Book 记录引擎自己的在途订单，是“当前挂着什么”的唯一来源。
// id 索引覆盖全部订单；按价格的有序索引只收录 GOOD_FOR_DAY 挂单，
// 同一方向同一价格最多一张。仅在事件处理协程中使用，不加锁。
type Book struct {
	orders map[int64]*Order
	levels [2]*btree.BTreeG[*Order]
}

func NewBook() *Book {
	// 买单价格从高到低，卖单从低到高，遍历顺序即离盘口由近到远。
	bids := btree.NewBTreeG(func(a, b *Order) bool { return a.Price > b.Price })
	asks := btree.NewBTreeG(func(a, b *Order) bool { return a.Price < b.Price })
	return &Book{
		orders: make(map[int64]*Order),
		levels: [2]*btree.BTreeG[*Order]{bids, asks},
	}
}

func (b *Book) index(side market.Side) *btree.BTreeG[*Order] {
	if side == market.Buy {
		return b.levels[0]
	}
	return b.levels[1]
}

// Add 登记新订单。
func (b *Book) Add(o *Order) {
	b.orders[o.ID] = o
	if o.Quoting() {
		b.index(o.Side).Set(o)
	}
}

func (b *Book) Get(id int64) (*Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

// Remove 按 id 删除，不假设方向。
func (b *Book) Remove(id int64) (*Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return nil, false
	}
	delete(b.orders, id)
	if o.Quoting() {
		idx := b.index(o.Side)
		if cur, ok := idx.Get(o); ok && cur.ID == id {
			idx.Delete(o)
		}
	}
	return o, true
}

// AtPrice 查询某方向某价位上的挂单。
func (b *Book) AtPrice(side market.Side, price int64) (*Order, bool) {
	return b.index(side).Get(&Order{Price: price})
}

// Live 返回某方向全部挂单（含撤单中），按离盘口由近到远排序。
func (b *Book) Live(side market.Side) []*Order {
	return b.index(side).Items()
}

// LiveCount 某方向挂单数量。
func (b *Book) LiveCount(side market.Side) int {
	return b.index(side).Len()
}

// Outstanding 某方向全部订单（含 FAK 与撤单中）的剩余数量之和。
func (b *Book) Outstanding(side market.Side) int64 {
	var sum int64
	for _, o := range b.orders {
		if o.Side == side {
			sum += o.Remaining()
		}
	}
	return sum
}

// Quoting 某方向挂单（GOOD_FOR_DAY）的剩余数量之和。
func (b *Book) Quoting(side market.Side) int64 {
	var sum int64
	b.index(side).Scan(func(o *Order) bool {
		sum += o.Remaining()
		return true
	})
	return sum
}

// Promote 把仍处于 PENDING 的订单视为已被接受。
func (b *Book) Promote() {
	for _, o := range b.orders {
		if o.Status == StatusPending {
			o.Status = StatusResting
		}
	}
}

func (b *Book) Len() int {
	return len(b.orders)
}

// List 返回全部订单（拷贝），按 id 升序。
func (b *Book) List() []Order {
	res := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		res = append(res, *o)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}
