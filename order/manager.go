package order

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"etf-market-maker/market"
)

var (
	ErrUnknownOrder  = errors.New("unknown order")
	ErrNoCapacity    = errors.New("no position capacity")
	ErrPriceOccupied = errors.New("price level occupied")
)

// Gateway 下单/撤单的最小抽象；gateway.Gateway 满足该接口。
type Gateway interface {
	InsertOrder(id int64, side market.Side, price, volume int64, lifespan market.Lifespan)
	CancelOrder(id int64)
}

// Limiter 返回某方向扣除在途数量后的剩余可下单量。
type Limiter interface {
	Capacity(side market.Side, outstanding int64) int64
}

// Level 单个目标价位。
type Level struct {
	Price  int64
	Volume int64
}

// Target 某一方向的目标挂单集合。Hold 表示本轮不动该方向。
type Target struct {
	Levels []Level
	Hold   bool
}

// Prices 返回目标价位列表。
func (t Target) Prices() []int64 {
	res := make([]int64, 0, len(t.Levels))
	for _, l := range t.Levels {
		res = append(res, l.Price)
	}
	return res
}

// Desired 策略期望的双边挂单。零值表示全部撤回。
type Desired struct {
	Bids Target
	Asks Target
}

// Side 返回指定方向的目标。
func (d Desired) Side(side market.Side) Target {
	if side == market.Buy {
		return d.Bids
	}
	return d.Asks
}

// Result 一次对账实际发出的指令。
type Result struct {
	Inserted []int64
	Canceled []int64
}

// Manager 维护自有订单生命周期：分配 id、对账目标挂单、处理成交/状态/错误回报。
// 撤单只发出请求，订单保留到 remaining == 0 的回报到达。
type Manager struct {
	gw          Gateway
	book        *Book
	sm          *StateMachine
	constraints Constraints
	limiter     Limiter
	nextID      int64
	log         *zap.Logger
}

func NewManager(gw Gateway, constraints Constraints, limiter Limiter, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		gw:          gw,
		book:        NewBook(),
		sm:          NewStateMachine(),
		constraints: constraints,
		limiter:     limiter,
		log:         log,
	}
}

// NextID 分配下一个订单 id，从 1 开始严格递增，永不复用。
// 对冲单与 ETF 订单共用同一序列。
func (m *Manager) NextID() int64 {
	m.nextID++
	return m.nextID
}

// Book 返回自有订单簿（只读使用）。
func (m *Manager) Book() *Book {
	return m.book
}

// Constraints 返回价格约束。
func (m *Manager) Constraints() Constraints {
	return m.constraints
}

// Insert 校验并下单。数量按剩余容量收敛；价格必须满足 tick 约束。
func (m *Manager) Insert(side market.Side, price, volume int64, lifespan market.Lifespan) (int64, error) {
	if m.limiter != nil {
		volume = min(volume, m.limiter.Capacity(side, m.book.Outstanding(side)))
		if volume <= 0 {
			return 0, fmt.Errorf("%w: %s", ErrNoCapacity, side)
		}
	}
	if err := m.constraints.Validate(price, volume); err != nil {
		return 0, err
	}
	if lifespan == market.GoodForDay {
		if o, ok := m.book.AtPrice(side, price); ok {
			return 0, fmt.Errorf("%w: %s %d by order %d", ErrPriceOccupied, side, price, o.ID)
		}
	}
	id := m.NextID()
	m.book.Add(&Order{
		ID:       id,
		Side:     side,
		Price:    price,
		Volume:   volume,
		Lifespan: lifespan,
		Status:   StatusPending,
	})
	m.gw.InsertOrder(id, side, price, volume, lifespan)
	m.log.Info("order inserted",
		zap.Int64("order_id", id),
		zap.Stringer("side", side),
		zap.Int64("price", price),
		zap.Int64("volume", volume),
		zap.Stringer("lifespan", lifespan))
	return id, nil
}

// Cancel 发出撤单请求；同一订单只发一次。
func (m *Manager) Cancel(id int64) error {
	o, ok := m.book.Get(id)
	if !ok {
		return ErrUnknownOrder
	}
	m.requestCancel(o)
	return nil
}

func (m *Manager) requestCancel(o *Order) bool {
	if o.CancelRequested || !m.sm.CanCancel(o.Status) {
		return false
	}
	o.CancelRequested = true
	m.gw.CancelOrder(o.ID)
	m.log.Info("order cancel requested",
		zap.Int64("order_id", o.ID),
		zap.Stringer("side", o.Side),
		zap.Int64("price", o.Price))
	return true
}

// CancelAll 撤销全部在途订单，返回本次实际发出撤单的 id。
func (m *Manager) CancelAll() []int64 {
	var canceled []int64
	for _, o := range m.book.List() {
		tracked, _ := m.book.Get(o.ID)
		if m.requestCancel(tracked) {
			canceled = append(canceled, o.ID)
		}
	}
	return canceled
}

// Reconcile 对比目标挂单与当前挂单：先撤掉不在目标中的价位，再补齐缺失的价位。
// depth 为单方向最多同时存在的挂单数，撤单中的订单仍占名额。
func (m *Manager) Reconcile(desired Desired, depth int) Result {
	var res Result
	for _, side := range []market.Side{market.Buy, market.Sell} {
		target := desired.Side(side)
		if target.Hold {
			continue
		}
		wanted := make(map[int64]struct{}, len(target.Levels))
		for _, l := range target.Levels {
			wanted[l.Price] = struct{}{}
		}
		for _, o := range m.book.Live(side) {
			if _, ok := wanted[o.Price]; ok {
				continue
			}
			if m.requestCancel(o) {
				res.Canceled = append(res.Canceled, o.ID)
			}
		}

		live := m.book.LiveCount(side)
		for _, l := range target.Levels {
			if live >= depth {
				break
			}
			if l.Volume <= 0 {
				continue
			}
			if _, ok := m.book.AtPrice(side, l.Price); ok {
				continue
			}
			id, err := m.Insert(side, l.Price, l.Volume, market.GoodForDay)
			if err != nil {
				m.log.Warn("skip quote",
					zap.Stringer("side", side),
					zap.Int64("price", l.Price),
					zap.Int64("volume", l.Volume),
					zap.Error(err))
				continue
			}
			res.Inserted = append(res.Inserted, id)
			live++
		}
	}
	return res
}

// OnFill 累加成交量，返回订单快照用于记账；未知 id 返回 false。
func (m *Manager) OnFill(id, volume int64) (Order, bool) {
	o, ok := m.book.Get(id)
	if !ok {
		return Order{}, false
	}
	o.Filled += volume
	m.setStatus(o, StatusPartiallyFilled)
	return *o, true
}

// OnStatus 应用状态回报。remaining == 0 时按 id 移除订单并返回 true；
// 重复的终态回报是空操作。
func (m *Manager) OnStatus(id, fillVolume, remainingVolume int64) (Order, bool) {
	o, ok := m.book.Get(id)
	if !ok {
		return Order{}, false
	}
	if remainingVolume == 0 {
		m.setStatus(o, StatusDone)
		m.book.Remove(id)
		return *o, true
	}
	o.Filled = fillVolume
	if fillVolume > 0 {
		m.setStatus(o, StatusPartiallyFilled)
	} else {
		m.setStatus(o, StatusResting)
	}
	return *o, false
}

// OnError 针对已跟踪订单的错误视同 remaining == 0，强制回收该订单。
func (m *Manager) OnError(id int64) (Order, bool) {
	o, ok := m.book.Get(id)
	if !ok {
		return Order{}, false
	}
	return m.OnStatus(id, o.Filled, 0)
}

// Promote 新事件到达时仍无错误回报的订单视为已挂出。
func (m *Manager) Promote() {
	m.book.Promote()
}

func (m *Manager) setStatus(o *Order, to Status) {
	if err := m.sm.ValidateTransition(o.Status, to); err != nil {
		m.log.Warn("order state", zap.Int64("order_id", o.ID), zap.Error(err))
		if to != StatusDone {
			return
		}
	}
	o.Status = to
}

// InsertFAK 发出立即成交剩余撤销的吃单。
func (m *Manager) InsertFAK(side market.Side, price, volume int64) (int64, error) {
	return m.Insert(side, price, volume, market.FillAndKill)
}
