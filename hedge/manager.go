// Package hedge 在期货上对冲 ETF 持仓。
package hedge

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"etf-market-maker/inventory"
	"etf-market-maker/market"
	"etf-market-maker/order"
)

// Policy 对冲时机。
type Policy string

const (
	// Immediate 每笔 ETF 成交立即按成交量反向对冲。
	Immediate Policy = "immediate"
	// Debounced 在成交统计事件上检查净敞口，价差有利时一次性对冲。
	Debounced Policy = "debounced"
)

var ErrUnknownPolicy = errors.New("unknown hedge policy")

// ParsePolicy 解析配置中的策略名，空串返回 fallback。
func ParsePolicy(name string, fallback Policy) (Policy, error) {
	switch Policy(name) {
	case "":
		return fallback, nil
	case Immediate, Debounced:
		return Policy(name), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
}

// Gateway 对冲下单接口；gateway.Gateway 满足该接口。
type Gateway interface {
	HedgeOrder(id int64, side market.Side, price, volume int64)
}

// IDSource 与 ETF 订单共用的 id 序列。
type IDSource interface {
	NextID() int64
}

// Hedge 一张已发出的对冲单。
type Hedge struct {
	ID       int64
	Side     market.Side
	Price    int64
	Volume   int64
	Filled   int64
	Rejected bool
}

// Remaining 未成交数量。
func (h Hedge) Remaining() int64 {
	if r := h.Volume - h.Filled; r > 0 {
		return r
	}
	return 0
}

// Manager 决定何时对冲并跟踪在途对冲单。
// 期货持仓在发单时记账；被拒绝的对冲单回滚未成交部分。
type Manager struct {
	gw          Gateway
	ids         IDSource
	ledger      *inventory.Ledger
	constraints order.Constraints
	policy      Policy
	cooldown    int
	sinceHedge  int
	open        map[int64]*Hedge
	log         *zap.Logger
}

func NewManager(gw Gateway, ids IDSource, ledger *inventory.Ledger, constraints order.Constraints, policy Policy, cooldown int, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		gw:          gw,
		ids:         ids,
		ledger:      ledger,
		constraints: constraints,
		policy:      policy,
		cooldown:    cooldown,
		open:        make(map[int64]*Hedge),
		log:         log,
	}
}

func (m *Manager) Policy() Policy { return m.policy }

// SetCooldown 热更新放宽阈值前需要等待的盘口更新次数，0 表示永不放宽。
func (m *Manager) SetCooldown(n int) {
	if n < 0 {
		n = 0
	}
	m.cooldown = n
}

// Open 在途对冲单数量。
func (m *Manager) Open() int { return len(m.open) }

// OnBookUpdate 每次盘口更新计数一次。
func (m *Manager) OnBookUpdate() {
	m.sinceHedge++
}

// OnFill ETF 成交后调用。立即模式下反向对冲成交量。
func (m *Manager) OnFill(side market.Side, volume int64) (Hedge, bool) {
	if m.policy != Immediate || volume <= 0 {
		return Hedge{}, false
	}
	return m.send(side.Opposite(), volume), true
}

// Evaluate 延迟模式下检查净敞口：ETF 买一高出期货卖一且净空头时买入期货，
// 期货买一高出 ETF 卖一且净多头时卖出期货。
func (m *Manager) Evaluate(etf, future market.Depth) (Hedge, bool) {
	if m.policy != Debounced || !etf.Valid() || !future.Valid() {
		return Hedge{}, false
	}
	threshold := m.constraints.TickSize
	if m.cooldown > 0 && m.sinceHedge >= m.cooldown {
		threshold = 0
	}
	delta := m.ledger.Delta()
	switch {
	case delta < 0 && etf.Bid-future.Ask > threshold:
		return m.send(market.Buy, -delta), true
	case delta > 0 && future.Bid-etf.Ask > threshold:
		return m.send(market.Sell, delta), true
	}
	return Hedge{}, false
}

func (m *Manager) send(side market.Side, volume int64) Hedge {
	price := m.constraints.HedgeSellPrice()
	if side == market.Buy {
		price = m.constraints.HedgeBuyPrice()
	}
	h := &Hedge{ID: m.ids.NextID(), Side: side, Price: price, Volume: volume}
	m.open[h.ID] = h
	m.ledger.ApplyHedge(side, volume)
	m.sinceHedge = 0
	m.gw.HedgeOrder(h.ID, side, price, volume)
	m.log.Info("hedge sent",
		zap.Int64("order_id", h.ID),
		zap.Stringer("side", side),
		zap.Int64("price", price),
		zap.Int64("volume", volume),
		zap.Int64("hedge_position", m.ledger.HedgePosition()))
	return *h
}

// OnHedgeFilled 记录对冲成交的现金流；全部成交后不再跟踪。
func (m *Manager) OnHedgeFilled(id, price, volume int64) (Hedge, bool) {
	h, ok := m.open[id]
	if !ok {
		m.log.Warn("unknown hedge fill", zap.Int64("order_id", id), zap.Int64("volume", volume))
		return Hedge{}, false
	}
	h.Filled += volume
	m.ledger.ApplyHedgeFill(h.Side, price, volume)
	if h.Remaining() == 0 {
		delete(m.open, id)
	}
	return *h, true
}

// OnError 对冲单被拒绝：回滚未成交部分的期货持仓。非对冲 id 返回 false。
func (m *Manager) OnError(id int64) (Hedge, bool) {
	h, ok := m.open[id]
	if !ok {
		return Hedge{}, false
	}
	h.Rejected = true
	delete(m.open, id)
	if r := h.Remaining(); r > 0 {
		m.ledger.ApplyHedge(h.Side.Opposite(), r)
	}
	m.log.Warn("hedge rejected",
		zap.Int64("order_id", id),
		zap.Int64("unfilled", h.Remaining()),
		zap.Int64("hedge_position", m.ledger.HedgePosition()))
	return *h, true
}
