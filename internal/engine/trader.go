package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"etf-market-maker/gateway"
	"etf-market-maker/hedge"
	"etf-market-maker/inventory"
	"etf-market-maker/market"
	"etf-market-maker/order"
	"etf-market-maker/strategy"
)

// Config 交易会话参数，价格单位为分。
type Config struct {
	Strategy      string
	HedgePolicy   string // 空串按策略取默认
	TickSize      int64
	LotSize       int64
	PositionLimit int64
	MinBid        int64
	MaxAsk        int64
	LadderDepth   int
	SkewDivisor   int64
	HedgeCooldown int
	ArbMaxVolume  int64
}

// DefaultConfig 单对做市的默认参数。
func DefaultConfig() Config {
	return Config{
		Strategy:      string(strategy.SingleStrategy),
		TickSize:      100,
		LotSize:       5,
		PositionLimit: 90,
		MinBid:        1,
		MaxAsk:        2147483647,
		LadderDepth:   3,
		SkewDivisor:   40,
	}
}

func (c Config) strategyConfig() strategy.Config {
	return strategy.Config{
		TickSize:     c.TickSize,
		LotSize:      c.LotSize,
		LadderDepth:  c.LadderDepth,
		SkewDivisor:  c.SkewDivisor,
		ArbMaxVolume: c.ArbMaxVolume,
	}
}

// Components 引擎依赖组件
type Components struct {
	Gateway  gateway.Gateway
	Recorder Recorder
	Journal  Journal
	Logger   *zap.Logger
}

// Stats 会话统计快照
type Stats struct {
	StartTime     time.Time
	BookUpdates   int64
	TradeTicks    int64
	StaleUpdates  int64
	Arbitrages    int64
	Inserted      int64
	Canceled      int64
	Fills         int64
	UnknownFills  int64
	Hedges        int64
	HedgeFills    int64
	Errors        int64
	Fees          int64
	Position      int64
	HedgePosition int64
	Cash          int64
	PnL           int64 // 两侧盘口都有效时按中间价盯市
	LiveBids      int
	LiveAsks      int
	FillStats     order.FillTrackerStats
}

// Trader 一个交易会话的全部状态，实现 gateway.Handler。
// 所有回调必须在同一协程上调用（见 Loop）。
type Trader struct {
	cfg      Config
	tracker  *market.Tracker
	ledger   *inventory.Ledger
	orders   *order.Manager
	strategy strategy.Strategy
	hedger   *hedge.Manager
	fills    *order.FillTracker
	rec      Recorder
	journal  Journal
	log      *zap.Logger

	statsMu sync.RWMutex
	stats   Stats
}

// NewTrader 校验参数并组装会话。
func NewTrader(cfg Config, components Components) (*Trader, error) {
	if components.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.TickSize <= 0 || cfg.LotSize <= 0 || cfg.PositionLimit <= 0 {
		return nil, fmt.Errorf("invalid trader config: tick=%d lot=%d limit=%d", cfg.TickSize, cfg.LotSize, cfg.PositionLimit)
	}
	if cfg.MinBid <= 0 || cfg.MaxAsk <= cfg.MinBid {
		return nil, fmt.Errorf("invalid price range [%d, %d]", cfg.MinBid, cfg.MaxAsk)
	}
	strat, err := strategy.New(cfg.Strategy, cfg.strategyConfig())
	if err != nil {
		return nil, err
	}
	fallback := hedge.Immediate
	if strat.Name() == string(strategy.LadderStrategy) {
		fallback = hedge.Debounced
	}
	policy, err := hedge.ParsePolicy(cfg.HedgePolicy, fallback)
	if err != nil {
		return nil, err
	}

	log := components.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rec := components.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	jr := components.Journal
	if jr == nil {
		jr = nopJournal{}
	}

	constraints := order.Constraints{TickSize: cfg.TickSize, MinPrice: cfg.MinBid, MaxPrice: cfg.MaxAsk}
	ledger := inventory.NewLedger(cfg.PositionLimit)
	orders := order.NewManager(components.Gateway, constraints, ledger, log.Named("orders"))

	t := &Trader{
		cfg:      cfg,
		tracker:  market.NewTracker(),
		ledger:   ledger,
		orders:   orders,
		strategy: strat,
		hedger:   hedge.NewManager(components.Gateway, orders, ledger, constraints, policy, cfg.HedgeCooldown, log.Named("hedge")),
		fills:    order.NewFillTracker(256),
		rec:      rec,
		journal:  jr,
		log:      log,
	}
	t.stats.StartTime = time.Now()
	log.Info("trader created",
		zap.String("strategy", strat.Name()),
		zap.String("hedge_policy", string(policy)),
		zap.Int64("tick_size", cfg.TickSize),
		zap.Int64("lot_size", cfg.LotSize),
		zap.Int64("position_limit", cfg.PositionLimit),
		zap.Int("depth", strat.Depth()))
	return t, nil
}

func (t *Trader) OnOrderBookUpdate(inst market.Instrument, sequence int64, book market.Book) {
	t.log.Debug("order book",
		zap.Stringer("instrument", inst),
		zap.Int64("sequence", sequence),
		zap.Int64("bid", book.BidPrices[0]),
		zap.Int64("ask", book.AskPrices[0]))
	if !inst.Valid() {
		t.log.Warn("order book for unknown instrument", zap.Int("instrument", int(inst)))
		return
	}
	t.observe(inst, sequence, book)
	t.hedger.OnBookUpdate()
	t.count(func(s *Stats) { s.BookUpdates++ })

	if inst == market.Tradable {
		t.orders.Promote()
		t.requote(book)
	}
	t.publish()
}

func (t *Trader) OnTradeTicks(inst market.Instrument, sequence int64, ticks market.Book) {
	t.log.Debug("trade ticks", zap.Stringer("instrument", inst), zap.Int64("sequence", sequence))
	if !inst.Valid() {
		t.log.Warn("trade ticks for unknown instrument", zap.Int("instrument", int(inst)))
		return
	}
	t.observe(inst, sequence, ticks)
	t.count(func(s *Stats) { s.TradeTicks++ })

	if h, ok := t.hedger.Evaluate(t.tracker.Best(market.Tradable), t.tracker.Best(market.Reference)); ok {
		t.hedgeSent(h)
	}
	t.publish()
}

func (t *Trader) OnOrderFilled(id, price, volume int64) {
	t.log.Debug("order filled", zap.Int64("order_id", id), zap.Int64("price", price), zap.Int64("volume", volume))
	o, ok := t.orders.OnFill(id, volume)
	if !ok {
		t.log.Warn("unable to account for fill", zap.Int64("order_id", id), zap.Int64("volume", volume))
		t.rec.UnknownFill()
		t.count(func(s *Stats) { s.UnknownFills++ })
		return
	}
	t.ledger.ApplyFill(o.Side, price, volume)
	t.fills.RecordFill(id, market.Tradable, o.Side, price, volume)
	t.rec.Fill(o.Side, volume)
	t.journal.Fill(id, o.Side, price, volume)
	t.count(func(s *Stats) { s.Fills++ })
	t.log.Info("fill",
		zap.Int64("order_id", id),
		zap.Stringer("side", o.Side),
		zap.Int64("price", price),
		zap.Int64("volume", volume),
		zap.Int64("position", t.ledger.Position()))

	if h, ok := t.hedger.OnFill(o.Side, volume); ok {
		t.hedgeSent(h)
	}
	t.publish()
}

func (t *Trader) OnOrderStatus(id, fillVolume, remainingVolume, fees int64) {
	t.log.Debug("order status",
		zap.Int64("order_id", id),
		zap.Int64("fill_volume", fillVolume),
		zap.Int64("remaining_volume", remainingVolume),
		zap.Int64("fees", fees))
	t.count(func(s *Stats) { s.Fees += fees })
	if _, removed := t.orders.OnStatus(id, fillVolume, remainingVolume); removed {
		t.log.Debug("order done", zap.Int64("order_id", id), zap.Int64("fill_volume", fillVolume))
	}
	t.publish()
}

func (t *Trader) OnHedgeFilled(id, price, volume int64) {
	t.log.Debug("hedge filled", zap.Int64("order_id", id), zap.Int64("price", price), zap.Int64("volume", volume))
	if h, ok := t.hedger.OnHedgeFilled(id, price, volume); ok {
		t.fills.RecordFill(id, market.Reference, h.Side, price, volume)
	}
	t.journal.HedgeFill(id, price, volume)
	t.count(func(s *Stats) { s.HedgeFills++ })
	t.publish()
}

func (t *Trader) OnError(id int64, message string) {
	t.log.Warn("error with order", zap.Int64("order_id", id), zap.String("message", message))
	t.journal.OrderError(id, message)
	t.count(func(s *Stats) { s.Errors++ })

	switch {
	case id == 0:
		t.rec.Error("venue")
	default:
		if _, removed := t.orders.OnError(id); removed {
			t.rec.Error("order")
		} else if _, ok := t.hedger.OnError(id); ok {
			t.rec.Error("hedge")
		} else {
			t.rec.Error("unknown")
		}
	}
	t.publish()
}

// Shutdown 会话结束时撤销全部在途订单。
func (t *Trader) Shutdown() {
	canceled := t.orders.CancelAll()
	for range canceled {
		t.rec.OrderCanceled()
	}
	t.count(func(s *Stats) { s.Canceled += int64(len(canceled)) })
	t.log.Info("session shutdown",
		zap.Int("canceled", len(canceled)),
		zap.Int64("position", t.ledger.Position()),
		zap.Int64("hedge_position", t.ledger.HedgePosition()))
	t.publish()
}

// Tune 热更新可调参数：手数、网格偏移系数、对冲冷却、套利上限。
// 结构性参数（策略、仓位上限、tick、档数）变化仅记录日志。
func (t *Trader) Tune(cfg Config) {
	if cfg.Strategy != t.cfg.Strategy || cfg.PositionLimit != t.cfg.PositionLimit ||
		cfg.TickSize != t.cfg.TickSize || cfg.LadderDepth != t.cfg.LadderDepth ||
		cfg.MinBid != t.cfg.MinBid || cfg.MaxAsk != t.cfg.MaxAsk || cfg.HedgePolicy != t.cfg.HedgePolicy {
		t.log.Warn("structural trader settings changed; restart required to apply")
	}
	if cfg.LotSize <= 0 {
		t.log.Warn("ignore invalid lot size", zap.Int64("lot_size", cfg.LotSize))
		cfg.LotSize = t.cfg.LotSize
	}
	if cfg.SkewDivisor < 1 {
		cfg.SkewDivisor = t.cfg.SkewDivisor
	}
	t.cfg.LotSize = cfg.LotSize
	t.cfg.SkewDivisor = cfg.SkewDivisor
	t.cfg.HedgeCooldown = cfg.HedgeCooldown
	t.cfg.ArbMaxVolume = cfg.ArbMaxVolume
	t.strategy.Tune(t.cfg.strategyConfig())
	t.hedger.SetCooldown(cfg.HedgeCooldown)
	t.log.Info("trader tuned",
		zap.Int64("lot_size", t.cfg.LotSize),
		zap.Int64("skew_divisor", t.cfg.SkewDivisor),
		zap.Int("hedge_cooldown", t.cfg.HedgeCooldown),
		zap.Int64("arb_max_volume", t.cfg.ArbMaxVolume))
}

// Stats 返回统计快照，可在任意协程调用。
func (t *Trader) Stats() Stats {
	t.statsMu.RLock()
	defer t.statsMu.RUnlock()
	return t.stats
}

// Orders 自有订单（按 id 排序的副本）。仅在事件协程上调用。
func (t *Trader) Orders() []order.Order {
	return t.orders.Book().List()
}

// Ledger 仓位账本。仅在事件协程上调用。
func (t *Trader) Ledger() *inventory.Ledger {
	return t.ledger
}

func (t *Trader) observe(inst market.Instrument, sequence int64, book market.Book) {
	if stale := t.tracker.Observe(inst, sequence, book.AskPrices[0], book.BidPrices[0]); stale {
		t.log.Debug("stale update",
			zap.Stringer("instrument", inst),
			zap.Int64("sequence", sequence),
			zap.Int64("cursor", t.tracker.Sequence()))
		t.rec.StaleUpdate(inst)
		t.count(func(s *Stats) { s.StaleUpdates++ })
	}
	t.rec.Best(inst, t.tracker.Best(inst))
}

// requote 用本次 ETF 盘口与期货最新盘口生成计划并执行：先发套利单，再对账挂单。
func (t *Trader) requote(book market.Book) {
	snap := strategy.Snapshot{
		Tradable:    book.Touch(),
		BidVolume:   book.BidVolumes[0],
		AskVolume:   book.AskVolumes[0],
		Reference:   t.tracker.Best(market.Reference),
		Position:    t.ledger.Position(),
		BidCapacity: t.capacity(market.Buy),
		AskCapacity: t.capacity(market.Sell),
	}
	plan := t.strategy.Decide(snap)

	if arb := plan.Arbitrage; arb != nil {
		id, err := t.orders.InsertFAK(arb.Side, arb.Price, arb.Volume)
		if err != nil {
			t.log.Warn("arbitrage not sent", zap.Stringer("side", arb.Side), zap.Int64("price", arb.Price), zap.Error(err))
		} else {
			t.rec.OrderInserted(market.FillAndKill)
			t.count(func(s *Stats) {
				s.Arbitrages++
				s.Inserted++
			})
			t.log.Info("arbitrage",
				zap.Int64("order_id", id),
				zap.Stringer("side", arb.Side),
				zap.Int64("price", arb.Price),
				zap.Int64("volume", arb.Volume),
				zap.Int64("reference_bid", snap.Reference.Bid),
				zap.Int64("reference_ask", snap.Reference.Ask))
		}
	}

	res := t.orders.Reconcile(plan.Quotes, t.strategy.Depth())
	for range res.Inserted {
		t.rec.OrderInserted(market.GoodForDay)
	}
	for range res.Canceled {
		t.rec.OrderCanceled()
	}
	t.count(func(s *Stats) {
		s.Inserted += int64(len(res.Inserted))
		s.Canceled += int64(len(res.Canceled))
	})
}

// capacity 供报价定量的剩余容量：只扣除在途 FAK，已有挂单在下单时由 Manager 统一收敛。
func (t *Trader) capacity(side market.Side) int64 {
	book := t.orders.Book()
	return t.ledger.Capacity(side, book.Outstanding(side)-book.Quoting(side))
}

func (t *Trader) hedgeSent(h hedge.Hedge) {
	t.rec.Hedge(h.Side, h.Volume)
	t.journal.Hedge(h.ID, h.Side, h.Price, h.Volume)
	t.count(func(s *Stats) { s.Hedges++ })
}

func (t *Trader) count(fn func(s *Stats)) {
	t.statsMu.Lock()
	fn(&t.stats)
	t.statsMu.Unlock()
}

// publish 事件处理完毕后同步仓位与挂单数到统计和指标。
func (t *Trader) publish() {
	book := t.orders.Book()
	bids, asks := book.LiveCount(market.Buy), book.LiveCount(market.Sell)
	t.rec.Position(t.ledger.Position(), t.ledger.HedgePosition())
	t.rec.LiveOrders(market.Buy, bids)
	t.rec.LiveOrders(market.Sell, asks)
	fillStats := t.fills.Stats()
	etf, future := t.tracker.Best(market.Tradable), t.tracker.Best(market.Reference)
	valued := etf.Valid() && future.Valid()
	var pnl int64
	if valued {
		_, pnl = t.ledger.Valuation(etf.DoubleMid(), future.DoubleMid())
		t.rec.PnL(pnl)
	}
	t.count(func(s *Stats) {
		if valued {
			s.PnL = pnl
		}
		s.Position = t.ledger.Position()
		s.HedgePosition = t.ledger.HedgePosition()
		s.Cash = t.ledger.Cash()
		s.LiveBids = bids
		s.LiveAsks = asks
		s.FillStats = fillStats
	})
}
