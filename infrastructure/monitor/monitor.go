package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"etf-market-maker/market"
)

// Monitor Prometheus监控指标收集器，实现 engine.Recorder。
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	ordersInserted *prometheus.CounterVec // lifespan
	ordersCanceled prometheus.Counter
	fills          *prometheus.CounterVec // side
	filledVolume   *prometheus.CounterVec // side
	unknownFills   prometheus.Counter
	errors         *prometheus.CounterVec // kind

	// 对冲指标
	hedges       *prometheus.CounterVec // side
	hedgedVolume *prometheus.CounterVec // side

	// 仓位指标
	position      prometheus.Gauge
	hedgePosition prometheus.Gauge
	pnl           prometheus.Gauge
	liveOrders    *prometheus.GaugeVec // side

	// 市场指标
	bestBid      *prometheus.GaugeVec // instrument
	bestAsk      *prometheus.GaugeVec // instrument
	staleUpdates *prometheus.CounterVec

	// 网关指标
	wsConnections prometheus.Counter
	wsDisconnects prometheus.Counter
	sendDropped   prometheus.Counter
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "mm",
		Subsystem: "etf",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help})
	}
	counterVec := func(name, help, label string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help}, []string{label})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help})
	}
	gaugeVec := func(name, help, label string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help}, []string{label})
	}

	return &Monitor{
		registry: reg,

		ordersInserted: counterVec("orders_inserted_total", "ETF 下单总数", "lifespan"),
		ordersCanceled: counter("orders_canceled_total", "撤单请求总数"),
		fills:          counterVec("fills_total", "ETF 成交笔数", "side"),
		filledVolume:   counterVec("filled_volume_total", "ETF 成交手数", "side"),
		unknownFills:   counter("unknown_fills_total", "无法归属的成交回报"),
		errors:         counterVec("errors_total", "错误回报", "kind"),

		hedges:       counterVec("hedges_total", "期货对冲单数", "side"),
		hedgedVolume: counterVec("hedged_volume_total", "期货对冲手数", "side"),

		position:      gauge("position", "ETF 持仓"),
		hedgePosition: gauge("hedge_position", "期货持仓"),
		pnl:           gauge("pnl_cents", "按中间价盯市的盈亏（分）"),
		liveOrders:    gaugeVec("live_orders", "当前挂单数", "side"),

		bestBid:      gaugeVec("best_bid", "最优买价（分）", "instrument"),
		bestAsk:      gaugeVec("best_ask", "最优卖价（分）", "instrument"),
		staleUpdates: counterVec("stale_updates_total", "乱序行情", "instrument"),

		wsConnections: counter("ws_connections_total", "WebSocket连接次数"),
		wsDisconnects: counter("ws_disconnects_total", "WebSocket断开次数"),
		sendDropped:   counter("send_dropped_total", "发送队列已满被丢弃的指令"),
	}
}

func (m *Monitor) OrderInserted(lifespan market.Lifespan) {
	m.ordersInserted.WithLabelValues(lifespan.String()).Inc()
}

func (m *Monitor) OrderCanceled() {
	m.ordersCanceled.Inc()
}

func (m *Monitor) Fill(side market.Side, volume int64) {
	m.fills.WithLabelValues(side.String()).Inc()
	m.filledVolume.WithLabelValues(side.String()).Add(float64(volume))
}

func (m *Monitor) Hedge(side market.Side, volume int64) {
	m.hedges.WithLabelValues(side.String()).Inc()
	m.hedgedVolume.WithLabelValues(side.String()).Add(float64(volume))
}

func (m *Monitor) Error(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}

func (m *Monitor) StaleUpdate(inst market.Instrument) {
	m.staleUpdates.WithLabelValues(inst.String()).Inc()
}

func (m *Monitor) UnknownFill() {
	m.unknownFills.Inc()
}

func (m *Monitor) Position(position, hedge int64) {
	m.position.Set(float64(position))
	m.hedgePosition.Set(float64(hedge))
}

func (m *Monitor) PnL(cents int64) {
	m.pnl.Set(float64(cents))
}

// Best 0 表示该侧暂无报价，不更新。
func (m *Monitor) Best(inst market.Instrument, depth market.Depth) {
	if depth.Bid > 0 {
		m.bestBid.WithLabelValues(inst.String()).Set(float64(depth.Bid))
	}
	if depth.Ask > 0 {
		m.bestAsk.WithLabelValues(inst.String()).Set(float64(depth.Ask))
	}
}

func (m *Monitor) LiveOrders(side market.Side, n int) {
	m.liveOrders.WithLabelValues(side.String()).Set(float64(n))
}

// RecordWSConnection 记录WebSocket连接
func (m *Monitor) RecordWSConnection() {
	m.wsConnections.Inc()
}

// RecordWSDisconnect 记录WebSocket断开
func (m *Monitor) RecordWSDisconnect() {
	m.wsDisconnects.Inc()
}

// RecordSendDropped 记录发送队列溢出
func (m *Monitor) RecordSendDropped() {
	m.sendDropped.Inc()
}

// Handler 返回HTTP handler用于Prometheus抓取
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回Prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
