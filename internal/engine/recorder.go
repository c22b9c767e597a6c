package engine

import "etf-market-maker/market"

// Recorder 接收引擎指标；infrastructure/monitor 提供 Prometheus 实现。
type Recorder interface {
	OrderInserted(lifespan market.Lifespan)
	OrderCanceled()
	Fill(side market.Side, volume int64)
	Hedge(side market.Side, volume int64)
	Error(kind string)
	StaleUpdate(inst market.Instrument)
	UnknownFill()
	Position(position, hedge int64)
	PnL(cents int64)
	Best(inst market.Instrument, depth market.Depth)
	LiveOrders(side market.Side, n int)
}

// Journal 持久化成交与对冲记录；调用不得阻塞事件协程。
type Journal interface {
	Fill(id int64, side market.Side, price, volume int64)
	Hedge(id int64, side market.Side, price, volume int64)
	HedgeFill(id, price, volume int64)
	OrderError(id int64, message string)
}

type nopRecorder struct{}

func (nopRecorder) OrderInserted(market.Lifespan) {}
func (nopRecorder) OrderCanceled() {}
func (nopRecorder) Fill(market.Side, int64) {}
func (nopRecorder) Hedge(market.Side, int64) {}
func (nopRecorder) Error(string) {}
func (nopRecorder) StaleUpdate(market.Instrument) {}
func (nopRecorder) UnknownFill() {}
func (nopRecorder) Position(int64, int64) {}
func (nopRecorder) PnL(int64) {}
func (nopRecorder) Best(market.Instrument, market.Depth) {}
func (nopRecorder) LiveOrders(market.Side, int) {}

type nopJournal struct{}

func (nopJournal) Fill(int64, market.Side, int64, int64) {}
func (nopJournal) Hedge(int64, market.Side, int64, int64) {}
func (nopJournal) HedgeFill(int64, int64, int64) {}
func (nopJournal) OrderError(int64, string) {}
