// Package gateway 定义引擎与交易所之间的双向契约，并提供一个 websocket 实现。
package gateway

import "etf-market-maker/market"

// Gateway 是引擎向交易所发出指令的接口。所有调用都立即返回，
// 结果以后续回调事件的形式到达。价格与数量由调用方保证满足 tick/仓位约束。
type Gateway interface {
	InsertOrder(id int64, side market.Side, price, volume int64, lifespan market.Lifespan)
	CancelOrder(id int64)
	HedgeOrder(id int64, side market.Side, price, volume int64)
}

// Handler 是交易所向引擎推送事件的回调接口。
type Handler interface {
	// OnOrderBookUpdate 五档盘口快照，下标 0 为最优价。
	OnOrderBookUpdate(inst market.Instrument, sequence int64, book market.Book)
	// OnTradeTicks 五档成交量统计，形状与盘口相同。
	OnTradeTicks(inst market.Instrument, sequence int64, ticks market.Book)
	// OnOrderFilled 同一订单可能多次部分成交，price 可能优于限价。
	OnOrderFilled(id, price, volume int64)
	// OnOrderStatus remaining == 0 是订单唯一的终态信号（成交完、撤单、FAK 过期）。
	OnOrderStatus(id, fillVolume, remainingVolume, fees int64)
	OnHedgeFilled(id, price, volume int64)
	// OnError id == 0 表示与具体订单无关的交易所错误。
	OnError(id int64, message string)
}
