package order

import "etf-market-maker/market"

// Status represents order lifecycle.
type Status int

const (
	StatusPending Status = iota
	StatusResting
	StatusPartiallyFilled
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusResting:
		return "RESTING"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Order holds the engine's view of one of its own ETF orders.
type Order struct {
	ID       int64
	Side     market.Side
	Price    int64
	Volume   int64 // 下单数量
	Filled   int64
	Lifespan market.Lifespan
	Status   Status
	// CancelRequested 已发出撤单但尚未收到 remaining == 0 的回报。
	CancelRequested bool
}

// Remaining 剩余未成交数量。
func (o *Order) Remaining() int64 {
	if r := o.Volume - o.Filled; r > 0 {
		return r
	}
	return 0
}

// Quoting 是否为占用报价档位的挂单（FAK 不占档位）。
func (o *Order) Quoting() bool {
	return o.Lifespan == market.GoodForDay
}
