package market

import "fmt"

// Instrument 标识两个行情品种：可交易的 ETF 与仅用于对冲的期货。
type Instrument int

const (
	Tradable  Instrument = iota // ETF
	Reference                   // FUTURE
)

// instrumentCount 用于按品种索引的定长数组。
const instrumentCount = 2

func (i Instrument) String() string {
	switch i {
	case Tradable:
		return "ETF"
	case Reference:
		return "FUTURE"
	default:
		return fmt.Sprintf("Instrument(%d)", int(i))
	}
}

// Valid 判断品种是否属于已知枚举。
func (i Instrument) Valid() bool {
	return i >= 0 && i < instrumentCount
}

// Side 买卖方向。
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite 返回反方向。
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Lifespan 订单存续方式。
type Lifespan int

const (
	// GoodForDay 挂单直到撤单或完全成交。
	GoodForDay Lifespan = iota
	// FillAndKill 立即成交，剩余部分由交易所丢弃。
	FillAndKill
)

func (l Lifespan) String() string {
	if l == FillAndKill {
		return "FILL_AND_KILL"
	}
	return "GOOD_FOR_DAY"
}

// Levels 每个行情推送携带的档位数。
const Levels = 5

// Book 五档行情（或五档成交统计），下标 0 为最优价，不足五档时末尾补 0。
type Book struct {
	AskPrices  [Levels]int64
	AskVolumes [Levels]int64
	BidPrices  [Levels]int64
	BidVolumes [Levels]int64
}

// Touch 返回第 0 档买卖价。
func (b Book) Touch() Depth {
	return Depth{Bid: b.BidPrices[0], Ask: b.AskPrices[0]}
}
