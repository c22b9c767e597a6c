package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"etf-market-maker/market"
)

// 报文类型
const (
	FrameOrderBook   = "order_book"
	FrameTradeTicks  = "trade_ticks"
	FrameOrderFilled = "order_filled"
	FrameOrderStatus = "order_status"
	FrameHedgeFilled = "hedge_filled"
	FrameError       = "error"

	FrameInsert = "insert"
	FrameCancel = "cancel"
	FrameHedge  = "hedge"
)

var (
	ErrUnknownFrame      = errors.New("unknown frame type")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrSubCent           = errors.New("price finer than one cent")
)

// 线上价格以美元小数表示，引擎内部以整数美分计。
var hundred = decimal.NewFromInt(100)

// ToCents 把美元价格转换为美分，拒绝低于 1 美分的精度。
func ToCents(d decimal.Decimal) (int64, error) {
	c := d.Mul(hundred)
	if !c.Equal(c.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrSubCent, d.String())
	}
	return c.IntPart(), nil
}

// FromCents 美分 -> 美元
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

type frame struct {
	Type string `json:"type"`
}

type bookFrame struct {
	Instrument string            `json:"instrument"`
	Sequence   int64             `json:"sequence"`
	AskPrices  []decimal.Decimal `json:"ask_prices"`
	AskVolumes []int64           `json:"ask_volumes"`
	BidPrices  []decimal.Decimal `json:"bid_prices"`
	BidVolumes []int64           `json:"bid_volumes"`
}

type fillFrame struct {
	ID     int64           `json:"id"`
	Price  decimal.Decimal `json:"price"`
	Volume int64           `json:"volume"`
}

type statusFrame struct {
	ID              int64           `json:"id"`
	FillVolume      int64           `json:"fill_volume"`
	RemainingVolume int64           `json:"remaining_volume"`
	Fees            decimal.Decimal `json:"fees"`
}

type errorFrame struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type orderFrame struct {
	Type     string           `json:"type"`
	ID       int64            `json:"id"`
	Side     string           `json:"side,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Volume   int64            `json:"volume,omitempty"`
	Lifespan string           `json:"lifespan,omitempty"`
}

func parseInstrument(s string) (market.Instrument, error) {
	switch s {
	case "ETF":
		return market.Tradable, nil
	case "FUTURE":
		return market.Reference, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownInstrument, s)
}

func (f bookFrame) book() (market.Book, error) {
	var b market.Book
	if err := fillLevels(b.AskPrices[:], b.AskVolumes[:], f.AskPrices, f.AskVolumes); err != nil {
		return b, err
	}
	if err := fillLevels(b.BidPrices[:], b.BidVolumes[:], f.BidPrices, f.BidVolumes); err != nil {
		return b, err
	}
	return b, nil
}

// fillLevels 多于五档的部分截断，不足的补 0。
func fillLevels(prices, volumes []int64, wirePrices []decimal.Decimal, wireVolumes []int64) error {
	for i := 0; i < market.Levels && i < len(wirePrices); i++ {
		c, err := ToCents(wirePrices[i])
		if err != nil {
			return err
		}
		prices[i] = c
	}
	copy(volumes, wireVolumes)
	return nil
}

// Decode 解析一条交易所报文并调用对应回调。
func Decode(raw []byte, h Handler) error {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	switch f.Type {
	case FrameOrderBook, FrameTradeTicks:
		var bf bookFrame
		if err := json.Unmarshal(raw, &bf); err != nil {
			return fmt.Errorf("decode %s: %w", f.Type, err)
		}
		inst, err := parseInstrument(bf.Instrument)
		if err != nil {
			return err
		}
		book, err := bf.book()
		if err != nil {
			return err
		}
		if f.Type == FrameOrderBook {
			h.OnOrderBookUpdate(inst, bf.Sequence, book)
		} else {
			h.OnTradeTicks(inst, bf.Sequence, book)
		}
	case FrameOrderFilled, FrameHedgeFilled:
		var ff fillFrame
		if err := json.Unmarshal(raw, &ff); err != nil {
			return fmt.Errorf("decode %s: %w", f.Type, err)
		}
		price, err := ToCents(ff.Price)
		if err != nil {
			return err
		}
		if f.Type == FrameOrderFilled {
			h.OnOrderFilled(ff.ID, price, ff.Volume)
		} else {
			h.OnHedgeFilled(ff.ID, price, ff.Volume)
		}
	case FrameOrderStatus:
		var sf statusFrame
		if err := json.Unmarshal(raw, &sf); err != nil {
			return fmt.Errorf("decode %s: %w", f.Type, err)
		}
		fees, err := ToCents(sf.Fees)
		if err != nil {
			return err
		}
		h.OnOrderStatus(sf.ID, sf.FillVolume, sf.RemainingVolume, fees)
	case FrameError:
		var ef errorFrame
		if err := json.Unmarshal(raw, &ef); err != nil {
			return fmt.Errorf("decode %s: %w", f.Type, err)
		}
		h.OnError(ef.ID, ef.Message)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
	}
	return nil
}

func encodeInsert(id int64, side market.Side, price, volume int64, lifespan market.Lifespan) ([]byte, error) {
	p := FromCents(price)
	return json.Marshal(orderFrame{
		Type:     FrameInsert,
		ID:       id,
		Side:     side.String(),
		Price:    &p,
		Volume:   volume,
		Lifespan: lifespan.String(),
	})
}

func encodeCancel(id int64) ([]byte, error) {
	return json.Marshal(orderFrame{Type: FrameCancel, ID: id})
}

func encodeHedge(id int64, side market.Side, price, volume int64) ([]byte, error) {
	p := FromCents(price)
	return json.Marshal(orderFrame{
		Type:   FrameHedge,
		ID:     id,
		Side:   side.String(),
		Price:  &p,
		Volume: volume,
	})
}
