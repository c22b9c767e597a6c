package order

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidVolume = errors.New("invalid volume")
)

// Constraints 描述交易所的价格步长与有效价格区间。
type Constraints struct {
	TickSize int64
	MinPrice int64
	MaxPrice int64
}

// Validate 检查价格是否为 tick 的正整数倍且落在有效区间内，数量是否为正。
func (c Constraints) Validate(price, volume int64) error {
	if price <= 0 {
		return fmt.Errorf("%w: %d <= 0", ErrInvalidPrice, price)
	}
	if c.TickSize > 0 && price%c.TickSize != 0 {
		return fmt.Errorf("%w: %d not aligned to tickSize %d", ErrInvalidPrice, price, c.TickSize)
	}
	if c.MinPrice > 0 && price < c.MinPrice {
		return fmt.Errorf("%w: %d < min %d", ErrInvalidPrice, price, c.MinPrice)
	}
	if c.MaxPrice > 0 && price > c.MaxPrice {
		return fmt.Errorf("%w: %d > max %d", ErrInvalidPrice, price, c.MaxPrice)
	}
	if volume <= 0 {
		return fmt.Errorf("%w: %d <= 0", ErrInvalidVolume, volume)
	}
	return nil
}

// HedgeSellPrice 对冲卖单使用的必然成交价：有效区间内最低的 tick 价。
func (c Constraints) HedgeSellPrice() int64 {
	return (c.MinPrice + c.TickSize) / c.TickSize * c.TickSize
}

// HedgeBuyPrice 对冲买单使用的必然成交价：有效区间内最高的 tick 价。
func (c Constraints) HedgeBuyPrice() int64 {
	return c.MaxPrice / c.TickSize * c.TickSize
}
