package config

import "fmt"

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// Validate ensures required fields are present and consistent.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return ErrInvalid("env is required")
	}
	if err := ValidateTrader(cfg.Trader); err != nil {
		return err
	}
	if cfg.Gateway.RateLimit < 0 {
		return ErrInvalid("gateway.rateLimit must be >= 0")
	}
	if cfg.Gateway.Burst < 0 || cfg.Gateway.QueueSize < 0 {
		return ErrInvalid("gateway.burst/queueSize must be >= 0")
	}
	if cfg.Journal.BufferSize < 0 {
		return ErrInvalid("journal.bufferSize must be >= 0")
	}
	return nil
}

// ValidateTrader 校验交易参数；热更新时也用它过滤非法配置。
func ValidateTrader(tc TraderConfig) error {
	switch tc.Strategy {
	case "single", "ladder":
	default:
		return ErrInvalid(fmt.Sprintf("trader.strategy %q must be single or ladder", tc.Strategy))
	}
	switch tc.HedgePolicy {
	case "", "immediate", "debounced":
	default:
		return ErrInvalid(fmt.Sprintf("trader.hedgePolicy %q must be immediate or debounced", tc.HedgePolicy))
	}
	if tc.TickSize <= 0 {
		return ErrInvalid("trader.tickSize must be > 0")
	}
	if tc.LotSize <= 0 {
		return ErrInvalid("trader.lotSize must be > 0")
	}
	if tc.PositionLimit <= 0 {
		return ErrInvalid("trader.positionLimit must be > 0")
	}
	if tc.MinBid <= 0 || tc.MinBid >= tc.MaxAsk {
		return ErrInvalid(fmt.Sprintf("trader.minBid %d must be > 0 and < maxAsk %d", tc.MinBid, tc.MaxAsk))
	}
	if tc.MaxAsk/tc.TickSize*tc.TickSize < tc.MinBid {
		return ErrInvalid("trader price range holds no tick")
	}
	if tc.LadderDepth < 1 {
		return ErrInvalid("trader.ladderDepth must be >= 1")
	}
	if tc.SkewDivisor < 1 {
		return ErrInvalid("trader.skewDivisor must be >= 1")
	}
	if tc.HedgeCooldown < 0 {
		return ErrInvalid("trader.hedgeCooldown must be >= 0")
	}
	if tc.ArbMaxVolume < 0 {
		return ErrInvalid("trader.arbMaxVolume must be >= 0")
	}
	return nil
}
