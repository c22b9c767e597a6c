package strategy

import (
	"errors"
	"fmt"
)

// StrategyType 策略名称，与配置文件中的 trader.strategy 对应。
type StrategyType string

const (
	SingleStrategy StrategyType = "single"
	LadderStrategy StrategyType = "ladder"
)

var ErrUnknownStrategy = errors.New("unknown strategy type")

// New creates a strategy instance based on the type and configuration.
func New(strategyType string, cfg Config) (Strategy, error) {
	if cfg.TickSize <= 0 || cfg.LotSize <= 0 {
		return nil, fmt.Errorf("invalid strategy config: tickSize=%d lotSize=%d", cfg.TickSize, cfg.LotSize)
	}
	switch StrategyType(strategyType) {
	case SingleStrategy:
		return NewSinglePair(cfg), nil
	case LadderStrategy:
		if cfg.LadderDepth < 1 {
			return nil, fmt.Errorf("invalid ladder depth %d", cfg.LadderDepth)
		}
		return NewLadder(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategyType)
	}
}
