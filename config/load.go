package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"etf-market-maker/infrastructure/logger"
	"etf-market-maker/internal/engine"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Trader  TraderConfig  `yaml:"trader"`
	Gateway GatewayConfig `yaml:"gateway"`
	Logging logger.Config `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Journal JournalConfig `yaml:"journal"`
}

// TraderConfig 交易参数，价格单位为分。
type TraderConfig struct {
	Strategy      string `yaml:"strategy"`      // single 或 ladder
	HedgePolicy   string `yaml:"hedgePolicy"`   // immediate 或 debounced，留空按策略取默认
	TickSize      int64  `yaml:"tickSize"`      // 最小价格变动
	LotSize       int64  `yaml:"lotSize"`       // 单次报价数量
	PositionLimit int64  `yaml:"positionLimit"` // ETF 持仓绝对值上限
	MinBid        int64  `yaml:"minBid"`        // 有效价格下限
	MaxAsk        int64  `yaml:"maxAsk"`        // 有效价格上限
	LadderDepth   int    `yaml:"ladderDepth"`   // 网格每侧档数
	SkewDivisor   int64  `yaml:"skewDivisor"`   // 每多少手持仓偏移一个 tick
	HedgeCooldown int    `yaml:"hedgeCooldown"` // 距上次对冲多少次盘口更新后放宽阈值，0 不放宽
	ArbMaxVolume  int64  `yaml:"arbMaxVolume"`  // 单笔套利上限，0 不限
}

type GatewayConfig struct {
	URL       string  `yaml:"url"`
	RateLimit float64 `yaml:"rateLimit"` // 每秒消息数
	Burst     int     `yaml:"burst"`
	QueueSize int     `yaml:"queueSize"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	Path       string `yaml:"path"` // 为空表示不落盘
	BufferSize int    `yaml:"bufferSize"`
}

// Default 返回单对做市的默认配置。
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Trader: TraderConfig{
			Strategy:      "single",
			TickSize:      100,
			LotSize:       5,
			PositionLimit: 90,
			MinBid:        1,
			MaxAsk:        2147483647,
			LadderDepth:   3,
			SkewDivisor:   40,
		},
		Gateway: GatewayConfig{
			RateLimit: 50,
			Burst:     50,
			QueueSize: 1024,
		},
		Logging: logger.DefaultConfig(),
		Metrics: MetricsConfig{Addr: ":9101"},
		Journal: JournalConfig{BufferSize: 1024},
	}
}

// Load reads YAML config from path on top of the defaults and validates it.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("MM_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("MM_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("MM_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
	if v := os.Getenv("MM_POSITION_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, ErrInvalid("MM_POSITION_LIMIT must be an integer")
		}
		cfg.Trader.PositionLimit = n
	}
	return cfg, Validate(cfg)
}

// Engine 转换为引擎参数
func (tc TraderConfig) Engine() engine.Config {
	return engine.Config{
		Strategy:      tc.Strategy,
		HedgePolicy:   tc.HedgePolicy,
		TickSize:      tc.TickSize,
		LotSize:       tc.LotSize,
		PositionLimit: tc.PositionLimit,
		MinBid:        tc.MinBid,
		MaxAsk:        tc.MaxAsk,
		LadderDepth:   tc.LadderDepth,
		SkewDivisor:   tc.SkewDivisor,
		HedgeCooldown: tc.HedgeCooldown,
		ArbMaxVolume:  tc.ArbMaxVolume,
	}
}
