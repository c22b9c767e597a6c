package main

import (
	"flag"
	"fmt"
	"log"

	"etf-market-maker/config"
	"etf-market-maker/infrastructure/logger"
	"etf-market-maker/internal/engine"
	"etf-market-maker/sim"
)

// 本地模拟：期货随机游走、ETF 带基差，撮合回报由模拟交易所生成，不连接任何外部服务。
func main() {
	cfgPath := flag.String("config", "", "配置文件路径，留空使用默认参数")
	steps := flag.Int("steps", 1000, "模拟步数")
	seed := flag.Int64("seed", 1, "随机种子")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
	}
	lg, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	venue := sim.NewVenue()
	trader, err := engine.NewTrader(cfg.Trader.Engine(), engine.Components{Gateway: venue, Logger: lg.Logger})
	if err != nil {
		log.Fatalf("初始化交易会话失败: %v", err)
	}

	rc := sim.DefaultRunnerConfig()
	rc.TickSize = cfg.Trader.TickSize
	rc.Seed = *seed
	summary := sim.NewRunner(rc, venue, trader).Run(*steps)
	trader.Shutdown()

	st := trader.Stats()
	fmt.Printf("steps=%d inserts=%d cancels=%d hedges=%d\n", summary.Steps, summary.Inserts, summary.Cancels, summary.Hedges)
	fmt.Printf("fills=%d unknown_fills=%d arbitrages=%d errors=%d fees=%d\n", st.Fills, st.UnknownFills, st.Arbitrages, st.Errors, st.Fees)
	fmt.Printf("position=%d hedge_position=%d cash=%d\n", st.Position, st.HedgePosition, st.Cash)
	fmt.Printf("etf bought=%d sold=%d, future bought=%d sold=%d\n",
		st.FillStats.ETFBought, st.FillStats.ETFSold, st.FillStats.HedgeBought, st.FillStats.HedgeSold)
}
