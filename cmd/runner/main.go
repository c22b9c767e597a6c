package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"etf-market-maker/config"
	"etf-market-maker/gateway"
	"etf-market-maker/infrastructure/logger"
	"etf-market-maker/infrastructure/monitor"
	"etf-market-maker/internal/engine"
	"etf-market-maker/internal/journal"
	"etf-market-maker/metrics"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	dryRun := flag.Bool("dryRun", false, "仅日志输出，不真正下单")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Gateway.URL == "" {
		log.Fatalf("gateway.url 未配置（或设置 MM_GATEWAY_URL）")
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()
	lg.LogSession("start", zap.String("env", cfg.Env), zap.String("config", *cfgPath), zap.Bool("dry_run", *dryRun))

	mon := monitor.New(monitor.DefaultConfig())
	components := engine.Components{Recorder: mon, Logger: lg.Logger}

	if cfg.Journal.Path != "" {
		jr, err := journal.Open(cfg.Journal.Path, cfg.Journal.BufferSize, lg.Named("journal"))
		if err != nil {
			lg.Fatal("open journal failed", zap.Error(err))
		}
		jr.Start()
		defer jr.Close()
		components.Journal = jr
		lg.Info("journal opened", zap.String("path", cfg.Journal.Path), zap.String("session", jr.Session()))
	}

	out := &sink{}
	if *dryRun {
		out.Gateway = gateway.NewLoggingGateway(lg.Logger)
	}
	components.Gateway = out

	trader, err := engine.NewTrader(cfg.Trader.Engine(), components)
	if err != nil {
		lg.Fatal("create trader failed", zap.Error(err))
	}
	loop := engine.NewLoop(trader, cfg.Gateway.QueueSize, lg.Named("loop"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接在事件循环启动前建立：期间到达的回调先排队
	client, err := gateway.Dial(ctx, gateway.WSConfig{
		URL:       cfg.Gateway.URL,
		RateLimit: cfg.Gateway.RateLimit,
		Burst:     cfg.Gateway.Burst,
		QueueSize: cfg.Gateway.QueueSize,
	}, loop, mon, lg.Named("gateway"))
	if err != nil {
		lg.Fatal("connect gateway failed", zap.Error(err))
	}
	if out.Gateway == nil {
		out.Gateway = client
	}
	if err := loop.Start(ctx); err != nil {
		lg.Fatal("start loop failed", zap.Error(err))
	}

	var srv *metrics.Server
	if cfg.Metrics.Addr != "" {
		srv = metrics.NewServer(cfg.Metrics.Addr, mon.Handler())
		if err := srv.Start(); err != nil {
			lg.Fatal("start metrics server failed", zap.Error(err))
		}
		lg.Info("metrics listening", zap.String("addr", srv.Addr()))
	}

	watcher, err := config.NewWatcher(*cfgPath, 2*time.Second, func(next config.AppConfig) {
		tc := next.Trader.Engine()
		if err := loop.Do(func() { trader.Tune(tc) }); err != nil {
			lg.Warn("config reload skipped", zap.Error(err))
			return
		}
		lg.LogSession("reload", zap.String("config", *cfgPath))
	}, func(err error) {
		lg.Warn("config reload failed", zap.Error(err))
	})
	if err != nil {
		lg.Warn("config watcher disabled", zap.Error(err))
	} else if err := watcher.Start(ctx); err != nil {
		lg.Warn("config watcher disabled", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		lg.Warn("sd_notify ready failed", zap.Error(err))
	} else if ok {
		lg.Debug("sd_notify ready sent")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		lg.Info("signal received", zap.String("signal", sig.String()))
	case <-client.Done():
		lg.Error("gateway disconnected", zap.Error(client.Err()))
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	// 先停循环：Shutdown 的撤单进入发送队列，再关闭连接时写出
	if err := loop.Stop(); err != nil {
		lg.Warn("stop loop", zap.Error(err))
	}
	if err := client.Close(); err != nil {
		lg.Warn("close gateway", zap.Error(err))
	}
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		done()
	}
	cancel()

	st := trader.Stats()
	lg.LogSession("stop",
		zap.Int64("fills", st.Fills),
		zap.Int64("hedges", st.Hedges),
		zap.Int64("errors", st.Errors),
		zap.Int64("position", st.Position),
		zap.Int64("hedge_position", st.HedgePosition),
		zap.Int64("cash", st.Cash),
		zap.Uint64("send_dropped", client.Dropped()))
}

// sink 转发到真正的出口；在事件循环启动前赋值。
type sink struct {
	gateway.Gateway
}
