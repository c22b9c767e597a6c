package sim

import (
	"math/rand"

	"etf-market-maker/gateway"
	"etf-market-maker/market"
)

// RunnerConfig 随机游走行情参数，价格单位为分。
type RunnerConfig struct {
	TickSize    int64
	StartPrice  int64 // 期货初始买一
	MaxBasis    int64 // ETF 相对期货的最大偏离（tick 数）
	LevelVolume int64 // 每档挂单量
	TicksEvery  int   // 每隔多少步推送一次成交统计，0 表示每步
	Seed        int64
}

// DefaultRunnerConfig 默认参数
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		TickSize:    100,
		StartPrice:  10000,
		MaxBasis:    3,
		LevelVolume: 50,
		TicksEvery:  1,
		Seed:        1,
	}
}

// Summary 一次模拟的汇总
type Summary struct {
	Steps   int
	Inserts int
	Cancels int
	Hedges  int
}

// Runner 生成期货随机游走与带基差的 ETF 盘口，驱动 Handler，并用 Venue 撮合回报。
// Handler 在调用方协程上同步执行。
type Runner struct {
	cfg     RunnerConfig
	venue   *Venue
	handler gateway.Handler
	rnd     *rand.Rand

	futureBid int64
	seq       int64
	steps     int
}

func NewRunner(cfg RunnerConfig, venue *Venue, handler gateway.Handler) *Runner {
	if cfg.TickSize <= 0 {
		cfg.TickSize = 100
	}
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100 * cfg.TickSize
	}
	if cfg.LevelVolume <= 0 {
		cfg.LevelVolume = 50
	}
	return &Runner{
		cfg:       cfg,
		venue:     venue,
		handler:   handler,
		rnd:       rand.New(rand.NewSource(cfg.Seed)),
		futureBid: cfg.StartPrice / cfg.TickSize * cfg.TickSize,
	}
}

// Step 推进一步：期货盘口、ETF 盘口、撮合回报、成交统计。
func (r *Runner) Step() {
	tick := r.cfg.TickSize
	r.futureBid += int64(r.rnd.Intn(3)-1) * tick
	if r.futureBid < 10*tick {
		r.futureBid = 10 * tick
	}
	future := market.Depth{Bid: r.futureBid, Ask: r.futureBid + tick}

	var basis int64
	if r.cfg.MaxBasis > 0 {
		basis = r.rnd.Int63n(2*r.cfg.MaxBasis+1) - r.cfg.MaxBasis
	}
	etfBid := future.Bid + basis*tick
	etf := market.Depth{Bid: etfBid, Ask: etfBid + tick*int64(1+r.rnd.Intn(2))}

	r.seq++
	r.handler.OnOrderBookUpdate(market.Reference, r.seq, r.book(future))
	r.seq++
	r.handler.OnOrderBookUpdate(market.Tradable, r.seq, r.book(etf))

	r.venue.Settle(r.handler, etf, future)

	r.steps++
	if r.cfg.TicksEvery <= 1 || r.steps%r.cfg.TicksEvery == 0 {
		r.seq++
		r.handler.OnTradeTicks(market.Reference, r.seq, r.book(future))
		r.seq++
		r.handler.OnTradeTicks(market.Tradable, r.seq, r.book(etf))
		// 延迟对冲在成交统计事件上发出，同一步内回报
		r.venue.Settle(r.handler, etf, future)
	}
}

// Run 连续推进 n 步并返回汇总
func (r *Runner) Run(n int) Summary {
	for i := 0; i < n; i++ {
		r.Step()
	}
	return Summary{
		Steps:   r.steps,
		Inserts: len(r.venue.CallsOf(CallInsert)),
		Cancels: len(r.venue.CallsOf(CallCancel)),
		Hedges:  len(r.venue.CallsOf(CallHedge)),
	}
}

// book 以最优价为起点向外每档一个 tick 生成五档盘口。
func (r *Runner) book(d market.Depth) market.Book {
	var b market.Book
	for i := 0; i < market.Levels; i++ {
		step := int64(i) * r.cfg.TickSize
		b.BidPrices[i] = d.Bid - step
		b.AskPrices[i] = d.Ask + step
		b.BidVolumes[i] = r.cfg.LevelVolume
		b.AskVolumes[i] = r.cfg.LevelVolume
	}
	return b
}
