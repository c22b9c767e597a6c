package order

import (
	"sync"
	"time"

	"etf-market-maker/market"
)

// FillEvent 一笔成交（ETF 挂单或对冲单）。
type FillEvent struct {
	OrderID    int64
	Instrument market.Instrument
	Side       market.Side
	Price      int64
	Volume     int64
	Timestamp  time.Time
}

// FillTracker 保留最近的成交记录并累计成交量，供统计与状态输出使用。
// 事件协程写入，其他协程可并发读取。
type FillTracker struct {
	mu sync.RWMutex

	recentFills []FillEvent
	maxHistory  int

	totalFills int
	volume     [2][2]int64 // [instrument][side]
	now        func() time.Time
}

// NewFillTracker 创建成交跟踪器
func NewFillTracker(maxHistory int) *FillTracker {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &FillTracker{
		recentFills: make([]FillEvent, 0, maxHistory),
		maxHistory:  maxHistory,
		now:         time.Now,
	}
}

// RecordFill 记录成交
func (f *FillTracker) RecordFill(id int64, inst market.Instrument, side market.Side, price, volume int64) {
	if !inst.Valid() || volume <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recentFills = append(f.recentFills, FillEvent{
		OrderID:    id,
		Instrument: inst,
		Side:       side,
		Price:      price,
		Volume:     volume,
		Timestamp:  f.now(),
	})
	if len(f.recentFills) > f.maxHistory {
		f.recentFills = f.recentFills[len(f.recentFills)-f.maxHistory:]
	}
	f.totalFills++
	f.volume[inst][side] += volume
}

// RecentFills 返回 duration 内的成交记录（副本）
func (f *FillTracker) RecentFills(duration time.Duration) []FillEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cutoff := f.now().Add(-duration)
	var result []FillEvent
	for _, fill := range f.recentFills {
		if fill.Timestamp.After(cutoff) {
			result = append(result, fill)
		}
	}
	return result
}

// Volume 某品种某方向的累计成交量
func (f *FillTracker) Volume(inst market.Instrument, side market.Side) int64 {
	if !inst.Valid() {
		return 0
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.volume[inst][side]
}

// Reset 重置跟踪器
func (f *FillTracker) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recentFills = make([]FillEvent, 0, f.maxHistory)
	f.totalFills = 0
	f.volume = [2][2]int64{}
}

// Stats 获取统计信息
func (f *FillTracker) Stats() FillTrackerStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return FillTrackerStats{
		TotalFills:  f.totalFills,
		RecentFills: len(f.recentFills),
		ETFBought:   f.volume[market.Tradable][market.Buy],
		ETFSold:     f.volume[market.Tradable][market.Sell],
		HedgeBought: f.volume[market.Reference][market.Buy],
		HedgeSold:   f.volume[market.Reference][market.Sell],
	}
}

// FillTrackerStats 成交跟踪器统计
type FillTrackerStats struct {
	TotalFills  int
	RecentFills int
	ETFBought   int64
	ETFSold     int64
	HedgeBought int64
	HedgeSold   int64
}
