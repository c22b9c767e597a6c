package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"etf-market-maker/gateway"
	"etf-market-maker/market"
)

// EngineState 引擎状态
type EngineState int

const (
	// StateIdle 空闲状态
	StateIdle EngineState = iota
	// StateRunning 运行状态
	StateRunning
	// StateStopped 停止状态
	StateStopped
)

// String 返回状态名称
func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

var ErrLoopStopped = errors.New("loop stopped")

// Session 在事件协程上运行的交易会话。
type Session interface {
	gateway.Handler
	Shutdown()
}

// Loop 把来自传输层各协程的回调排队，在单一协程上依次交给 Session 处理。
// Loop 自身实现 gateway.Handler，可直接注册给传输层。
type Loop struct {
	session Session
	events  chan func()
	log     *zap.Logger

	state EngineState
	mu    sync.RWMutex

	// 控制通道
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewLoop 创建事件循环；queueSize 为排队事件上限，满时投递方阻塞。
func NewLoop(session Session, queueSize int, log *zap.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		session:  session,
		events:   make(chan func(), queueSize),
		log:      log,
		state:    StateIdle,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start 启动事件协程
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return fmt.Errorf("loop already started (state: %s)", l.state)
	}
	l.state = StateRunning
	go l.run(ctx)
	l.log.Info("event loop started", zap.Int("queue_size", cap(l.events)))
	return nil
}

// Stop 停止事件协程。退出前在事件协程上撤销全部挂单。
func (l *Loop) Stop() error {
	l.mu.Lock()
	switch l.state {
	case StateIdle:
		l.mu.Unlock()
		return fmt.Errorf("loop not running (state: %s)", l.state)
	case StateStopped:
		l.mu.Unlock()
		return nil // 幂等：已停止则直接返回
	}
	l.state = StateStopped
	close(l.stopChan)
	l.mu.Unlock()

	select {
	case <-l.doneChan:
	case <-time.After(10 * time.Second):
		l.log.Warn("timeout waiting for event loop to stop")
	}
	l.log.Info("event loop stopped")
	return nil
}

// Done 事件协程退出后关闭。
func (l *Loop) Done() <-chan struct{} {
	return l.doneChan
}

// State 获取当前状态
func (l *Loop) State() EngineState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Do 把 fn 投递到事件协程执行。循环已停止时返回 ErrLoopStopped。
func (l *Loop) Do(fn func()) error {
	select {
	case <-l.stopChan:
		return ErrLoopStopped
	default:
	}
	select {
	case l.events <- fn:
		return nil
	case <-l.stopChan:
		return ErrLoopStopped
	}
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.doneChan)
	defer l.session.Shutdown()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("context done, stopping event loop")
			return
		case <-l.stopChan:
			return
		case fn := <-l.events:
			fn()
		}
	}
}

func (l *Loop) dispatch(name string, fn func()) {
	if err := l.Do(fn); err != nil {
		l.log.Debug("event dropped", zap.String("event", name), zap.Error(err))
	}
}

func (l *Loop) OnOrderBookUpdate(inst market.Instrument, sequence int64, book market.Book) {
	l.dispatch("order_book", func() { l.session.OnOrderBookUpdate(inst, sequence, book) })
}

func (l *Loop) OnTradeTicks(inst market.Instrument, sequence int64, ticks market.Book) {
	l.dispatch("trade_ticks", func() { l.session.OnTradeTicks(inst, sequence, ticks) })
}

func (l *Loop) OnOrderFilled(id, price, volume int64) {
	l.dispatch("order_filled", func() { l.session.OnOrderFilled(id, price, volume) })
}

func (l *Loop) OnOrderStatus(id, fillVolume, remainingVolume, fees int64) {
	l.dispatch("order_status", func() { l.session.OnOrderStatus(id, fillVolume, remainingVolume, fees) })
}

func (l *Loop) OnHedgeFilled(id, price, volume int64) {
	l.dispatch("hedge_filled", func() { l.session.OnHedgeFilled(id, price, volume) })
}

func (l *Loop) OnError(id int64, message string) {
	l.dispatch("error", func() { l.session.OnError(id, message) })
}
