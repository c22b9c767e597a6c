package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gopkg.in/tomb.v2"

	"etf-market-maker/market"
)

// WSConfig websocket 连接参数
type WSConfig struct {
	URL              string
	RateLimit        float64 // 每秒发送报文数
	Burst            int
	QueueSize        int
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 表示不设读超时
}

// Hooks 连接与发送统计，monitor.Monitor 实现了它。
type Hooks interface {
	RecordWSConnection()
	RecordWSDisconnect()
	RecordSendDropped()
}

type nopHooks struct{}

func (nopHooks) RecordWSConnection() {}
func (nopHooks) RecordWSDisconnect() {}
func (nopHooks) RecordSendDropped() {}

// WSClient 通过一条 websocket 连接收发 JSON 报文。
// 读协程把行情与回报解码成 Handler 回调，写协程按令牌桶限速发送指令。
// Gateway 方法只把报文放入发送队列，队列满时丢弃并计数。
type WSClient struct {
	conn    *websocket.Conn
	handler Handler
	limiter RateLimiter
	out     chan []byte
	hooks   Hooks
	log     *zap.Logger
	t       *tomb.Tomb
	ctx     context.Context
	dropped atomic.Uint64
	cfg     WSConfig
}

// Dial 建立连接并启动读写协程。ctx 结束时连接关闭。
func Dial(ctx context.Context, cfg WSConfig, handler Handler, hooks Hooks, log *zap.Logger) (*WSClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("gateway url is required")
	}
	if handler == nil {
		return nil, errors.New("gateway handler is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if hooks == nil {
		hooks = nopHooks{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	t, tctx := tomb.WithContext(ctx)
	c := &WSClient{
		conn:    conn,
		handler: handler,
		limiter: NewTokenBucketLimiter(cfg.RateLimit, cfg.Burst),
		out:     make(chan []byte, cfg.QueueSize),
		hooks:   hooks,
		log:     log,
		t:       t,
		ctx:     tctx,
		cfg:     cfg,
	}
	hooks.RecordWSConnection()
	log.Info("gateway connected", zap.String("url", cfg.URL))

	t.Go(c.readLoop)
	t.Go(c.writeLoop)
	return c, nil
}

func (c *WSClient) readLoop() error {
	for {
		if c.cfg.ReadTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.t.Dying():
				return nil
			default:
			}
			return fmt.Errorf("gateway read: %w", err)
		}
		if err := Decode(msg, c.handler); err != nil {
			c.log.Warn("drop undecodable frame", zap.Error(err), zap.ByteString("frame", msg))
		}
	}
}

// writeLoop 持有连接的关闭权：退出前把队列中剩余的指令（例如会话结束时的撤单）写完。
func (c *WSClient) writeLoop() error {
	defer func() {
		_ = c.conn.Close()
		c.hooks.RecordWSDisconnect()
	}()
	for {
		select {
		case <-c.t.Dying():
			c.flush()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return nil
		case msg := <-c.out:
			// 关闭过程中 Wait 立即返回，不再限速
			_ = c.limiter.Wait(c.ctx)
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("gateway write: %w", err)
			}
		}
	}
}

func (c *WSClient) flush() {
	for {
		select {
		case msg := <-c.out:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Warn("flush on close failed", zap.Error(err), zap.Int("pending", len(c.out)))
				return
			}
		default:
			return
		}
	}
}

func (c *WSClient) enqueue(kind string, id int64, msg []byte, err error) {
	if err != nil {
		c.log.Error("encode frame failed", zap.String("type", kind), zap.Int64("order_id", id), zap.Error(err))
		return
	}
	select {
	case c.out <- msg:
	default:
		c.dropped.Add(1)
		c.hooks.RecordSendDropped()
		c.log.Warn("gateway send queue full", zap.String("type", kind), zap.Int64("order_id", id))
	}
}

func (c *WSClient) InsertOrder(id int64, side market.Side, price, volume int64, lifespan market.Lifespan) {
	msg, err := encodeInsert(id, side, price, volume, lifespan)
	c.enqueue(FrameInsert, id, msg, err)
}

func (c *WSClient) CancelOrder(id int64) {
	msg, err := encodeCancel(id)
	c.enqueue(FrameCancel, id, msg, err)
}

func (c *WSClient) HedgeOrder(id int64, side market.Side, price, volume int64) {
	msg, err := encodeHedge(id, side, price, volume)
	c.enqueue(FrameHedge, id, msg, err)
}

// Dropped 因队列满丢弃的报文数
func (c *WSClient) Dropped() uint64 { return c.dropped.Load() }

// Done 连接断开（读写出错或已关闭）后关闭。
func (c *WSClient) Done() <-chan struct{} { return c.t.Dead() }

// Err 连接断开的原因，正常关闭时为 nil。
func (c *WSClient) Err() error {
	err := c.t.Err()
	if err == tomb.ErrStillAlive {
		return nil
	}
	return err
}

// Close 关闭连接并等待读写协程退出。
func (c *WSClient) Close() error {
	c.t.Kill(nil)
	return c.t.Wait()
}
