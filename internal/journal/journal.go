// Package journal 把成交、对冲与错误回报异步写入 sqlite，按会话区分。
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/tomb.v2"
	_ "modernc.org/sqlite"

	"etf-market-maker/market"
)

const writeTimeout = 3 * time.Second

// Kind 记录类型
type Kind string

const (
	KindFill      Kind = "fill"
	KindHedge     Kind = "hedge"
	KindHedgeFill Kind = "hedge_fill"
	KindError     Kind = "error"
)

// Entry 一条流水
type Entry struct {
	Kind    Kind
	OrderID int64
	Side    string
	Price   int64
	Volume  int64
	Message string
	At      time.Time
}

// Journal 实现 engine.Journal：写入在后台协程完成，队列满时丢弃并计数。
type Journal struct {
	db      *sql.DB
	session string
	entries chan Entry
	t       tomb.Tomb
	started atomic.Bool
	dropped atomic.Uint64
	log     *zap.Logger
	now     func() time.Time
}

// Open 打开（或创建）数据库并登记一个新会话。
func Open(path string, bufferSize int, log *zap.Logger) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite 单写者
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	j := &Journal{
		db:      db,
		session: uuid.NewString(),
		entries: make(chan Entry, bufferSize),
		log:     log,
		now:     time.Now,
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, `INSERT INTO sessions (id, started_at) VALUES (?, ?)`, j.session, j.now().UnixNano()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register session: %w", err)
	}
	return j, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL REFERENCES sessions(id),
	kind TEXT NOT NULL,
	order_id INTEGER NOT NULL,
	side TEXT NOT NULL DEFAULT '',
	price INTEGER NOT NULL DEFAULT 0,
	volume INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS events_session ON events(session, seq);`)
	return err
}

// Session 本次会话 id
func (j *Journal) Session() string { return j.session }

// Dropped 因队列满被丢弃的条数
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// Start 启动写入协程
func (j *Journal) Start() {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	j.t.Go(j.run)
}

// Close 写完队列中剩余记录后关闭数据库。
func (j *Journal) Close() error {
	if j.started.Load() {
		j.t.Kill(nil)
		if err := j.t.Wait(); err != nil {
			j.log.Warn("journal writer exited with error", zap.Error(err))
		}
	} else {
		j.drain()
	}
	return j.db.Close()
}

func (j *Journal) run() error {
	for {
		select {
		case <-j.t.Dying():
			j.drain()
			return nil
		case e := <-j.entries:
			j.write(e)
		}
	}
}

func (j *Journal) drain() {
	for {
		select {
		case e := <-j.entries:
			j.write(e)
		default:
			return
		}
	}
}

func (j *Journal) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (session, kind, order_id, side, price, volume, message, at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.session, string(e.Kind), e.OrderID, e.Side, e.Price, e.Volume, e.Message, e.At.UnixNano())
	if err != nil {
		j.log.Warn("journal write failed", zap.String("kind", string(e.Kind)), zap.Int64("order_id", e.OrderID), zap.Error(err))
	}
}

func (j *Journal) enqueue(e Entry) {
	e.At = j.now()
	select {
	case j.entries <- e:
	default:
		if j.dropped.Add(1) == 1 {
			j.log.Warn("journal queue full")
		}
	}
}

func (j *Journal) Fill(id int64, side market.Side, price, volume int64) {
	j.enqueue(Entry{Kind: KindFill, OrderID: id, Side: side.String(), Price: price, Volume: volume})
}

func (j *Journal) Hedge(id int64, side market.Side, price, volume int64) {
	j.enqueue(Entry{Kind: KindHedge, OrderID: id, Side: side.String(), Price: price, Volume: volume})
}

func (j *Journal) HedgeFill(id, price, volume int64) {
	j.enqueue(Entry{Kind: KindHedgeFill, OrderID: id, Price: price, Volume: volume})
}

func (j *Journal) OrderError(id int64, message string) {
	j.enqueue(Entry{Kind: KindError, OrderID: id, Message: message})
}

// Entries 按写入顺序读取某会话的流水
func (j *Journal) Entries(ctx context.Context, session string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT kind, order_id, side, price, volume, message, at FROM events WHERE session = ? ORDER BY seq`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
			at   int64
		)
		if err := rows.Scan(&kind, &e.OrderID, &e.Side, &e.Price, &e.Volume, &e.Message, &at); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		e.At = time.Unix(0, at)
		res = append(res, e)
	}
	return res, rows.Err()
}
