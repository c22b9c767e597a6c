package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etf-market-maker/market"
)

func TestJournalWritesSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, 16, nil)
	require.NoError(t, err)
	_, err = uuid.Parse(j.Session())
	require.NoError(t, err)

	j.Start()
	j.Fill(1, market.Buy, 10000, 5)
	j.Hedge(2, market.Sell, 100, 5)
	j.HedgeFill(2, 9900, 5)
	j.OrderError(3, "rejected")
	session := j.Session()
	require.NoError(t, j.Close())

	// 重新打开后旧会话仍可读，新会话 id 不同
	j2, err := Open(path, 16, nil)
	require.NoError(t, err)
	defer j2.Close()
	assert.NotEqual(t, session, j2.Session())

	entries, err := j2.Entries(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, KindFill, entries[0].Kind)
	assert.Equal(t, "BUY", entries[0].Side)
	assert.Equal(t, int64(10000), entries[0].Price)
	assert.Equal(t, KindHedge, entries[1].Kind)
	assert.Equal(t, KindHedgeFill, entries[2].Kind)
	assert.Equal(t, int64(9900), entries[2].Price)
	assert.Equal(t, KindError, entries[3].Kind)
	assert.Equal(t, "rejected", entries[3].Message)

	none, err := j2.Entries(context.Background(), j2.Session())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJournalDropsWhenFull(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), 1, nil)
	require.NoError(t, err)
	j.Fill(1, market.Buy, 10000, 5)
	j.Fill(2, market.Buy, 10000, 5)
	assert.Equal(t, uint64(1), j.Dropped())

	session := j.Session()
	db := j.db
	// 未启动时 Close 同步写完队列
	j.drain()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM events WHERE session = ?`, session).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, j.Close())
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", 0, nil)
	assert.Error(t, err)
}
