package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sampleTrade(id string, closeT time.Time, pl float64) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		OrderID:    "O-" + id,
		Symbol:     "EURUSD",
		Side:       "LONG",
		Units:      100_000,
		Lots:       1,
		EntryPrice: 1.1000,
		ExitPrice:  1.1050,
		OpenTime:   closeT.Add(-time.Hour),
		CloseTime:  closeT,
		RealizedPL: pl,
		Reason:     "TAKE_PROFIT",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", closeT, 500)))
	require.NoError(t, j.Close())

	j2, err := NewSQLite(path)
	require.NoError(t, err)
	defer j2.Close()

	rec, err := j2.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, "O-T1", rec.OrderID)
}

func TestSQLiteRecordTradeIgnoresDuplicate(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", closeT, 500)))
	require.NoError(t, j.RecordTrade(sampleTrade("T1", closeT, -1)))

	rec, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, rec.RealizedPL)
}

func TestSQLiteLatestBalance(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	_, ok, err := j.LatestBalance(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	base := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: base.Add(time.Minute), Balance: 10_500, Equity: 10_400}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: base, Balance: 10_000, Equity: 10_000}))

	bal, ok, err := j.LatestBalance(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10_500.0, bal, "latest by time, not by insertion")
}

func TestFixedBalance(t *testing.T) {
	t.Parallel()

	bal, ok, err := FixedBalance(2500).LatestBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2500.0, bal)
}
