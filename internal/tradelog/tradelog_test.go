package tradelog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-desk/internal/types"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestAppendActivityUsesKSTDay(t *testing.T) {
	dir := t.TempDir()
	// 16:00 UTC is 01:00 KST the next day.
	ts := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	j := New(dir, fixedClock(ts))

	conf := 0.8
	err := j.AppendActivity(types.ActivityEntry{
		ID:         "a1",
		Timestamp:  ts,
		Action:     types.ActionBuy,
		Symbol:     "NVDA",
		Shares:     20,
		Price:      125.5,
		Reason:     "golden cross",
		Confidence: &conf,
		Success:    true,
		OrderID:    "SIM-1",
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "2026-03-03.txt")
	assert.Equal(t, path, j.DailyPath(ts))
	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "BUY", lines[0]["side"])
	assert.Equal(t, "NVDA", lines[0]["symbol"])
	assert.Equal(t, float64(20), lines[0]["qty"])
	assert.Equal(t, "SIM-1", lines[0]["orderId"])
	assert.Equal(t, "2026-03-03 01:00:00", lines[0]["time"])
	assert.Equal(t, true, lines[0]["success"])
}

func TestAppendKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC)
	j := New(dir, fixedClock(ts))

	require.NoError(t, j.Append(Entry{Symbol: "MU", Side: "SHORT", Qty: 10}))
	require.NoError(t, j.Append(Entry{Symbol: "MU", Side: "COVER", Qty: 10}))

	lines := readLines(t, j.DailyPath(ts))
	require.Len(t, lines, 2)
	assert.Equal(t, "SHORT", lines[0]["side"])
	assert.Equal(t, "COVER", lines[1]["side"])
}

func TestAppendDecision(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC)
	j := New(dir, fixedClock(ts))

	require.NoError(t, j.AppendDecision(DecisionEntry{
		Symbol:     "DESK",
		Strategy:   "PAIRS_TRADING",
		Action:     "SELECT_STRATEGY",
		Reason:     "ranging",
		Indicators: map[string]float64{"portfolioValue": 1_000_000},
	}))

	lines := readLines(t, filepath.Join(dir, "decisions", "2026-03-03.txt"))
	require.Len(t, lines, 1)
	assert.Equal(t, "PAIRS_TRADING", lines[0]["strategy"])
}

func TestNewUsesEnvDir(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", "/tmp/desk-journal")
	assert.Equal(t, "/tmp/desk-journal", New("", nil).Root())
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	j := New(dir, fixedClock(now))

	old := filepath.Join(dir, "2026-03-01.txt")
	fresh := filepath.Join(dir, "2026-03-19.txt")
	dup := filepath.Join(dir, "2026-03-02.txt")
	for _, p := range []string{old, fresh, dup} {
		require.NoError(t, os.WriteFile(p, []byte("{}\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(dup+".gz", []byte("x"), 0o644))
	stale := now.AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, stale, stale))
	require.NoError(t, os.Chtimes(dup, stale, stale))
	require.NoError(t, os.Chtimes(fresh, now, now))

	require.NoError(t, j.CompressOlder(7))

	assert.NoFileExists(t, old)
	assert.FileExists(t, old+".gz")
	assert.FileExists(t, fresh)
	assert.NoFileExists(t, dup)

	t.Run("disabled", func(t *testing.T) {
		assert.NoError(t, j.CompressOlder(0))
		assert.FileExists(t, fresh)
	})
}
