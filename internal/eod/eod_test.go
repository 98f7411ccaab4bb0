package eod

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-desk/internal/tradelog"
	"quant-desk/internal/types"
)

// 2026-03-03 10:00 KST, a Tuesday.
var day = time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC)

func journalWith(t *testing.T, entries ...types.ActivityEntry) (*tradelog.Journal, string) {
	t.Helper()
	dir := t.TempDir()
	j := tradelog.New(dir, func() time.Time { return day })
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = day
		}
		require.NoError(t, j.AppendActivity(e))
	}
	return j, dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSummarizeDay(t *testing.T) {
	j, _ := journalWith(t,
		types.ActivityEntry{Action: types.ActionBuy, Symbol: "005930", Shares: 20, Price: 80_000, Success: true},
		types.ActivityEntry{Action: types.ActionSell, Symbol: "005930", Shares: 10, Price: 82_000, Success: true},
		types.ActivityEntry{Action: types.ActionShort, Symbol: "MU", Shares: 10, Price: 140, Success: true},
		types.ActivityEntry{Action: types.ActionCover, Symbol: "MU", Shares: 10, Price: 130, Success: true},
		types.ActivityEntry{Action: types.ActionBuy, Symbol: "MU", Shares: 10, Price: 130, ErrorKind: "VENUE_REJECTED"},
		types.ActivityEntry{Action: types.ActionEnterPair, Symbol: "MU-000660", Shares: 10, Price: 0.0006, Success: true},
		types.ActivityEntry{Action: types.ActionHold, Symbol: "NVDA", Success: true},
		types.ActivityEntry{Action: types.ActionHold, Symbol: "CASH", Price: 5_000_000, Success: true},
	)
	s := New(j, func() time.Time { return day })

	path, err := s.SummarizeDay(day)
	require.NoError(t, err)
	assert.Equal(t, s.CSVPath(day), path)

	rows := readCSV(t, path)
	require.Len(t, rows, 5)
	assert.Equal(t, "symbol", rows[0][0])

	bySymbol := map[string][]string{}
	for _, r := range rows[1:] {
		bySymbol[r[0]] = r
	}
	require.Contains(t, bySymbol, "005930")
	samsung := bySymbol["005930"]
	assert.Equal(t, "20", samsung[1])
	assert.Equal(t, "80000.0000", samsung[2])
	assert.Equal(t, "10", samsung[3])
	assert.Equal(t, "20000.00", samsung[11])

	mu := bySymbol["MU"]
	assert.Equal(t, "1", mu[10], "rejected buy")
	assert.Equal(t, "100.00", mu[11], "short 140 covered at 130")

	assert.Equal(t, "1", bySymbol["MU-000660"][9])
	assert.NotContains(t, bySymbol, "NVDA")
	assert.NotContains(t, bySymbol, "CASH")

	total := bySymbol["TOTAL"]
	assert.Equal(t, "20100.00", total[11])
}

func TestSummarizeDayWithoutJournal(t *testing.T) {
	j := tradelog.New(t.TempDir(), nil)
	path, err := New(j, nil).SummarizeDay(day)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestShouldRunNow(t *testing.T) {
	j, _ := journalWith(t, types.ActivityEntry{Action: types.ActionBuy, Symbol: "NVDA", Shares: 20, Price: 125, Success: true})

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		// 2026-03-04 05:00 KST: US still open for the 3rd (EST, closes 06:00 KST).
		{"before us close", time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC), false},
		// 2026-03-04 07:00 KST.
		{"after us close", time.Date(2026, 3, 3, 22, 0, 0, 0, time.UTC), true},
		// 2026-03-05 07:00 KST: the 4th has no journal.
		{"no journal", time.Date(2026, 3, 4, 22, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			s := New(j, func() time.Time { return now })
			ok, _ := s.ShouldRunNow()
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("already written", func(t *testing.T) {
		now := time.Date(2026, 3, 3, 22, 0, 0, 0, time.UTC)
		s := New(j, func() time.Time { return now })
		ok, due := s.ShouldRunNow()
		require.True(t, ok)
		_, err := s.SummarizeDay(due)
		require.NoError(t, err)
		ok, _ = s.ShouldRunNow()
		assert.False(t, ok)
	})
}
