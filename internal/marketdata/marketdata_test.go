package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-desk/internal/api"
	"quant-desk/internal/types"
)

var t0 = time.Date(2024, 7, 1, 1, 0, 0, 0, time.UTC)

func tick(sym string, i int, px float64) types.Tick {
	return types.Tick{Symbol: sym, Price: px, Time: t0.Add(time.Duration(i) * time.Second)}
}

func TestStoreEvictsOldest(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 5; i++ {
		require.True(t, s.Append(tick("MU", i, float64(100+i))))
	}
	h := s.History("MU")
	require.Len(t, h, 3)
	assert.Equal(t, 102.0, h[0].Price)
	assert.Equal(t, 104.0, h[2].Price)

	assert.False(t, s.Append(tick("MU", 0, 1)), "out-of-order tick is dropped")
	px, ok := s.LastPrice("MU")
	assert.True(t, ok)
	assert.Equal(t, 104.0, px)
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore(10)
	s.Seed("005930", []types.PricePoint{{Time: t0, Price: 70_000}})
	s.Append(tick("MU", 1, 100))

	snap := s.Snapshot(t0)
	s.Append(tick("MU", 2, 101))

	assert.Equal(t, 100.0, snap.Prices["MU"])
	assert.Equal(t, 70_000.0, snap.Prices["005930"])
	assert.Len(t, snap.History["MU"], 1)

	series := snap.Series(DefaultUniverse())
	require.Len(t, series, 2)
	assert.Equal(t, 70_000.0, series[0][0].Price, "universe order, not map order")
}

func TestStoreSeedKeepsNewest(t *testing.T) {
	s := NewStore(2)
	s.Seed("MU", []types.PricePoint{{Price: 1}, {Price: 2}, {Price: 3}})
	assert.Equal(t, []float64{2, 3}, types.Prices(s.History("MU")))
}

func TestProcessingOrderIsKRWFirst(t *testing.T) {
	got := ProcessingOrder([]types.Instrument{
		{Symbol: "NVDA", Currency: types.USD},
		{Symbol: "005930", Currency: types.KRW},
		{Symbol: "MU", Currency: types.USD},
		{Symbol: "000660", Currency: types.KRW},
	})
	syms := make([]string, len(got))
	for i, inst := range got {
		syms[i] = inst.Symbol
	}
	assert.Equal(t, []string{"005930", "000660", "NVDA", "MU"}, syms)
}

func TestGeneratorIsDeterministicAndBounded(t *testing.T) {
	run := func() []types.Tick {
		g := NewGenerator(DefaultUniverse(), GeneratorParams{Seed: 7, Prices: StartingPrices, Clock: func() time.Time { return t0 }})
		out := make([]types.Tick, 200)
		for i := range out {
			out[i] = g.Next()
		}
		return out
	}
	a, b := run(), run()
	assert.Equal(t, a, b)

	last := map[string]float64{}
	for k, v := range StartingPrices {
		last[k] = v
	}
	for _, tk := range a {
		prev := last[tk.Symbol]
		move := (tk.Price - prev) / prev
		assert.LessOrEqual(t, move, 0.0036, tk.Symbol)
		assert.GreaterOrEqual(t, move, -0.0036, tk.Symbol)
		last[tk.Symbol] = tk.Price
	}
}

func TestGeneratorRunStopsOnCancel(t *testing.T) {
	g := NewGenerator(DefaultUniverse(), GeneratorParams{Seed: 1, Interval: time.Millisecond, Prices: StartingPrices})
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan types.Tick, 100)
	done := make(chan error, 1)
	go func() {
		done <- g.Run(ctx, func(tk types.Tick) {
			select {
			case got <- tk:
			default:
			}
		})
	}()
	<-got
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestHours(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		korea bool
		usa   bool
	}{
		// 2024-07-01 is a Monday.
		{name: "seoul morning", now: time.Date(2024, 7, 1, 10, 0, 0, 0, kst), korea: true},
		{name: "seoul after close", now: time.Date(2024, 7, 1, 15, 30, 0, 0, kst)},
		{name: "new york open", now: time.Date(2024, 7, 1, 9, 30, 0, 0, et), usa: true},
		{name: "new york pre-market", now: time.Date(2024, 7, 1, 9, 29, 0, 0, et)},
		{name: "saturday", now: time.Date(2024, 7, 6, 11, 0, 0, 0, kst)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hours{Mode: HoursExchange}.Status(tt.now)
			assert.Equal(t, tt.korea, got.Korea)
			assert.Equal(t, tt.usa, got.USA)
		})
	}
	assert.Equal(t, types.MarketStatus{Korea: true, USA: true}, Hours{Mode: HoursAlwaysOpen}.Status(time.Time{}))
}

func TestSimulatedRate(t *testing.T) {
	r := NewSimulatedRate(0, 3)
	prev := DefaultRate
	for i := 0; i < 100; i++ {
		got, err := r.Rate(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, prev, got, rateStep)
		prev = got
	}
}

func TestHTTPRateFallsBack(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":{"KRW":1390.5}}`))
	}))
	defer srv.Close()

	h := NewHTTPRate(api.NewClient(api.WithBaseURL(srv.URL)), "/latest", 0)
	got, err := h.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1390.5, got)

	fail.Store(true)
	got, err = h.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1390.5, got)
}

type fakeHistory struct {
	fn    func(ctx context.Context, inst types.Instrument, points int) ([]types.PricePoint, error)
	calls int
}

func (f *fakeHistory) History(ctx context.Context, inst types.Instrument, points int) ([]types.PricePoint, error) {
	f.calls++
	return f.fn(ctx, inst, points)
}

func TestCachingHistory(t *testing.T) {
	inst := types.Instrument{Symbol: "MU", Currency: types.USD, Ticker: "MU"}
	want := []types.PricePoint{{Time: t0, Price: 100}}
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	t.Run("nil client bypasses cache", func(t *testing.T) {
		inner := &fakeHistory{fn: func(context.Context, types.Instrument, int) ([]types.PricePoint, error) { return want, nil }}
		got, err := NewCachingHistory(nil, 0, inner, "").History(context.Background(), inst, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("hit skips inner", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet("history:MU:10").SetVal(string(payload))
		inner := &fakeHistory{fn: func(context.Context, types.Instrument, int) ([]types.PricePoint, error) {
			return nil, errors.New("should not be called")
		}}

		got, err := NewCachingHistory(db, time.Minute, inner, "").History(context.Background(), inst, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Zero(t, inner.calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss fills cache", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet("seed:MU:10").RedisNil()
		mock.ExpectSet("seed:MU:10", payload, time.Minute).SetVal("OK")
		inner := &fakeHistory{fn: func(context.Context, types.Instrument, int) ([]types.PricePoint, error) { return want, nil }}

		got, err := NewCachingHistory(db, time.Minute, inner, "seed").History(context.Background(), inst, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inner error is returned", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet("history:MU:10").RedisNil()
		inner := &fakeHistory{fn: func(context.Context, types.Instrument, int) ([]types.PricePoint, error) {
			return nil, errors.New("yahoo down")
		}}
		_, err := NewCachingHistory(db, 0, inner, "").History(context.Background(), inst, 10)
		assert.EqualError(t, err, "yahoo down")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSyntheticAndFallback(t *testing.T) {
	clock := func() time.Time { return t0 }
	cxmt := types.Instrument{Symbol: "CXMT", Currency: types.USD}

	a, err := NewSyntheticHistory(9, clock, map[string]float64{"CXMT": 30}).History(context.Background(), cxmt, 200)
	require.NoError(t, err)
	b, _ := NewSyntheticHistory(9, clock, map[string]float64{"CXMT": 30}).History(context.Background(), cxmt, 200)
	require.Len(t, a, 200)
	assert.Equal(t, a, b)
	for i := 1; i < len(a); i++ {
		assert.True(t, a[i].Time.After(a[i-1].Time))
	}

	failing := &fakeHistory{fn: func(context.Context, types.Instrument, int) ([]types.PricePoint, error) {
		return nil, errors.New("no ticker")
	}}
	chain := FallbackHistory{failing, NewSyntheticHistory(1, clock, nil)}
	got, err := chain.History(context.Background(), cxmt, 50)
	require.NoError(t, err)
	assert.Len(t, got, 50)

	_, err = FallbackHistory{failing}.History(context.Background(), cxmt, 5)
	assert.EqualError(t, err, "no ticker")
}

func TestSeedAll(t *testing.T) {
	store := NewStore(0)
	universe := DefaultUniverse()
	gen := NewGenerator(universe, GeneratorParams{Prices: StartingPrices})
	SeedAll(context.Background(), store, NewSyntheticHistory(2, func() time.Time { return t0 }, StartingPrices), universe, 30, gen)

	for _, inst := range universe {
		h := store.History(inst.Symbol)
		require.Len(t, h, 30, inst.Symbol)
		assert.Equal(t, h[len(h)-1].Price, gen.state[inst.Symbol].price)
	}
}
