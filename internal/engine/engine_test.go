package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-desk/internal/alpha"
	"quant-desk/internal/bank"
	"quant-desk/internal/errs"
	"quant-desk/internal/ledger"
	"quant-desk/internal/marketdata"
	"quant-desk/internal/tradelog"
	"quant-desk/internal/types"
)

// Tuesday 2026-03-03 10:00 KST.
var base = time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC)

var testUniverse = []types.Instrument{
	{Symbol: "NVDA", Name: "NVIDIA", Currency: types.USD},
	{Symbol: "005930", Name: "Samsung Electronics", Currency: types.KRW},
	{Symbol: "MU", Name: "Micron Technology", Currency: types.USD},
	{Symbol: "000660", Name: "SK Hynix", Currency: types.KRW},
}

type fakeOracle struct {
	SelectStrategyFn func(ctx context.Context, req types.StrategyRequest) (types.StrategyDecision, error)
	AnalyzeFn        func(ctx context.Context, req types.AnalystRequest) (types.Decision, error)
	InferFn          func(ctx context.Context, req types.MLRequest) (types.MLSignal, error)

	mu       sync.Mutex
	analyzed []string
}

func (f *fakeOracle) SelectStrategy(ctx context.Context, req types.StrategyRequest) (types.StrategyDecision, error) {
	if f.SelectStrategyFn != nil {
		return f.SelectStrategyFn(ctx, req)
	}
	return types.StrategyDecision{Strategy: types.StrategyRiskOff, Reason: "default"}, nil
}

func (f *fakeOracle) Analyze(ctx context.Context, req types.AnalystRequest) (types.Decision, error) {
	f.mu.Lock()
	f.analyzed = append(f.analyzed, req.Instrument.Symbol)
	f.mu.Unlock()
	if f.AnalyzeFn != nil {
		return f.AnalyzeFn(ctx, req)
	}
	return types.Hold("default"), nil
}

func (f *fakeOracle) Infer(ctx context.Context, req types.MLRequest) (types.MLSignal, error) {
	if f.InferFn != nil {
		return f.InferFn(ctx, req)
	}
	return types.MLSignal{Decision: types.ActionHold, Probabilities: map[types.Action]float64{types.ActionHold: 1}}, nil
}

func (f *fakeOracle) analyzedSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.analyzed...)
}

type fakeVenue struct {
	ExecuteFn func(ctx context.Context, req types.OrderReq) (types.Fill, error)

	mu   sync.Mutex
	reqs []types.OrderReq
}

func (f *fakeVenue) Execute(ctx context.Context, req types.OrderReq) (types.Fill, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	n := len(f.reqs)
	f.mu.Unlock()
	if f.ExecuteFn != nil {
		return f.ExecuteFn(ctx, req)
	}
	return types.Fill{
		OrderID:     fmt.Sprintf("T-%d", n),
		Symbol:      req.Symbol,
		Action:      req.Action,
		Shares:      req.Shares,
		FilledPrice: req.Price,
		Status:      types.FillSuccess,
	}, nil
}

func (f *fakeVenue) requests() []types.OrderReq {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.OrderReq(nil), f.reqs...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []types.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n types.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
	return nil
}

func (f *fakeNotifier) sent() []types.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Notification(nil), f.notes...)
}

type fixedRate float64

func (r fixedRate) Rate(context.Context) (float64, error) { return float64(r), nil }

type harness struct {
	eng      *Engine
	oracle   *fakeOracle
	venue    *fakeVenue
	notifier *fakeNotifier
	ledger   *ledger.Ledger
	bank     *bank.Bank
	store    *marketdata.Store
	journal  *tradelog.Journal
}

func newHarness(t *testing.T, cash float64, hours string, now time.Time) *harness {
	t.Helper()
	clock := func() time.Time { return now }
	h := &harness{
		oracle:   &fakeOracle{},
		venue:    &fakeVenue{},
		notifier: &fakeNotifier{},
		ledger:   ledger.New(testUniverse, ledger.Options{InitialCash: cash, Clock: clock}),
		bank:     bank.New(bank.DefaultBalance, clock),
		store:    marketdata.NewStore(0),
		journal:  tradelog.New(t.TempDir(), clock),
	}
	symbols := make([]string, 0, len(testUniverse))
	for _, inst := range testUniverse {
		symbols = append(symbols, inst.Symbol)
	}
	h.eng = New(Deps{
		Universe:     testUniverse,
		Store:        h.store,
		Hours:        marketdata.Hours{Mode: hours},
		Rates:        fixedRate(1300),
		Oracle:       h.oracle,
		Venue:        h.venue,
		Ledger:       h.ledger,
		Bank:         h.bank,
		Factors:      alpha.NewEngine(rand.New(rand.NewSource(1))),
		Fundamentals: alpha.NewFundamentals(rand.New(rand.NewSource(2)), symbols),
		Journal:      h.journal,
		Notifier:     h.notifier,
		StartRate:    1300,
		Clock:        clock,
	})
	return h
}

func (h *harness) seed(symbol string, prices []float64) {
	series := make([]types.PricePoint, len(prices))
	for i, p := range prices {
		series[i] = types.PricePoint{Time: base.Add(time.Duration(i-len(prices)) * time.Minute), Price: p}
	}
	h.store.Seed(symbol, series)
}

func (h *harness) strategy(s types.Strategy) {
	h.oracle.SelectStrategyFn = func(context.Context, types.StrategyRequest) (types.StrategyDecision, error) {
		return types.StrategyDecision{Strategy: s, Reason: "test"}, nil
	}
}

func ramp(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func (h *harness) seedTrend(step float64) {
	for _, inst := range testUniverse {
		start, s := 100.0, step
		if inst.Currency == types.KRW {
			start, s = 10_000, step*100
		}
		if step < 0 {
			start -= s * 40
		}
		h.seed(inst.Symbol, ramp(start, s, 40))
	}
}

func symbolsOf(reqs []types.OrderReq) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Symbol
	}
	return out
}

func TestCycleOracleErrorLiquidates(t *testing.T) {
	h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)
	h.seed("005930", ramp(10_000, 0, 30))
	_, err := h.ledger.Buy(ledger.Order{Symbol: "005930", Shares: 10, Price: 10_000})
	require.NoError(t, err)
	h.oracle.SelectStrategyFn = func(context.Context, types.StrategyRequest) (types.StrategyDecision, error) {
		return types.StrategyDecision{}, errors.New("quota exceeded")
	}

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StrategyRiskOff, res.Strategy)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, types.ActionSell, res.Entries[0].Action)
	assert.True(t, res.Entries[0].Success)
	assert.Equal(t, "T-1", res.Entries[0].OrderID)
	assert.Empty(t, h.ledger.Snapshot().Holdings)
}

func TestCycleAnalystTrendGate(t *testing.T) {
	h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)
	h.seedTrend(-1)
	h.strategy(types.StrategyAlphaMomentum)
	h.oracle.AnalyzeFn = func(context.Context, types.AnalystRequest) (types.Decision, error) {
		return types.Decision{Action: types.ActionBuy, Shares: 50, Reason: "looks cheap", Confidence: 0.8}, nil
	}

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.venue.requests())
	require.Len(t, res.Entries, len(testUniverse))
	for _, e := range res.Entries {
		assert.Equal(t, types.ActionHold, e.Action)
		assert.Contains(t, e.Reason, "Trend violation")
	}
	assert.Equal(t, 1_000_000.0, h.ledger.Cash())
	assert.Empty(t, h.notifier.sent(), "HOLD is not announced")
}

func TestCycleAnalystBuysKRWFirst(t *testing.T) {
	h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)
	h.seedTrend(1)
	h.strategy(types.StrategyAlphaMomentum)
	h.oracle.AnalyzeFn = func(context.Context, types.AnalystRequest) (types.Decision, error) {
		return types.Decision{Action: types.ActionBuy, Shares: 55, Reason: "momentum", Confidence: 0.8}, nil
	}

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	reqs := h.venue.requests()
	assert.Equal(t, []string{"005930", "000660", "NVDA", "MU"}, symbolsOf(reqs))
	for _, r := range reqs {
		assert.Equal(t, 50, r.Shares, "floored to a multiple of 10")
	}
	for _, e := range res.Entries {
		assert.True(t, e.Success, e.Reason)
	}
	assert.Less(t, h.bank.Balance(), float64(bank.DefaultBalance), "shortfall withdrawn from the bank")
	assert.Len(t, h.notifier.sent(), 4, "one analyst signal per instrument")
	assert.Equal(t, []string{"005930", "000660", "NVDA", "MU"}, h.oracle.analyzedSymbols())
}

func TestCycleMACross(t *testing.T) {
	h := newHarness(t, 10_000_000, marketdata.HoursAlwaysOpen, base)
	golden := append(ramp(10_000, 0, 24), 11_000)
	h.seed("005930", golden)
	h.seed("000660", ramp(200_000, 0, 25))
	h.strategy(types.StrategyMACross)

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	reqs := h.venue.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, types.OrderReq{Symbol: "005930", Action: types.ActionBuy, Shares: 20, Price: 11_000}, reqs[0])
	require.Len(t, res.Entries, 1)
	require.NotNil(t, res.Entries[0].Confidence)
	assert.Equal(t, 0.9, *res.Entries[0].Confidence)
	assert.Len(t, h.notifier.sent(), 1)

	t.Run("aggressive sizing", func(t *testing.T) {
		h := newHarness(t, 10_000_000, marketdata.HoursAlwaysOpen, base)
		h.seed("005930", golden)
		h.strategy(types.StrategyMACross)
		h.eng.SetModes(Modes{Aggressive: true})

		_, err := h.eng.Cycle(context.Background())
		require.NoError(t, err)
		require.Len(t, h.venue.requests(), 1)
		assert.Equal(t, 50, h.venue.requests()[0].Shares)
	})
}

func TestCycleDeepHedging(t *testing.T) {
	h := newHarness(t, 10_000_000, marketdata.HoursAlwaysOpen, base)
	h.seed("005930", ramp(10_000, 10, 30))
	h.strategy(types.StrategyDeepHedging)
	h.oracle.InferFn = func(_ context.Context, req types.MLRequest) (types.MLSignal, error) {
		assert.Equal(t, "005930", req.Instrument.Symbol)
		return types.MLSignal{
			Decision:      types.ActionSell,
			Probabilities: map[types.Action]float64{types.ActionBuy: 6, types.ActionSell: 3, types.ActionHold: 1},
		}, nil
	}

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	reqs := h.venue.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, types.ActionBuy, reqs[0].Action, "argmax wins over the stated decision")
	assert.Equal(t, 20, reqs[0].Shares)
	require.Len(t, res.Entries, 1)
	assert.InDelta(t, 0.6, *res.Entries[0].Confidence, 1e-9)
}

// pairSeries makes MU oscillate around 100 and then jump, so the MU/Hynix
// ratio's z-score ends well above 2.
func pairSeries() (mu, hynix []float64) {
	for i := 0; i < 39; i++ {
		mu = append(mu, 100+float64(i%2))
		hynix = append(hynix, 200_000)
	}
	return append(mu, 110), append(hynix, 200_000)
}

func TestCyclePairsEnterAndSkipLegs(t *testing.T) {
	h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)
	mu, hynix := pairSeries()
	h.seed("MU", mu)
	h.seed("000660", hynix)
	h.strategy(types.StrategyPairsTrading)

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	reqs := h.venue.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, types.OrderReq{Symbol: "MU-000660", Action: types.ActionEnterPair, Shares: PairShares, Price: 200_000}, reqs[0])
	require.Len(t, res.Entries, 1)
	assert.True(t, res.Entries[0].Success, res.Entries[0].Reason)

	p := h.ledger.Snapshot()
	require.Contains(t, p.PairTrades, "MU-000660")
	assert.Equal(t, "000660", p.PairTrades["MU-000660"].LongSymbol)
	assert.Equal(t, "MU-000660", p.Holdings["MU"].PairID)
	assert.InDelta(t, float64(bank.DefaultBalance)-1_000_020, h.bank.Balance(), 1e-6, "long leg shortfall withdrawn")
	require.NotNil(t, h.eng.State().PairSignal)
	assert.Len(t, h.notifier.sent(), 1)

	t.Run("no second entry while open", func(t *testing.T) {
		_, err := h.eng.Cycle(context.Background())
		require.NoError(t, err)
		assert.Len(t, h.venue.requests(), 1)
	})

	t.Run("directional strategies skip pair legs", func(t *testing.T) {
		h.seedTrend(1)
		h.strategy(types.StrategyAlphaMomentum)
		_, err := h.eng.Cycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"005930", "NVDA"}, h.oracle.analyzedSymbols())
	})

	t.Run("risk off exits the pair", func(t *testing.T) {
		h.strategy(types.StrategyRiskOff)
		res, err := h.eng.Cycle(context.Background())
		require.NoError(t, err)
		require.NotEmpty(t, res.Entries)
		last := res.Entries[len(res.Entries)-1]
		assert.Equal(t, types.ActionExitPair, last.Action)
		assert.True(t, last.Success, last.Reason)
		assert.Empty(t, h.ledger.Snapshot().PairTrades)
	})
}

func TestCycleCancellation(t *testing.T) {
	t.Run("during strategy selection", func(t *testing.T) {
		h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)
		h.seedTrend(1)
		ctx, cancel := context.WithCancel(context.Background())
		h.oracle.SelectStrategyFn = func(context.Context, types.StrategyRequest) (types.StrategyDecision, error) {
			cancel()
			return types.StrategyDecision{Strategy: types.StrategyAlphaMomentum}, nil
		}

		res, err := h.eng.Cycle(ctx)
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.Empty(t, res.Entries)
		assert.Empty(t, h.oracle.analyzedSymbols())
	})

	t.Run("answer after cancel is dropped", func(t *testing.T) {
		h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)
		h.seedTrend(1)
		h.strategy(types.StrategyAlphaMomentum)
		ctx, cancel := context.WithCancel(context.Background())
		h.oracle.AnalyzeFn = func(context.Context, types.AnalystRequest) (types.Decision, error) {
			cancel()
			return types.Decision{Action: types.ActionBuy, Shares: 10, Confidence: 0.9}, nil
		}

		res, err := h.eng.Cycle(ctx)
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.Empty(t, h.venue.requests())
		assert.Len(t, h.oracle.analyzedSymbols(), 1)
		assert.Empty(t, h.ledger.Activity(0))
	})
}

func TestCycleVenueRejection(t *testing.T) {
	h := newHarness(t, 10_000_000, marketdata.HoursAlwaysOpen, base)
	h.seed("005930", append(ramp(10_000, 0, 24), 11_000))
	h.strategy(types.StrategyMACross)
	h.venue.ExecuteFn = func(_ context.Context, req types.OrderReq) (types.Fill, error) {
		return types.Fill{Status: types.FillFailed}, fmt.Errorf("%w: %s", errs.ErrVenueRejected, req.Symbol)
	}

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assert.False(t, res.Entries[0].Success)
	assert.Equal(t, "VENUE_REJECTED", res.Entries[0].ErrorKind)
	assert.Empty(t, h.ledger.Snapshot().Holdings)
	assert.Empty(t, h.notifier.sent())
}

func TestCycleSweepsExcessCash(t *testing.T) {
	tests := []struct {
		name       string
		aggressive bool
		cash       float64
		wantCash   float64
	}{
		{"normal", false, 12_000_000, 5_000_000},
		{"aggressive", true, 16_000_000, 7_500_000},
		{"aggressive below threshold", true, 12_000_000, 12_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.cash, marketdata.HoursAlwaysOpen, base)
			h.eng.SetModes(Modes{Aggressive: tt.aggressive})

			_, err := h.eng.Cycle(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantCash, h.ledger.Cash())
			assert.Equal(t, float64(bank.DefaultBalance)+tt.cash-tt.wantCash, h.bank.Balance())
		})
	}
}

func TestCycleSkipsClosedMarkets(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 3, 0, 0, 0, time.UTC)
	h := newHarness(t, 1_000_000, marketdata.HoursExchange, saturday)
	h.seedTrend(1)
	h.strategy(types.StrategyAlphaMomentum)

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.oracle.analyzedSymbols())
	assert.Empty(t, res.Entries)
}

func TestCycleUpdatesState(t *testing.T) {
	h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)
	h.seedTrend(1)
	h.strategy(types.StrategyMeanReversion)

	res, err := h.eng.Cycle(context.Background())
	require.NoError(t, err)

	st := h.eng.Status()
	assert.Equal(t, types.StrategyMeanReversion, st.Strategy)
	assert.Equal(t, res.Regime, st.Regime)
	assert.Equal(t, 1300.0, st.ExchangeRate)
	assert.Equal(t, base, st.LastCycle)
	assert.True(t, st.MarketStatus.Korea)
	assert.Len(t, st.Factors, len(testUniverse))
	assert.Len(t, st.Fundamentals, len(testUniverse))
	assert.FileExists(t, h.journal.DecisionsPath(base))
}

func TestExecuteManual(t *testing.T) {
	h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)
	h.seed("005930", ramp(10_000, 0, 5))

	e, err := h.eng.ExecuteManual(context.Background(), types.OrderReq{Symbol: "005930", Action: types.ActionBuy, Shares: 10})
	require.NoError(t, err)
	assert.True(t, e.Success)
	assert.Equal(t, 10, h.ledger.Snapshot().Holdings["005930"].Shares)

	tests := []struct {
		name string
		req  types.OrderReq
	}{
		{"unknown symbol", types.OrderReq{Symbol: "AAPL", Action: types.ActionBuy, Shares: 1}},
		{"pair action", types.OrderReq{Symbol: "MU", Action: types.ActionEnterPair, Shares: 1}},
		{"no shares", types.OrderReq{Symbol: "005930", Action: types.ActionBuy}},
		{"no price", types.OrderReq{Symbol: "NVDA", Action: types.ActionBuy, Shares: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.eng.ExecuteManual(context.Background(), tt.req)
			assert.Error(t, err)
		})
	}
}

func TestBankTransfers(t *testing.T) {
	h := newHarness(t, 1_000_000, marketdata.HoursAlwaysOpen, base)

	res, err := h.eng.Withdraw(context.Background(), 500_000)
	require.NoError(t, err)
	assert.Equal(t, 1_500_000.0, h.ledger.Cash())
	require.NotNil(t, res.Transaction)
	assert.Equal(t, types.Withdrawal, res.Transaction.Type)
	assert.Equal(t, 500_000.0, res.Transaction.Amount)

	res, err = h.eng.Withdraw(context.Background(), 777)
	require.NoError(t, err)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, 777.0, res.Transaction.Amount)
	assert.Equal(t, float64(bank.DefaultBalance)-500_777, res.NewBalance)
	assert.Equal(t, h.bank.Balance(), res.Transaction.BalanceAfter)

	res, err = h.eng.Deposit(context.Background(), 2_000_000)
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Nil(t, res.Transaction)
	assert.Equal(t, 1_500_777.0, h.ledger.Cash())

	res, err = h.eng.Deposit(context.Background(), 1_500_777)
	require.NoError(t, err)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, types.Deposit, res.Transaction.Type)
	assert.Equal(t, 0.0, h.ledger.Cash())
	assert.Equal(t, float64(bank.DefaultBalance)+1_000_000, h.bank.Balance())
	assert.Equal(t, h.bank.Balance(), res.NewBalance)

	res, err = h.eng.Withdraw(context.Background(), -5)
	assert.ErrorIs(t, err, errs.ErrInvalidOrder)
	assert.False(t, res.Success)
}
