// Package engine runs the desk's decision cycle: take one market snapshot,
// let the strategy oracle pick a strategy, turn it into per-instrument
// decisions and book them through the venue and the ledger.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quant-desk/internal/alpha"
	"quant-desk/internal/bank"
	"quant-desk/internal/interfaces"
	"quant-desk/internal/ledger"
	"quant-desk/internal/llm"
	"quant-desk/internal/logger"
	"quant-desk/internal/marketdata"
	"quant-desk/internal/regime"
	"quant-desk/internal/signal"
	"quant-desk/internal/tradelog"
	"quant-desk/internal/types"
)

const (
	// minHistory is the shortest series a symbol needs to be traded.
	minHistory = 20
	// PairShares is the per-leg size of a pair trade.
	PairShares = 10

	maCrossShares           = 20
	maCrossSharesAggressive = 50
	maCrossConfidence       = 0.9
)

type Modes struct {
	Aggressive bool `json:"aggressive"`
	LowLatency bool `json:"lowLatency"`
}

// State is what the last cycle decided.
type State struct {
	Regime         types.Regime       `json:"regime"`
	Strategy       types.Strategy     `json:"strategy"`
	StrategyReason string             `json:"strategyReason"`
	ExchangeRate   float64            `json:"exchangeRate"`
	PortfolioValue float64            `json:"portfolioValue"`
	PairSignal     *signal.PairSignal `json:"pairSignal,omitempty"`
	LastCycle      time.Time          `json:"lastCycle"`
}

type Engine struct {
	cycleMu sync.Mutex
	mu      sync.RWMutex

	universe     []types.Instrument
	bySymbol     map[string]types.Instrument
	store        *marketdata.Store
	hours        marketdata.Hours
	rates        interfaces.RateSource
	oracle       interfaces.Oracle
	ledger       *ledger.Ledger
	factors      *alpha.Engine
	fundamentals *alpha.Fundamentals
	journal      *tradelog.Journal
	notifier     interfaces.Notifier
	pair         signal.Pair
	clock        func() time.Time

	exec *orderExecutor
	risk *riskManager

	modes Modes
	state State
}

var _ interfaces.Engine = (*Engine)(nil)

func (e *Engine) Modes() Modes {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modes
}

// SetModes takes effect from the next cycle.
func (e *Engine) SetModes(m Modes) {
	e.mu.Lock()
	e.modes = m
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) Portfolio() types.Portfolio { return e.ledger.Snapshot() }

// Activity returns the n most recent entries, newest first.
func (e *Engine) Activity(n int) []types.ActivityEntry { return e.ledger.Activity(n) }

// Status is the desk's full picture for the API.
type Status struct {
	State
	Modes        Modes                         `json:"modes"`
	MarketStatus types.MarketStatus            `json:"marketStatus"`
	Factors      map[string]types.AlphaFactors `json:"alphaFactors"`
	Fundamentals map[string]types.Fundamentals `json:"fundamentals"`
}

func (e *Engine) Status() Status {
	st := Status{
		State:        e.State(),
		Modes:        e.Modes(),
		MarketStatus: e.hours.Status(e.clock()),
		Factors:      make(map[string]types.AlphaFactors, len(e.universe)),
		Fundamentals: make(map[string]types.Fundamentals, len(e.universe)),
	}
	for _, inst := range e.universe {
		st.Factors[inst.Symbol] = e.factors.Get(inst.Symbol)
		st.Fundamentals[inst.Symbol] = e.fundamentals.Get(inst.Symbol)
	}
	return st
}

// Cycle runs one decision pass. Cycles never overlap. Once ctx is done no
// order is sent and nothing more is booked; the result is marked cancelled.
func (e *Engine) Cycle(ctx context.Context) (types.CycleResult, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	now := e.clock()
	snap := e.store.Snapshot(now)
	modes := e.Modes()
	status := e.hours.Status(now)
	rate := e.refreshRate(ctx)

	reg := regime.Detect(snap.Series(e.universe))
	e.fundamentals.Step()
	value := e.ledger.Value(snap.Prices, rate)
	res := types.CycleResult{Time: now, Regime: reg, ExchangeRate: rate, PortfolioValue: value}

	raw, err := e.oracle.SelectStrategy(ctx, types.StrategyRequest{
		Regime:         reg,
		PortfolioValue: value,
		Aggressive:     modes.Aggressive,
		LowLatency:     modes.LowLatency,
	})
	if ctx.Err() != nil {
		res.Cancelled = true
		return res, nil
	}
	sd := llm.ValidateStrategy(raw, err)
	res.Strategy, res.StrategyReason = sd.Strategy, sd.Reason
	logger.Decision(ctx, "DESK", string(sd.Strategy), 1, sd.Reason, "regime", reg, "portfolio_value", value)
	e.journalDecision(tradelog.DecisionEntry{
		Symbol:     "DESK",
		Strategy:   string(sd.Strategy),
		Action:     "SELECT_STRATEGY",
		Reason:     sd.Reason,
		Confidence: 1,
		Indicators: map[string]float64{"portfolioValue": value, "exchangeRate": rate},
	})

	for _, inst := range e.universe {
		if h := snap.History[inst.Symbol]; len(h) > 0 {
			e.factors.Refresh(inst.Symbol, h, sd.Strategy)
		}
	}

	var pairSig *signal.PairSignal
	if ps, ok := e.pair.Signal(snap.History[e.pair.First], snap.History[e.pair.Second]); ok {
		pairSig = &ps
	}

	e.mu.Lock()
	e.state = State{
		Regime:         reg,
		Strategy:       sd.Strategy,
		StrategyReason: sd.Reason,
		ExchangeRate:   rate,
		PortfolioValue: value,
		PairSignal:     pairSig,
		LastCycle:      now,
	}
	e.mu.Unlock()

	c := &cycle{
		e:         e,
		ctx:       ctx,
		snap:      snap,
		rate:      rate,
		status:    status,
		modes:     modes,
		strategy:  sd.Strategy,
		positions: newPositions(e.ledger.Snapshot()),
		pairSig:   pairSig,
	}
	switch sd.Strategy {
	case types.StrategyPairsTrading:
		c.runPairs()
	case types.StrategyRiskOff:
		c.runRiskOff()
	default:
		c.runDirectional()
	}

	if ctx.Err() == nil {
		if entry, ok := e.risk.sweepExcess(ctx, modes.Aggressive); ok {
			c.add(entry)
		}
	}

	res.Entries = c.entries
	res.Cancelled = ctx.Err() != nil
	res.PortfolioValue = e.ledger.Value(snap.Prices, rate)
	e.mu.Lock()
	e.state.PortfolioValue = res.PortfolioValue
	e.mu.Unlock()
	return res, nil
}

// refreshRate quotes USD->KRW, keeping the last rate on failure.
func (e *Engine) refreshRate(ctx context.Context) float64 {
	last := e.State().ExchangeRate
	r, err := e.rates.Rate(ctx)
	if err != nil || r <= 0 {
		logger.Warn(ctx, "Exchange rate unavailable, keeping last", "rate", last, "error", err)
		return last
	}
	return r
}

func (e *Engine) journalDecision(d tradelog.DecisionEntry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.AppendDecision(d); err != nil {
		logger.Warn(context.Background(), "Failed to journal decision", "symbol", d.Symbol, "error", err)
	}
}

func (e *Engine) instrument(symbol string) (types.Instrument, bool) {
	inst, ok := e.bySymbol[symbol]
	return inst, ok
}

// ExecuteManual books an operator order through the same venue and ledger
// path the cycle uses. Price defaults to the last known price.
func (e *Engine) ExecuteManual(ctx context.Context, req types.OrderReq) (types.ActivityEntry, error) {
	inst, ok := e.instrument(req.Symbol)
	if !ok {
		return types.ActivityEntry{}, fmt.Errorf("unknown symbol %q", req.Symbol)
	}
	switch req.Action {
	case types.ActionBuy, types.ActionSell, types.ActionShort, types.ActionCover:
	default:
		return types.ActivityEntry{}, fmt.Errorf("manual orders support BUY, SELL, SHORT and COVER, got %q", req.Action)
	}
	if req.Shares <= 0 {
		return types.ActivityEntry{}, fmt.Errorf("shares must be positive, got %d", req.Shares)
	}
	price := req.Price
	if price <= 0 {
		if price, ok = e.store.LastPrice(req.Symbol); !ok {
			return types.ActivityEntry{}, fmt.Errorf("no price for %s", req.Symbol)
		}
	}
	d := types.Decision{Action: req.Action, Shares: req.Shares, Reason: "Manual order", Confidence: 1}
	entry, ok := e.exec.execute(ctx, inst, d, price, e.State().ExchangeRate)
	if !ok {
		return types.ActivityEntry{}, ctx.Err()
	}
	if entry.Success {
		e.exec.notifyFill(ctx, inst, "MANUAL", d, price)
	}
	return entry, nil
}

// Withdraw moves cash from the bank into the portfolio and returns the
// bank's record of that transfer.
func (e *Engine) Withdraw(ctx context.Context, amount float64) (bank.Result, error) {
	_, res, err := e.risk.fromBank(ctx, amount, "Manual withdrawal from bank")
	return res, err
}

// Deposit moves portfolio cash into the bank.
func (e *Engine) Deposit(ctx context.Context, amount float64) (bank.Result, error) {
	_, res, err := e.risk.toBank(ctx, amount, "Manual deposit to bank")
	return res, err
}
