package engine

import (
	"context"

	"quant-desk/internal/ledger"
	"quant-desk/internal/llm"
	"quant-desk/internal/logger"
	"quant-desk/internal/marketdata"
	"quant-desk/internal/notify"
	"quant-desk/internal/signal"
	"quant-desk/internal/tradelog"
	"quant-desk/internal/types"
)

// cycle is the per-pass working set. Everything here comes from the
// snapshot taken when the cycle started.
type cycle struct {
	e         *Engine
	ctx       context.Context
	snap      marketdata.Snapshot
	rate      float64
	status    types.MarketStatus
	modes     Modes
	strategy  types.Strategy
	positions positions
	pairSig   *signal.PairSignal
	entries   []types.ActivityEntry
}

func (c *cycle) add(e types.ActivityEntry) {
	c.entries = append(c.entries, e)
}

func (c *cycle) cancelled() bool {
	return c.ctx.Err() != nil
}

func (c *cycle) quote() ledger.Quote {
	return ledger.Quote{Prices: c.snap.Prices, Rate: c.rate}
}

// runPairs enters the spread when no pair on these legs is open and exits
// it when one is.
func (c *cycle) runPairs() {
	e := c.e
	first, ok1 := e.instrument(e.pair.First)
	second, ok2 := e.instrument(e.pair.Second)
	if !ok1 || !ok2 {
		logger.Warn(c.ctx, "Pair legs not in universe", "first", e.pair.First, "second", e.pair.Second)
		return
	}
	if !c.status.Open(first) || !c.status.Open(second) {
		logger.Debug(c.ctx, "Pair skipped, a leg's market is closed", "first", first.Symbol, "second", second.Symbol)
		return
	}
	if c.pairSig == nil {
		return
	}
	sig := *c.pairSig
	open, hasOpen := c.positions.pairFor(first.Symbol, second.Symbol)

	switch sig.Action {
	case signal.PairEnter:
		if hasOpen {
			return
		}
		longInst, _ := e.instrument(sig.LongSymbol)
		shortInst, _ := e.instrument(sig.ShortSymbol)
		if entry, ok := e.exec.enterPair(c.ctx, longInst, shortInst, sig, c.quote()); ok {
			c.add(entry)
		}
	case signal.PairExit:
		if !hasOpen {
			return
		}
		longInst, _ := e.instrument(open.LongSymbol)
		shortInst, _ := e.instrument(open.ShortSymbol)
		if entry, ok := e.exec.exitPair(c.ctx, open, longInst, shortInst, sig.ZScore, sig.Reason, c.quote()); ok {
			c.add(entry)
		}
	}
}

// runRiskOff flattens every non-pair holding in symbol order, then exits
// every pair.
func (c *cycle) runRiskOff() {
	e := c.e
	for _, sym := range c.positions.singles() {
		if c.cancelled() {
			return
		}
		inst, ok := e.instrument(sym)
		if !ok || !c.status.Open(inst) {
			continue
		}
		price, ok := c.snap.Prices[sym]
		if !ok {
			continue
		}
		h := c.positions.holding(sym)
		action := types.ActionSell
		if h.PositionType == types.Short {
			action = types.ActionCover
		}
		d := types.Decision{Action: action, Shares: h.Shares, Reason: "RISK_OFF: liquidating position", Confidence: 1}
		logger.Risk(c.ctx, sym, "RISK_OFF_LIQUIDATION", "shares", h.Shares, "position_type", h.PositionType)
		if entry, ok := e.exec.execute(c.ctx, inst, d, price, c.rate); ok {
			c.add(entry)
		}
	}
	for _, pt := range c.positions.pairs() {
		if c.cancelled() {
			return
		}
		longInst, ok1 := e.instrument(pt.LongSymbol)
		shortInst, ok2 := e.instrument(pt.ShortSymbol)
		if !ok1 || !ok2 || !c.status.Open(longInst) || !c.status.Open(shortInst) {
			continue
		}
		if entry, ok := e.exec.exitPair(c.ctx, pt, longInst, shortInst, 0, "RISK_OFF: exiting pair", c.quote()); ok {
			c.add(entry)
		}
	}
}

// runDirectional walks the universe KRW first and asks the active
// strategy for one decision per tradable symbol.
func (c *cycle) runDirectional() {
	for _, inst := range marketdata.ProcessingOrder(c.e.universe) {
		if c.cancelled() {
			return
		}
		sym := inst.Symbol
		if !c.status.Open(inst) {
			continue
		}
		hist := c.snap.History[sym]
		price, ok := c.snap.Prices[sym]
		if len(hist) < minHistory || !ok {
			continue
		}
		if c.positions.isPairLeg(sym) {
			continue
		}

		d, notifyFill, ok := c.decide(inst, hist)
		// An answer that arrives after cancellation is dropped.
		if !ok || c.cancelled() {
			continue
		}
		c.apply(inst, d, price, notifyFill)
	}
}

// decide returns the strategy's decision for inst. notifyFill reports
// whether a fill should be announced; the analyst path announces the
// signal itself.
func (c *cycle) decide(inst types.Instrument, hist []types.PricePoint) (types.Decision, bool, bool) {
	e := c.e
	switch c.strategy {
	case types.StrategyMACross:
		d, ok := signal.MACross(hist)
		if !ok {
			return types.Decision{}, false, false
		}
		d.Shares = maCrossShares
		if c.modes.Aggressive {
			d.Shares = maCrossSharesAggressive
		}
		d.Confidence = maCrossConfidence
		return d, true, true

	case types.StrategyDeepHedging:
		features := signal.ExtractFeatures(hist)
		raw, err := e.oracle.Infer(c.ctx, types.MLRequest{
			Instrument: inst,
			Features:   features,
			Aggressive: c.modes.Aggressive,
			LowLatency: c.modes.LowLatency,
		})
		if c.cancelled() {
			return types.Decision{}, false, false
		}
		d := llm.ValidateML(raw, err, c.modes.Aggressive)
		c.journal(inst, d, map[string]float64{
			"priceChange5":  features.PriceChange5,
			"priceChange20": features.PriceChange20,
			"volatility10":  features.Volatility10,
			"rsi14":         features.RSI14,
		})
		return d, true, true

	default:
		trend := signal.Trend(hist)
		factors := e.factors.Get(inst.Symbol)
		raw, err := e.oracle.Analyze(c.ctx, types.AnalystRequest{
			Instrument:   inst,
			Strategy:     c.strategy,
			Factors:      factors,
			Trend:        trend,
			Fundamentals: e.fundamentals.Get(inst.Symbol),
			Aggressive:   c.modes.Aggressive,
			LowLatency:   c.modes.LowLatency,
		})
		if c.cancelled() {
			return types.Decision{}, false, false
		}
		d := llm.ValidateAnalyst(raw, err, trend, c.modes.Aggressive)
		c.journal(inst, d, map[string]float64{
			"value":         factors.Value,
			"momentum":      factors.Momentum,
			"meanReversion": factors.MeanReversion,
			"composite":     factors.CompositeAlphaScore,
		})
		if n, ok := notify.AnalystSignal(inst, c.strategy, d); ok {
			e.exec.send(c.ctx, n)
		}
		return d, false, true
	}
}

func (c *cycle) journal(inst types.Instrument, d types.Decision, indicators map[string]float64) {
	logger.Decision(c.ctx, inst.Symbol, string(d.Action), d.Confidence, d.Reason, "strategy", c.strategy, "shares", d.Shares)
	c.e.journalDecision(tradelog.DecisionEntry{
		Symbol:     inst.Symbol,
		Strategy:   string(c.strategy),
		Action:     string(d.Action),
		Reason:     d.Reason,
		Confidence: d.Confidence,
		Price:      c.snap.Prices[inst.Symbol],
		Indicators: indicators,
	})
}

// apply books d. A HOLD is recorded without touching the portfolio.
func (c *cycle) apply(inst types.Instrument, d types.Decision, price float64, notifyFill bool) {
	if d.Action == types.ActionHold || d.Shares <= 0 {
		conf := d.Confidence
		c.add(c.e.ledger.RecordHold(inst.Symbol, d.Reason, &conf))
		return
	}
	entry, ok := c.e.exec.execute(c.ctx, inst, d, price, c.rate)
	if !ok {
		return
	}
	c.add(entry)
	if entry.Success && notifyFill {
		c.e.exec.notifyFill(c.ctx, inst, c.strategy, d, price)
	}
}
