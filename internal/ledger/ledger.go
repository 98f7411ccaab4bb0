// Package ledger owns the virtual portfolio. Every operation validates
// against a clone, commits only on success and appends exactly one activity
// entry, so a failed trade never leaves partial state behind.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quant-desk/internal/errs"
	"quant-desk/internal/types"
)

// Order is one directional instruction. Price is the pre-slippage price in
// the instrument's currency; Rate is USD->KRW.
type Order struct {
	Symbol     string
	Shares     int
	Price      float64
	Rate       float64
	Reason     string
	Confidence *float64
	// OrderID is the venue ticket the entry settles, if any.
	OrderID string
}

// Quote carries the prices needed to close positions.
type Quote struct {
	Prices map[string]float64
	Rate   float64
}

type Options struct {
	InitialCash float64
	ActivityCap int
	Clock       func() time.Time
	// OnEntry is called after each entry is recorded, outside the lock.
	OnEntry func(types.ActivityEntry)
}

type Ledger struct {
	mu          sync.Mutex
	portfolio   types.Portfolio
	instruments map[string]types.Instrument
	activity    *activityLog
	clock       func() time.Time
	onEntry     func(types.ActivityEntry)
}

func New(universe []types.Instrument, opts Options) *Ledger {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	l := &Ledger{
		portfolio:   types.NewPortfolio(opts.InitialCash),
		instruments: make(map[string]types.Instrument, len(universe)),
		activity:    newActivityLog(opts.ActivityCap),
		clock:       opts.Clock,
		onEntry:     opts.OnEntry,
	}
	for _, inst := range universe {
		l.instruments[inst.Symbol] = inst
	}
	return l
}

// Snapshot returns a deep copy of the portfolio.
func (l *Ledger) Snapshot() types.Portfolio {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.portfolio.Clone()
}

func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.portfolio.Cash
}

// Activity returns up to n recent entries, newest first.
func (l *Ledger) Activity(n int) []types.ActivityEntry {
	return l.activity.recent(n)
}

// Value marks the portfolio to market in KRW: cash plus longs minus shorts.
// Holdings without a price are marked at cost.
func (l *Ledger) Value(prices map[string]float64, rate float64) float64 {
	l.mu.Lock()
	p := l.portfolio.Clone()
	l.mu.Unlock()

	total := decimal.NewFromFloat(p.Cash)
	for sym, h := range p.Holdings {
		px, ok := prices[sym]
		if !ok || px <= 0 {
			px = h.AvgPrice
		}
		mv := notionalKRW(l.instrument(sym), h.Shares, px, rate)
		if h.PositionType == types.Short {
			total = total.Sub(mv)
		} else {
			total = total.Add(mv)
		}
	}
	return total.InexactFloat64()
}

// CostKRW is what an action on symbol would settle for in KRW, after slippage.
func (l *Ledger) CostKRW(action types.Action, symbol string, shares int, price, rate float64) float64 {
	exec := ExecPrice(action, price, shares)
	return notionalKRW(l.instrument(symbol), shares, exec, rate).InexactFloat64()
}

func (l *Ledger) instrument(symbol string) types.Instrument {
	if inst, ok := l.instruments[symbol]; ok {
		return inst
	}
	return types.Instrument{Symbol: symbol, Currency: types.KRW}
}

func (l *Ledger) Buy(o Order) (types.ActivityEntry, error) {
	return l.apply(types.ActionBuy, o, func(p *types.Portfolio, inst types.Instrument) (float64, error) {
		return buy(p, inst, o.Shares, o.Price, o.Rate, "")
	})
}

func (l *Ledger) Sell(o Order) (types.ActivityEntry, error) {
	return l.apply(types.ActionSell, o, func(p *types.Portfolio, inst types.Instrument) (float64, error) {
		return sell(p, inst, o.Shares, o.Price, o.Rate, "")
	})
}

func (l *Ledger) Short(o Order) (types.ActivityEntry, error) {
	return l.apply(types.ActionShort, o, func(p *types.Portfolio, inst types.Instrument) (float64, error) {
		return short(p, inst, o.Shares, o.Price, o.Rate, "")
	})
}

func (l *Ledger) Cover(o Order) (types.ActivityEntry, error) {
	return l.apply(types.ActionCover, o, func(p *types.Portfolio, inst types.Instrument) (float64, error) {
		return cover(p, inst, o.Shares, o.Price, o.Rate, "")
	})
}

// Execute dispatches a directional action to the matching operation.
func (l *Ledger) Execute(action types.Action, o Order) (types.ActivityEntry, error) {
	switch action {
	case types.ActionBuy:
		return l.Buy(o)
	case types.ActionSell:
		return l.Sell(o)
	case types.ActionShort:
		return l.Short(o)
	case types.ActionCover:
		return l.Cover(o)
	}
	return l.RecordRejection(action, o, fmt.Errorf("%w: unsupported action %q", errs.ErrInvalidOrder, action))
}

// Liquidate closes a non-pair holding in full at the quoted price. The
// entry's action and shares come from the holding the close commits against.
func (l *Ledger) Liquidate(symbol string, q Quote, reason string) (types.ActivityEntry, error) {
	o := Order{Symbol: symbol, Price: q.Prices[symbol], Rate: q.Rate, Reason: reason}
	return l.commit(l.entry(types.ActionSell, o), func(p *types.Portfolio, inst types.Instrument, e *types.ActivityEntry) (float64, error) {
		cur, ok := p.Holdings[symbol]
		if !ok {
			return 0, fmt.Errorf("%w: nothing to liquidate in %s", errs.ErrNoPosition, symbol)
		}
		e.Shares = cur.Shares
		if cur.PositionType == types.Short {
			e.Action = types.ActionCover
		}
		if cur.PairID != "" {
			return 0, fmt.Errorf("%w: %s is a leg of pair %s", errs.ErrPositionConflict, symbol, cur.PairID)
		}
		if cur.PositionType == types.Short {
			return cover(p, inst, cur.Shares, o.Price, o.Rate, "")
		}
		return sell(p, inst, cur.Shares, o.Price, o.Rate, "")
	})
}

// LiquidateAll closes every non-pair holding in symbol order, then exits
// every pair in id order. Each close records its own entry.
func (l *Ledger) LiquidateAll(q Quote, reason string) []types.ActivityEntry {
	snap := l.Snapshot()

	var singles []string
	for sym, h := range snap.Holdings {
		if h.PairID == "" {
			singles = append(singles, sym)
		}
	}
	sort.Strings(singles)
	pairs := make([]string, 0, len(snap.PairTrades))
	for id := range snap.PairTrades {
		pairs = append(pairs, id)
	}
	sort.Strings(pairs)

	out := make([]types.ActivityEntry, 0, len(singles)+len(pairs))
	for _, sym := range singles {
		e, _ := l.Liquidate(sym, q, reason)
		out = append(out, e)
	}
	for _, id := range pairs {
		e, _ := l.ExitPair(id, q, reason)
		out = append(out, e)
	}
	return out
}

// AddCash credits cash received from the bank.
func (l *Ledger) AddCash(amount float64, reason string) (types.ActivityEntry, error) {
	return l.transfer(amount, reason, func(p *types.Portfolio, amt decimal.Decimal) error {
		addCash(p, amt)
		return nil
	})
}

// RemoveCash debits cash sent to the bank.
func (l *Ledger) RemoveCash(amount float64, reason string) (types.ActivityEntry, error) {
	return l.transfer(amount, reason, func(p *types.Portfolio, amt decimal.Decimal) error {
		if !hasCash(p, amt) {
			return fmt.Errorf("%w: cash %.0f < transfer %s", errs.ErrInsufficientFunds, p.Cash, amt.StringFixed(0))
		}
		addCash(p, amt.Neg())
		return nil
	})
}

func (l *Ledger) transfer(amount float64, reason string, fn func(*types.Portfolio, decimal.Decimal) error) (types.ActivityEntry, error) {
	o := Order{Symbol: "CASH", Price: amount, Reason: reason}
	return l.apply(types.ActionHold, o, func(p *types.Portfolio, _ types.Instrument) (float64, error) {
		if amount <= 0 {
			return 0, fmt.Errorf("%w: transfer amount must be positive", errs.ErrInvalidOrder)
		}
		return amount, fn(p, decimal.NewFromFloat(amount))
	})
}

// RecordHold logs a decision that does not touch the portfolio.
func (l *Ledger) RecordHold(symbol, reason string, confidence *float64) types.ActivityEntry {
	e := l.entry(types.ActionHold, Order{Symbol: symbol, Reason: reason, Confidence: confidence})
	e.Success = true
	l.record(e)
	return e
}

// RecordRejection logs a failed action without touching the portfolio, for
// failures that happen before the ledger is reached (venue rejects, bad input).
func (l *Ledger) RecordRejection(action types.Action, o Order, cause error) (types.ActivityEntry, error) {
	e := l.entry(action, o)
	e.ErrorKind = errs.Kind(cause)
	e.Reason = joinReason(o.Reason, cause)
	l.record(e)
	return e, cause
}

type opFunc func(p *types.Portfolio, inst types.Instrument) (execPrice float64, err error)

// apply runs fn against a clone and commits it on success.
func (l *Ledger) apply(action types.Action, o Order, fn opFunc) (types.ActivityEntry, error) {
	return l.commit(l.entry(action, o), func(p *types.Portfolio, inst types.Instrument, _ *types.ActivityEntry) (float64, error) {
		return fn(p, inst)
	})
}

// commit is apply for operations that settle the entry's details from the
// state they read under the lock.
func (l *Ledger) commit(e types.ActivityEntry, fn func(p *types.Portfolio, inst types.Instrument, e *types.ActivityEntry) (float64, error)) (types.ActivityEntry, error) {
	reason := e.Reason

	l.mu.Lock()
	next := l.portfolio.Clone()
	exec, err := fn(&next, l.instrument(e.Symbol), &e)
	if err == nil {
		l.portfolio = next
	}
	l.mu.Unlock()

	if err != nil {
		e.ErrorKind = errs.Kind(err)
		e.Reason = joinReason(reason, err)
	} else {
		e.Success = true
		e.Price = exec
	}
	l.record(e)
	return e, err
}

func (l *Ledger) entry(action types.Action, o Order) types.ActivityEntry {
	return types.ActivityEntry{
		ID:         uuid.NewString(),
		Timestamp:  l.clock(),
		Action:     action,
		Symbol:     o.Symbol,
		Shares:     o.Shares,
		Price:      o.Price,
		Reason:     o.Reason,
		Confidence: o.Confidence,
		OrderID:    o.OrderID,
	}
}

func (l *Ledger) record(e types.ActivityEntry) {
	l.activity.add(e)
	if l.onEntry != nil {
		l.onEntry(e)
	}
}

func joinReason(reason string, err error) string {
	if reason == "" {
		return err.Error()
	}
	return reason + " (" + err.Error() + ")"
}
