package ledger

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"quant-desk/internal/errs"
	"quant-desk/internal/types"
)

// PairSizing sizes each leg either by a fixed share count or by a KRW
// notional per leg. Shares wins when both are set.
type PairSizing struct {
	Shares      int
	NotionalKRW float64
}

type PairOrder struct {
	LongSymbol  string
	ShortSymbol string
	LongPrice   float64
	ShortPrice  float64
	Rate        float64
	Sizing      PairSizing
	Reason      string
	Confidence  *float64
	OrderID     string
}

// PairID names a pair by its legs: "<short>-<long>".
func PairID(shortSymbol, longSymbol string) string {
	return shortSymbol + "-" + longSymbol
}

// legShares converts the sizing into a share count for one leg, flooring
// notional sizing and never returning less than one share.
func legShares(inst types.Instrument, price, rate float64, s PairSizing) int {
	if s.Shares > 0 {
		return s.Shares
	}
	if s.NotionalKRW <= 0 || price <= 0 {
		return 0
	}
	krwPrice := notionalKRW(inst, 1, price, rate)
	if krwPrice.IsZero() {
		return 0
	}
	n := decimal.NewFromFloat(s.NotionalKRW).Div(krwPrice).Floor().IntPart()
	return int(math.Max(1, float64(n)))
}

// EnterPair buys the long leg and shorts the short leg as one unit. Either
// both legs are booked with a PairTrade record, or nothing is. The entry's
// price is the entry spread (short exec / long exec).
func (l *Ledger) EnterPair(o PairOrder) (types.ActivityEntry, error) {
	id := PairID(o.ShortSymbol, o.LongSymbol)
	longInst, shortInst := l.instrument(o.LongSymbol), l.instrument(o.ShortSymbol)
	ls := legShares(longInst, o.LongPrice, o.Rate, o.Sizing)
	ss := legShares(shortInst, o.ShortPrice, o.Rate, o.Sizing)

	entry := Order{Symbol: id, Shares: ls, Price: o.LongPrice, Rate: o.Rate, Reason: o.Reason, Confidence: o.Confidence, OrderID: o.OrderID}
	return l.apply(types.ActionEnterPair, entry, func(p *types.Portfolio, _ types.Instrument) (float64, error) {
		if o.LongSymbol == o.ShortSymbol {
			return 0, fmt.Errorf("%w: pair legs must differ", errs.ErrInvalidOrder)
		}
		if _, open := p.PairTrades[id]; open {
			return 0, fmt.Errorf("%w: pair %s already open", errs.ErrPositionConflict, id)
		}
		longExec, err := buy(p, longInst, ls, o.LongPrice, o.Rate, id)
		if err != nil {
			return 0, fmt.Errorf("long leg %s: %w", o.LongSymbol, err)
		}
		shortExec, err := short(p, shortInst, ss, o.ShortPrice, o.Rate, id)
		if err != nil {
			return 0, fmt.Errorf("short leg %s: %w", o.ShortSymbol, err)
		}
		spread := decimal.NewFromFloat(shortExec).Div(decimal.NewFromFloat(longExec)).InexactFloat64()
		p.PairTrades[id] = types.PairTrade{
			ID:              id,
			LongSymbol:      o.LongSymbol,
			ShortSymbol:     o.ShortSymbol,
			LongShares:      ls,
			ShortShares:     ss,
			EntryPriceLong:  longExec,
			EntryPriceShort: shortExec,
			EntrySpread:     spread,
			EntryTime:       l.clock(),
		}
		return spread, nil
	})
}

// ExitPair sells the whole long leg then covers the whole short leg. The
// entry's price is the exit spread.
func (l *Ledger) ExitPair(id string, q Quote, reason string) (types.ActivityEntry, error) {
	return l.ExitPairTicket(id, q, reason, "")
}

// ExitPairTicket is ExitPair settling a venue ticket.
func (l *Ledger) ExitPairTicket(id string, q Quote, reason, orderID string) (types.ActivityEntry, error) {
	l.mu.Lock()
	pt := l.portfolio.PairTrades[id]
	l.mu.Unlock()

	entry := Order{Symbol: id, Shares: pt.LongShares, Price: q.Prices[pt.LongSymbol], Rate: q.Rate, Reason: reason, OrderID: orderID}
	return l.apply(types.ActionExitPair, entry, func(p *types.Portfolio, _ types.Instrument) (float64, error) {
		cur, ok := p.PairTrades[id]
		if !ok {
			return 0, fmt.Errorf("%w: no open pair %s", errs.ErrNoPosition, id)
		}
		longExec, err := sell(p, l.instrument(cur.LongSymbol), cur.LongShares, q.Prices[cur.LongSymbol], q.Rate, id)
		if err != nil {
			return 0, fmt.Errorf("long leg %s: %w", cur.LongSymbol, err)
		}
		shortExec, err := cover(p, l.instrument(cur.ShortSymbol), cur.ShortShares, q.Prices[cur.ShortSymbol], q.Rate, id)
		if err != nil {
			return 0, fmt.Errorf("short leg %s: %w", cur.ShortSymbol, err)
		}
		delete(p.PairTrades, id)
		return decimal.NewFromFloat(shortExec).Div(decimal.NewFromFloat(longExec)).InexactFloat64(), nil
	})
}
