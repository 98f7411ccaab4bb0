package engine

import (
	"context"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/ledger"
	"quant-desk/internal/logger"
	"quant-desk/internal/notify"
	"quant-desk/internal/signal"
	"quant-desk/internal/types"
)

// orderExecutor sends each decision to the venue and books the fill.
// Nothing is sent once ctx is done; a fill the venue already returned is
// always booked.
type orderExecutor struct {
	venue    interfaces.Venue
	ledger   *ledger.Ledger
	risk     *riskManager
	notifier interfaces.Notifier
}

func newOrderExecutor(venue interfaces.Venue, l *ledger.Ledger, risk *riskManager, n interfaces.Notifier) *orderExecutor {
	return &orderExecutor{venue: venue, ledger: l, risk: risk, notifier: n}
}

// execute runs a directional order. ok is false when nothing was recorded
// because the context was cancelled.
func (oe *orderExecutor) execute(ctx context.Context, inst types.Instrument, d types.Decision, price, rate float64) (types.ActivityEntry, bool) {
	if ctx.Err() != nil {
		return types.ActivityEntry{}, false
	}
	conf := d.Confidence
	o := ledger.Order{Symbol: inst.Symbol, Shares: d.Shares, Price: price, Rate: rate, Reason: d.Reason, Confidence: &conf}

	if d.Action == types.ActionBuy || d.Action == types.ActionCover {
		oe.risk.ensureCash(ctx, oe.ledger.CostKRW(d.Action, inst.Symbol, d.Shares, price, rate))
	}

	fill, err := oe.venue.Execute(ctx, types.OrderReq{Symbol: inst.Symbol, Action: d.Action, Shares: d.Shares, Price: price})
	if err != nil {
		if ctx.Err() != nil {
			return types.ActivityEntry{}, false
		}
		e, _ := oe.ledger.RecordRejection(d.Action, o, err)
		return e, true
	}

	o.OrderID = fill.OrderID
	if fill.FilledPrice > 0 {
		o.Price = fill.FilledPrice
	}
	e, err := oe.ledger.Execute(d.Action, o)
	if err != nil {
		logger.Warn(ctx, "Fill not booked", "symbol", inst.Symbol, "action", d.Action, "order_id", fill.OrderID, "error", err)
		return e, true
	}
	logger.Trade(ctx, inst.Symbol, string(d.Action), d.Shares, e.Price, fill.OrderID, "reason", d.Reason)
	return e, true
}

// enterPair sends the pair as one ticket at the long leg's price, then
// books both legs atomically.
func (oe *orderExecutor) enterPair(ctx context.Context, longInst, shortInst types.Instrument, sig signal.PairSignal, q ledger.Quote) (types.ActivityEntry, bool) {
	if ctx.Err() != nil {
		return types.ActivityEntry{}, false
	}
	longPrice, shortPrice := q.Prices[longInst.Symbol], q.Prices[shortInst.Symbol]
	id := ledger.PairID(shortInst.Symbol, longInst.Symbol)
	conf := 1.0
	po := ledger.PairOrder{
		LongSymbol:  longInst.Symbol,
		ShortSymbol: shortInst.Symbol,
		LongPrice:   longPrice,
		ShortPrice:  shortPrice,
		Rate:        q.Rate,
		Sizing:      ledger.PairSizing{Shares: PairShares},
		Reason:      sig.Reason,
		Confidence:  &conf,
	}

	oe.risk.ensureCash(ctx, oe.ledger.CostKRW(types.ActionBuy, longInst.Symbol, PairShares, longPrice, q.Rate))

	fill, err := oe.venue.Execute(ctx, types.OrderReq{Symbol: id, Action: types.ActionEnterPair, Shares: PairShares, Price: longPrice})
	if err != nil {
		if ctx.Err() != nil {
			return types.ActivityEntry{}, false
		}
		e, _ := oe.ledger.RecordRejection(types.ActionEnterPair, ledger.Order{Symbol: id, Shares: PairShares, Price: longPrice, Rate: q.Rate, Reason: sig.Reason, Confidence: &conf}, err)
		return e, true
	}

	po.OrderID = fill.OrderID
	e, err := oe.ledger.EnterPair(po)
	if err != nil {
		logger.Warn(ctx, "Pair not booked", "pair", id, "error", err)
		return e, true
	}
	logger.Trade(ctx, id, string(types.ActionEnterPair), PairShares, e.Price, fill.OrderID, "z_score", sig.ZScore)
	oe.send(ctx, notify.PairSignal(types.ActionEnterPair, longInst, shortInst, sig.ZScore, sig.Reason))
	return e, true
}

// exitPair closes pt as one ticket.
func (oe *orderExecutor) exitPair(ctx context.Context, pt types.PairTrade, longInst, shortInst types.Instrument, z float64, reason string, q ledger.Quote) (types.ActivityEntry, bool) {
	if ctx.Err() != nil {
		return types.ActivityEntry{}, false
	}
	longPrice := q.Prices[pt.LongSymbol]

	need := oe.ledger.CostKRW(types.ActionCover, pt.ShortSymbol, pt.ShortShares, q.Prices[pt.ShortSymbol], q.Rate) -
		oe.ledger.CostKRW(types.ActionSell, pt.LongSymbol, pt.LongShares, longPrice, q.Rate)
	if need > 0 {
		oe.risk.ensureCash(ctx, need)
	}

	fill, err := oe.venue.Execute(ctx, types.OrderReq{Symbol: pt.ID, Action: types.ActionExitPair, Shares: pt.LongShares, Price: longPrice})
	if err != nil {
		if ctx.Err() != nil {
			return types.ActivityEntry{}, false
		}
		e, _ := oe.ledger.RecordRejection(types.ActionExitPair, ledger.Order{Symbol: pt.ID, Shares: pt.LongShares, Price: longPrice, Rate: q.Rate, Reason: reason}, err)
		return e, true
	}

	e, err := oe.ledger.ExitPairTicket(pt.ID, q, reason, fill.OrderID)
	if err != nil {
		logger.Warn(ctx, "Pair exit not booked", "pair", pt.ID, "error", err)
		return e, true
	}
	logger.Trade(ctx, pt.ID, string(types.ActionExitPair), pt.LongShares, e.Price, fill.OrderID, "reason", reason)
	oe.send(ctx, notify.PairSignal(types.ActionExitPair, longInst, shortInst, z, reason))
	return e, true
}

func (oe *orderExecutor) notifyFill(ctx context.Context, inst types.Instrument, strategy types.Strategy, d types.Decision, price float64) {
	if n, ok := notify.TradeSignal(inst, strategy, d, price); ok {
		oe.send(ctx, n)
	}
}

// send delivers n; failures are logged by the notifier and never fatal.
func (oe *orderExecutor) send(ctx context.Context, n types.Notification) {
	if oe.notifier == nil {
		return
	}
	_ = oe.notifier.Notify(ctx, n)
}
