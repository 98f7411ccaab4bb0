package ledger

import (
	"fmt"

	"quant-desk/internal/errs"
	"quant-desk/internal/types"
)

// The leg operations below mutate p in place and are only ever run against
// a clone. pairID is empty for directional trades; for pair legs it is the
// id of the pair being opened or closed.

func validate(inst types.Instrument, shares int, price, rate float64) error {
	switch {
	case shares <= 0:
		return fmt.Errorf("%w: shares must be positive, got %d", errs.ErrInvalidOrder, shares)
	case price <= 0:
		return fmt.Errorf("%w: no usable price for %s", errs.ErrInvalidOrder, inst.Symbol)
	case inst.Currency == types.USD && rate <= 0:
		return fmt.Errorf("%w: no exchange rate for %s", errs.ErrInvalidOrder, inst.Symbol)
	}
	return nil
}

func buy(p *types.Portfolio, inst types.Instrument, shares int, price, rate float64, pairID string) (float64, error) {
	if err := validate(inst, shares, price, rate); err != nil {
		return 0, err
	}
	h, held := p.Holdings[inst.Symbol]
	switch {
	case held && pairID != "":
		return 0, fmt.Errorf("%w: %s already held", errs.ErrPositionConflict, inst.Symbol)
	case held && h.PairID != "":
		return 0, fmt.Errorf("%w: %s is a leg of pair %s", errs.ErrPositionConflict, inst.Symbol, h.PairID)
	case held && h.PositionType == types.Short:
		return 0, fmt.Errorf("%w: %s is held short", errs.ErrPositionConflict, inst.Symbol)
	}

	exec := ExecPrice(types.ActionBuy, price, shares)
	cost := notionalKRW(inst, shares, exec, rate)
	if !hasCash(p, cost) {
		return 0, fmt.Errorf("%w: cash %.0f < cost %s", errs.ErrInsufficientFunds, p.Cash, cost.StringFixed(0))
	}
	addCash(p, cost.Neg())

	if held {
		h.AvgPrice = weightedAvg(h.Shares, h.AvgPrice, shares, exec)
		h.Shares += shares
	} else {
		h = types.Holding{Shares: shares, AvgPrice: exec, PositionType: types.Long, PairID: pairID}
	}
	p.Holdings[inst.Symbol] = h
	return exec, nil
}

func sell(p *types.Portfolio, inst types.Instrument, shares int, price, rate float64, pairID string) (float64, error) {
	if err := validate(inst, shares, price, rate); err != nil {
		return 0, err
	}
	h, held := p.Holdings[inst.Symbol]
	if held && h.PairID != pairID {
		return 0, fmt.Errorf("%w: %s is a leg of pair %s", errs.ErrPositionConflict, inst.Symbol, h.PairID)
	}
	if !held || h.PositionType != types.Long || h.Shares < shares {
		return 0, fmt.Errorf("%w: %s long %d < %d", errs.ErrInsufficientPosition, inst.Symbol, longShares(h, held), shares)
	}

	exec := ExecPrice(types.ActionSell, price, shares)
	addCash(p, notionalKRW(inst, shares, exec, rate))
	reduce(p, inst.Symbol, h, shares)
	return exec, nil
}

func short(p *types.Portfolio, inst types.Instrument, shares int, price, rate float64, pairID string) (float64, error) {
	if err := validate(inst, shares, price, rate); err != nil {
		return 0, err
	}
	if h, held := p.Holdings[inst.Symbol]; held {
		return 0, fmt.Errorf("%w: %s already held %s", errs.ErrPositionConflict, inst.Symbol, h.PositionType)
	}

	exec := ExecPrice(types.ActionShort, price, shares)
	addCash(p, notionalKRW(inst, shares, exec, rate))
	p.Holdings[inst.Symbol] = types.Holding{Shares: shares, AvgPrice: exec, PositionType: types.Short, PairID: pairID}
	return exec, nil
}

func cover(p *types.Portfolio, inst types.Instrument, shares int, price, rate float64, pairID string) (float64, error) {
	if err := validate(inst, shares, price, rate); err != nil {
		return 0, err
	}
	h, held := p.Holdings[inst.Symbol]
	if held && h.PairID != pairID {
		return 0, fmt.Errorf("%w: %s is a leg of pair %s", errs.ErrPositionConflict, inst.Symbol, h.PairID)
	}
	if !held || h.PositionType != types.Short || h.Shares < shares {
		return 0, fmt.Errorf("%w: no short of %d %s to cover", errs.ErrNoPosition, shares, inst.Symbol)
	}

	exec := ExecPrice(types.ActionCover, price, shares)
	cost := notionalKRW(inst, shares, exec, rate)
	if !hasCash(p, cost) {
		return 0, fmt.Errorf("%w: cash %.0f < cover cost %s", errs.ErrInsufficientFunds, p.Cash, cost.StringFixed(0))
	}
	addCash(p, cost.Neg())
	reduce(p, inst.Symbol, h, shares)
	return exec, nil
}

// reduce shrinks a holding and drops it at zero. AvgPrice is unchanged.
func reduce(p *types.Portfolio, symbol string, h types.Holding, shares int) {
	h.Shares -= shares
	if h.Shares == 0 {
		delete(p.Holdings, symbol)
		return
	}
	p.Holdings[symbol] = h
}

func longShares(h types.Holding, held bool) int {
	if !held || h.PositionType != types.Long {
		return 0
	}
	return h.Shares
}
