package engine

import (
	"sort"

	"quant-desk/internal/types"
)

// positions is a read-only view of the portfolio taken at cycle start.
type positions struct {
	p types.Portfolio
}

func newPositions(p types.Portfolio) positions {
	return positions{p: p}
}

func (ps positions) holding(symbol string) types.Holding {
	return ps.p.Holdings[symbol]
}

// isPairLeg reports whether symbol's holding belongs to a pair trade.
func (ps positions) isPairLeg(symbol string) bool {
	h, ok := ps.p.Holdings[symbol]
	return ok && h.PairID != ""
}

// pairFor finds an open pair on legs a and b in either direction.
func (ps positions) pairFor(a, b string) (types.PairTrade, bool) {
	for _, pt := range ps.pairs() {
		if (pt.LongSymbol == a && pt.ShortSymbol == b) || (pt.LongSymbol == b && pt.ShortSymbol == a) {
			return pt, true
		}
	}
	return types.PairTrade{}, false
}

// singles lists non-pair holdings in symbol order.
func (ps positions) singles() []string {
	out := make([]string, 0, len(ps.p.Holdings))
	for sym, h := range ps.p.Holdings {
		if h.PairID == "" {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// pairs lists open pair trades in id order.
func (ps positions) pairs() []types.PairTrade {
	out := make([]types.PairTrade, 0, len(ps.p.PairTrades))
	for _, pt := range ps.p.PairTrades {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
