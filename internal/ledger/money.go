package ledger

import (
	"github.com/shopspring/decimal"

	"quant-desk/internal/types"
)

var (
	maxSlippage     = decimal.RequireFromString("0.005")
	slippagePer1000 = decimal.RequireFromString("0.001")
	thousand        = decimal.NewFromInt(1000)
)

// Slippage is the per-share price impact: price*min(0.5%, shares/1000*0.1%).
func Slippage(price float64, shares int) float64 {
	impact := decimal.Min(maxSlippage, decimal.NewFromInt(int64(shares)).Div(thousand).Mul(slippagePer1000))
	return decimal.NewFromFloat(price).Mul(impact).InexactFloat64()
}

// ExecPrice applies slippage against the trader: buys and covers pay up,
// sells and shorts receive less.
func ExecPrice(action types.Action, price float64, shares int) float64 {
	p := decimal.NewFromFloat(price)
	slip := decimal.NewFromFloat(Slippage(price, shares))
	switch action {
	case types.ActionBuy, types.ActionCover:
		return p.Add(slip).InexactFloat64()
	default:
		return p.Sub(slip).InexactFloat64()
	}
}

// notionalKRW converts shares*price into KRW. rate is USD->KRW and ignored
// for KRW instruments.
func notionalKRW(inst types.Instrument, shares int, price, rate float64) decimal.Decimal {
	n := decimal.NewFromInt(int64(shares)).Mul(decimal.NewFromFloat(price))
	if inst.Currency == types.USD {
		n = n.Mul(decimal.NewFromFloat(rate))
	}
	return n
}

func addCash(p *types.Portfolio, amount decimal.Decimal) {
	p.Cash = decimal.NewFromFloat(p.Cash).Add(amount).InexactFloat64()
}

func hasCash(p *types.Portfolio, amount decimal.Decimal) bool {
	return decimal.NewFromFloat(p.Cash).GreaterThanOrEqual(amount)
}

// weightedAvg returns the average cost after adding n shares at price.
func weightedAvg(held int, avg float64, n int, price float64) float64 {
	total := decimal.NewFromInt(int64(held)).Mul(decimal.NewFromFloat(avg)).
		Add(decimal.NewFromInt(int64(n)).Mul(decimal.NewFromFloat(price)))
	return total.Div(decimal.NewFromInt(int64(held + n))).InexactFloat64()
}
