package signal

import (
	"quant-desk/internal/ta"
	"quant-desk/internal/types"
)

// Trend compares SMA5 with SMA20 inside a 0.1% dead band.
func Trend(history []types.PricePoint) types.Trend {
	if len(history) < crossLong {
		return types.TrendNeutral
	}
	prices := types.Prices(history)
	s, l := ta.SMA(prices, crossShort), ta.SMA(prices, crossLong)
	switch {
	case s > l*1.001:
		return types.TrendUp
	case s < l*0.999:
		return types.TrendDown
	default:
		return types.TrendNeutral
	}
}
