package signal

import (
	"fmt"
	"math"

	"quant-desk/internal/ta"
	"quant-desk/internal/types"
)

const (
	crossShort = 5
	crossLong  = 20
)

// MACross reports a BUY on a golden cross and a SELL on a dead cross of the
// 5/20 simple moving averages. It fires only on the bar where the cross
// happens; sizing is left to the caller.
func MACross(history []types.PricePoint) (types.Decision, bool) {
	if len(history) < crossLong+1 {
		return types.Decision{}, false
	}
	prices := types.Prices(history)
	prev := prices[:len(prices)-1]

	curS, curL := ta.SMA(prices, crossShort), ta.SMA(prices, crossLong)
	prevS, prevL := ta.SMA(prev, crossShort), ta.SMA(prev, crossLong)
	if math.IsNaN(curS) || math.IsNaN(curL) || math.IsNaN(prevS) || math.IsNaN(prevL) {
		return types.Decision{}, false
	}

	switch {
	case prevS <= prevL && curS > curL:
		return types.Decision{
			Action: types.ActionBuy,
			Reason: fmt.Sprintf("Golden cross: SMA%d %.2f crossed above SMA%d %.2f", crossShort, curS, crossLong, curL),
		}, true
	case prevS >= prevL && curS < curL:
		return types.Decision{
			Action: types.ActionSell,
			Reason: fmt.Sprintf("Dead cross: SMA%d %.2f crossed below SMA%d %.2f", crossShort, curS, crossLong, curL),
		}, true
	}
	return types.Decision{}, false
}
