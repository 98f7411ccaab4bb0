// Package regime classifies the market from the universe's recent history.
package regime

import (
	"math"

	"quant-desk/internal/ta"
	"quant-desk/internal/types"
)

const (
	minPoints      = 20
	shortMA        = 5
	longMA         = 20
	trendThreshold = 0.015
	highVol        = 0.8
	lowVol         = 0.3
)

// Detect returns the regime for the given series, ordered by universe. The
// series are averaged by index, not joined on time.
func Detect(series [][]types.PricePoint) types.Regime {
	if len(series) == 0 || len(series[0]) < minPoints {
		return types.RegimeNeutral
	}

	avg := averageByIndex(series)
	returns := make([]float64, 0, len(avg))
	for i := 1; i < len(avg); i++ {
		if avg[i-1] == 0 {
			continue
		}
		returns = append(returns, (avg[i]-avg[i-1])/avg[i-1])
	}
	if len(returns) > minPoints {
		returns = returns[len(returns)-minPoints:]
	}
	vol := 0.0
	if sd := ta.StdDev(returns); !math.IsNaN(sd) {
		vol = sd * 100
	}

	strength := 0.0
	s, l := ta.SMA(avg, shortMA), ta.SMA(avg, longMA)
	if !math.IsNaN(s) && !math.IsNaN(l) && l > 0 {
		strength = math.Abs(s-l) / l
	}

	switch {
	case strength > trendThreshold:
		return types.RegimeTrending
	case vol > highVol:
		return types.RegimeRanging
	case vol < lowVol:
		return types.RegimeLowVolatility
	default:
		return types.RegimeNeutral
	}
}

// averageByIndex is as long as the first series; later series contribute
// only where they have a point at that index.
func averageByIndex(series [][]types.PricePoint) []float64 {
	n := len(series[0])
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sum, cnt := 0.0, 0
		for _, s := range series {
			if i < len(s) {
				sum += s[i].Price
				cnt++
			}
		}
		out[i] = sum / float64(cnt)
	}
	return out
}
