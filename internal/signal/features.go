package signal

import (
	"math"

	"quant-desk/internal/ta"
	"quant-desk/internal/types"
)

const featureMinPoints = 21

// ExtractFeatures builds the ML oracle's input vector. Short histories yield
// the neutral vector {0, 0, 0, 50}.
func ExtractFeatures(history []types.PricePoint) types.MLFeatures {
	neutral := types.MLFeatures{RSI14: 50}
	if len(history) < featureMinPoints {
		return neutral
	}
	p := types.Prices(history)
	n := len(p)
	latest := p[n-1]

	f := types.MLFeatures{
		PriceChange5:  pctChange(p[n-6], latest),
		PriceChange20: pctChange(p[n-21], latest),
		RSI14:         50,
	}
	if sd := ta.SampleStdDev(p[n-10:]); !math.IsNaN(sd) && latest != 0 {
		f.Volatility10 = sd / latest * 100
	}
	if rsi := ta.RSI(p, 14); !math.IsNaN(rsi) {
		f.RSI14 = rsi
	}
	return f
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
