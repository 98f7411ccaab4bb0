// Package ta holds the numeric helpers shared by the signal generators.
// Functions return NaN when the input is too short to answer.
package ta

import "math"

func SMA(values []float64, n int) float64 {
	if len(values) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(values) - n; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(n)
}

func Mean(values []float64) float64 {
	return SMA(values, len(values))
}

// StdDev is the population standard deviation (divides by N).
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := Mean(values)
	s := 0.0
	for _, v := range values {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(values)))
}

// SampleStdDev divides by N-1. Only the ML feature volatility uses it.
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	m := Mean(values)
	s := 0.0
	for _, v := range values {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(n-1))
}

// gainLoss sums positive and negative deltas over the trailing period deltas.
func gainLoss(values []float64, period int) (gain, loss float64) {
	start := len(values) - period
	if start < 1 {
		start = 1
	}
	for i := start; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	return gain, loss
}

func RSI(values []float64, period int) float64 {
	if len(values) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := gainLoss(values, period)
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// MeanReversionScore is 100-RSI: high when oversold, low when overbought.
// It answers 50 on short input and 100 when the window has no losses.
func MeanReversionScore(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 50
	}
	gain, loss := gainLoss(values, period)
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	return 100 - rsi
}

// ZScore of the latest value against the trailing window. ok is false when
// the window is short or flat.
func ZScore(values []float64, window int) (z float64, ok bool) {
	if window <= 1 || len(values) < window {
		return 0, false
	}
	w := values[len(values)-window:]
	sd := StdDev(w)
	if sd == 0 || math.IsNaN(sd) {
		return 0, false
	}
	return (w[len(w)-1] - Mean(w)) / sd, true
}

// RateOfChange is the percent move from values[len-period] to the last value.
func RateOfChange(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return math.NaN()
	}
	past := values[len(values)-period]
	if past == 0 {
		return math.NaN()
	}
	return (values[len(values)-1] - past) / past * 100
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
