// Package signal holds the deterministic per-instrument signal generators:
// pairs stat-arb, moving-average cross, trend and ML feature extraction.
package signal

import (
	"fmt"
	"time"

	"quant-desk/internal/ta"
	"quant-desk/internal/types"
)

const (
	PairWindow    = 30
	PairEntryZ    = 2.0
	PairExitZ     = 0.5
	pairMinPoints = 30
)

type PairAction string

const (
	PairEnter PairAction = "ENTER"
	PairExit  PairAction = "EXIT"
)

// PairSignal tells the desk which leg to short and which to buy. On exit the
// legs are empty.
type PairSignal struct {
	Action      PairAction `json:"action"`
	LongSymbol  string     `json:"longSymbol,omitempty"`
	ShortSymbol string     `json:"shortSymbol,omitempty"`
	ZScore      float64    `json:"zScore"`
	Reason      string     `json:"reason"`
}

// Pair identifies the two instruments of the spread: ratio = First/Second.
type Pair struct {
	First  string
	Second string
}

// Signal evaluates the spread. ok is false when there is no actionable signal.
func (p Pair) Signal(h1, h2 []types.PricePoint) (PairSignal, bool) {
	if len(h1) < pairMinPoints || len(h2) < pairMinPoints {
		return PairSignal{}, false
	}

	ratios := joinRatios(h1, h2)
	if len(ratios) < PairWindow {
		return PairSignal{}, false
	}
	z, ok := ta.ZScore(ratios, PairWindow)
	if !ok {
		return PairSignal{}, false
	}

	switch {
	case z > PairEntryZ:
		return PairSignal{
			Action:      PairEnter,
			ShortSymbol: p.First,
			LongSymbol:  p.Second,
			ZScore:      z,
			Reason:      fmt.Sprintf("spread z-score %.2f above %.1f: short %s, long %s", z, PairEntryZ, p.First, p.Second),
		}, true
	case z < -PairEntryZ:
		return PairSignal{
			Action:      PairEnter,
			LongSymbol:  p.First,
			ShortSymbol: p.Second,
			ZScore:      z,
			Reason:      fmt.Sprintf("spread z-score %.2f below -%.1f: long %s, short %s", z, PairEntryZ, p.First, p.Second),
		}, true
	case z > -PairExitZ && z < PairExitZ:
		return PairSignal{
			Action: PairExit,
			ZScore: z,
			Reason: fmt.Sprintf("spread z-score %.2f reverted inside %.1f", z, PairExitZ),
		}, true
	}
	return PairSignal{}, false
}

// joinRatios pairs points with identical timestamps, in h1 order.
func joinRatios(h1, h2 []types.PricePoint) []float64 {
	byTime := make(map[time.Time]float64, len(h2))
	for _, p := range h2 {
		byTime[p.Time.UTC()] = p.Price
	}
	out := make([]float64, 0, len(h1))
	for _, p := range h1 {
		p2, ok := byTime[p.Time.UTC()]
		if !ok || p2 == 0 {
			continue
		}
		out = append(out, p.Price/p2)
	}
	return out
}
