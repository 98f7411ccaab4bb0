// Package alpha keeps per-instrument factor scores and the slow-moving
// fundamentals that feed the analyst prompt.
package alpha

import (
	"math"
	"math/rand"
	"sync"

	"quant-desk/internal/ta"
	"quant-desk/internal/types"
)

const (
	factorPeriod = 14
	valueDrift   = 0.5
)

type weights struct{ value, momentum, meanReversion float64 }

var (
	defaultWeights       = weights{value: 0.3, momentum: 0.5, meanReversion: 0.2}
	meanReversionWeights = weights{value: 0.3, momentum: 0.2, meanReversion: 0.5}
)

var initialValue = map[string]float64{
	"005930": 75,
	"000660": 70,
	"NVDA":   90,
	"TSM":    85,
	"MU":     65,
}

// InitialFactors returns the seed factors for a symbol.
func InitialFactors(symbol string) types.AlphaFactors {
	v, ok := initialValue[symbol]
	if !ok {
		v = 60
	}
	return types.AlphaFactors{Value: v, Momentum: 50, MeanReversion: 50}
}

// Engine recomputes factors from price history. It is safe for concurrent use.
type Engine struct {
	mu   sync.Mutex
	rng  *rand.Rand
	book map[string]types.AlphaFactors
}

func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng, book: map[string]types.AlphaFactors{}}
}

// Update derives the next factor state from prev and history. Only
// MEAN_REVERSION changes the composite weights.
func (e *Engine) Update(prev types.AlphaFactors, history []types.PricePoint, strategy types.Strategy) types.AlphaFactors {
	prices := types.Prices(history)

	e.mu.Lock()
	drift := e.rng.NormFloat64() * valueDrift
	e.mu.Unlock()

	next := types.AlphaFactors{
		Value:         ta.Clamp(prev.Value+drift, 0, 100),
		Momentum:      Momentum(prices),
		MeanReversion: ta.MeanReversionScore(prices, factorPeriod),
	}
	w := defaultWeights
	if strategy == types.StrategyMeanReversion {
		w = meanReversionWeights
	}
	next.CompositeAlphaScore = next.Value*w.value + next.Momentum*w.momentum + next.MeanReversion*w.meanReversion
	return next
}

// Momentum maps the 14-period rate of change onto [0,100]; 50 is neutral.
func Momentum(prices []float64) float64 {
	if len(prices) < factorPeriod {
		return 50
	}
	roc := ta.RateOfChange(prices, factorPeriod)
	if math.IsNaN(roc) {
		return 50
	}
	return ta.Clamp(50+roc*2.5, 0, 100)
}

// Refresh updates and stores the factors for symbol.
func (e *Engine) Refresh(symbol string, history []types.PricePoint, strategy types.Strategy) types.AlphaFactors {
	prev := e.Get(symbol)
	next := e.Update(prev, history, strategy)
	e.mu.Lock()
	e.book[symbol] = next
	e.mu.Unlock()
	return next
}

func (e *Engine) Get(symbol string) types.AlphaFactors {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.book[symbol]; ok {
		return f
	}
	return InitialFactors(symbol)
}

// All returns a copy of the factor book.
func (e *Engine) All() map[string]types.AlphaFactors {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]types.AlphaFactors, len(e.book))
	for k, v := range e.book {
		out[k] = v
	}
	return out
}
