package alpha

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"quant-desk/internal/types"
)

var initialFundamentals = map[string]types.Fundamentals{
	"005930": {PERatio: 18.5, EPSGrowth: 8.2, DebtToEquity: 0.4},
	"000660": {PERatio: 25.0, EPSGrowth: 15.5, DebtToEquity: 0.6},
	"NVDA":   {PERatio: 75.0, EPSGrowth: 30.0, DebtToEquity: 0.3},
	"TSM":    {PERatio: 30.0, EPSGrowth: 22.0, DebtToEquity: 0.2},
	"MU":     {PERatio: 40.0, EPSGrowth: 18.0, DebtToEquity: 0.5},
	"CXMT":   {PERatio: 35.0, EPSGrowth: 25.0, DebtToEquity: 0.7},
}

func InitialFundamentals(symbol string) types.Fundamentals {
	if f, ok := initialFundamentals[symbol]; ok {
		return f
	}
	return types.Fundamentals{PERatio: 20, EPSGrowth: 10, DebtToEquity: 0.5}
}

// Fundamentals is a drifting per-symbol fundamentals book.
type Fundamentals struct {
	mu   sync.Mutex
	rng  *rand.Rand
	book map[string]types.Fundamentals
}

func NewFundamentals(rng *rand.Rand, symbols []string) *Fundamentals {
	f := &Fundamentals{rng: rng, book: make(map[string]types.Fundamentals, len(symbols))}
	for _, s := range symbols {
		f.book[s] = InitialFundamentals(s)
	}
	return f
}

// Drift applies one step of the slow random walk, clamped to realistic floors.
func Drift(f types.Fundamentals, rng *rand.Rand) types.Fundamentals {
	f.PERatio = math.Max(5, f.PERatio+rng.NormFloat64()*0.1)
	f.EPSGrowth = math.Max(-10, f.EPSGrowth+rng.NormFloat64()*0.05)
	f.DebtToEquity = math.Max(0.1, f.DebtToEquity+rng.NormFloat64()*0.001)
	return f
}

// Step drifts every symbol once.
func (f *Fundamentals) Step() {
	f.mu.Lock()
	defer f.mu.Unlock()
	symbols := make([]string, 0, len(f.book))
	for s := range f.book {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		f.book[s] = Drift(f.book[s], f.rng)
	}
}

func (f *Fundamentals) Get(symbol string) types.Fundamentals {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.book[symbol]; ok {
		return v
	}
	return InitialFundamentals(symbol)
}

func (f *Fundamentals) All() map[string]types.Fundamentals {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]types.Fundamentals, len(f.book))
	for k, v := range f.book {
		out[k] = v
	}
	return out
}
