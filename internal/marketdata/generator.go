package marketdata

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/types"
)

const (
	DefaultTickInterval = 800 * time.Millisecond
	baseMove            = 0.001
	regimePersistence   = 0.97
)

type tickRegime int

const (
	calm tickRegime = iota
	trending
	volatile
)

type symbolState struct {
	price  float64
	regime tickRegime
	drift  float64
}

// Generator synthesizes a tick stream: each interval it moves one random
// symbol by up to 0.1% scaled by that symbol's regime. Regimes persist so
// volatility clusters. The same seed always yields the same stream.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	symbols  []string
	state    map[string]*symbolState
	interval time.Duration
	clock    func() time.Time
}

var _ interfaces.TickSource = (*Generator)(nil)

type GeneratorParams struct {
	Seed     int64
	Interval time.Duration
	Clock    func() time.Time
	// Prices are the starting prices; symbols without one are skipped.
	Prices map[string]float64
}

func NewGenerator(universe []types.Instrument, p GeneratorParams) *Generator {
	if p.Interval <= 0 {
		p.Interval = DefaultTickInterval
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	g := &Generator{
		rng:      rand.New(rand.NewSource(p.Seed)),
		state:    map[string]*symbolState{},
		interval: p.Interval,
		clock:    p.Clock,
	}
	for _, inst := range universe {
		px, ok := p.Prices[inst.Symbol]
		if !ok || px <= 0 {
			continue
		}
		g.symbols = append(g.symbols, inst.Symbol)
		g.state[inst.Symbol] = &symbolState{price: px}
	}
	return g
}

// SetPrice re-anchors a symbol, e.g. to the last seeded close.
func (g *Generator) SetPrice(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.state[symbol]; ok && price > 0 {
		st.price = price
	}
}

// Next produces one tick.
func (g *Generator) Next() types.Tick {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.symbols) == 0 {
		return types.Tick{}
	}
	sym := g.symbols[g.rng.Intn(len(g.symbols))]
	st := g.state[sym]
	g.step(st)

	mult := 1.0
	switch st.regime {
	case trending:
		mult = 1.5
	case volatile:
		mult = 3
	}
	change := (g.rng.Float64()*2-1)*baseMove*mult + st.drift
	st.price = math.Max(0.01, math.Round(st.price*(1+change)*100)/100)
	return types.Tick{Symbol: sym, Price: st.price, Time: g.clock()}
}

// step advances the symbol's regime chain.
func (g *Generator) step(st *symbolState) {
	if g.rng.Float64() < regimePersistence {
		return
	}
	st.regime = tickRegime(g.rng.Intn(3))
	st.drift = 0
	if st.regime == trending {
		st.drift = baseMove * 0.3
		if g.rng.Intn(2) == 0 {
			st.drift = -st.drift
		}
	}
}

func (g *Generator) Run(ctx context.Context, sink func(types.Tick)) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t := g.Next(); t.Symbol != "" {
				sink(t)
			}
		}
	}
}
