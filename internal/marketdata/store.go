package marketdata

import (
	"sync"
	"time"

	"quant-desk/internal/types"
)

const DefaultHistoryCap = 500

// Store keeps a bounded price series and the latest tick per symbol. Writers
// are the tick feed and the seeders; the decision loop only reads snapshots.
type Store struct {
	mu     sync.RWMutex
	cap    int
	series map[string][]types.PricePoint
	last   map[string]types.Tick
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &Store{
		cap:    capacity,
		series: map[string][]types.PricePoint{},
		last:   map[string]types.Tick{},
	}
}

// Seed replaces a symbol's history, keeping only the newest cap points.
func (s *Store) Seed(symbol string, history []types.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(history) > s.cap {
		history = history[len(history)-s.cap:]
	}
	s.series[symbol] = append(make([]types.PricePoint, 0, s.cap), history...)
}

// Append records a tick. Ticks older than the series head are dropped so
// the series stays time-ordered; the oldest point is evicted at capacity.
func (s *Store) Append(t types.Tick) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.series[t.Symbol]
	if n := len(buf); n > 0 && t.Time.Before(buf[n-1].Time) {
		return false
	}
	buf = append(buf, types.PricePoint{Time: t.Time, Price: t.Price})
	if len(buf) > s.cap {
		buf = buf[len(buf)-s.cap:]
	}
	s.series[t.Symbol] = buf
	s.last[t.Symbol] = t
	return true
}

func (s *Store) History(symbol string) []types.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.PricePoint(nil), s.series[symbol]...)
}

// LastPrice is the latest tick, falling back to the last seeded point.
func (s *Store) LastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPriceLocked(symbol)
}

func (s *Store) lastPriceLocked(symbol string) (float64, bool) {
	if t, ok := s.last[symbol]; ok {
		return t.Price, true
	}
	if buf := s.series[symbol]; len(buf) > 0 {
		return buf[len(buf)-1].Price, true
	}
	return 0, false
}

func (s *Store) LatestTicks() map[string]types.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.Tick, len(s.last))
	for k, v := range s.last {
		out[k] = v
	}
	return out
}

// Snapshot is a consistent copy of prices and histories taken at one instant.
type Snapshot struct {
	Time    time.Time
	Prices  map[string]float64
	History map[string][]types.PricePoint
}

// Series returns the histories in universe order, for the regime detector.
func (s Snapshot) Series(universe []types.Instrument) [][]types.PricePoint {
	out := make([][]types.PricePoint, 0, len(universe))
	for _, inst := range universe {
		if h, ok := s.History[inst.Symbol]; ok {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Time:    now,
		Prices:  make(map[string]float64, len(s.series)),
		History: make(map[string][]types.PricePoint, len(s.series)),
	}
	for sym, buf := range s.series {
		snap.History[sym] = append([]types.PricePoint(nil), buf...)
		if p, ok := s.lastPriceLocked(sym); ok {
			snap.Prices[sym] = p
		}
	}
	return snap
}
