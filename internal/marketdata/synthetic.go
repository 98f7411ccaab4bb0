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

// SyntheticHistory generates a seeded random-walk history with ±1% steps
// five minutes apart, ending at the clock's current time.
type SyntheticHistory struct {
	mu     sync.Mutex
	rng    *rand.Rand
	clock  func() time.Time
	starts map[string]float64
}

var _ interfaces.HistorySource = (*SyntheticHistory)(nil)

func NewSyntheticHistory(seed int64, clock func() time.Time, starts map[string]float64) *SyntheticHistory {
	if clock == nil {
		clock = time.Now
	}
	return &SyntheticHistory{rng: rand.New(rand.NewSource(seed)), clock: clock, starts: starts}
}

func (s *SyntheticHistory) History(_ context.Context, inst types.Instrument, points int) ([]types.PricePoint, error) {
	candles := s.Candles(inst, points)
	out := make([]types.PricePoint, len(candles))
	for i, c := range candles {
		out[i] = types.PricePoint{Time: time.Unix(c.Ts, 0).UTC(), Price: c.Close}
	}
	return out, nil
}

// Candles builds the OHLC bars behind History.
func (s *SyntheticHistory) Candles(inst types.Instrument, points int) []types.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.starts[inst.Symbol]
	if !ok || price <= 0 {
		price = 30
	}
	end := s.clock().Truncate(5 * time.Minute)
	out := make([]types.Candle, 0, points)
	for i := 0; i < points; i++ {
		open := price
		last := math.Max(0.01, open*(1+(s.rng.Float64()-0.5)*0.02))
		price = last
		out = append(out, types.Candle{
			Ts:    end.Add(-time.Duration(points-i) * 5 * time.Minute).Unix(),
			Open:  open,
			High:  math.Max(open, last) * (1 + s.rng.Float64()*0.01),
			Low:   math.Min(open, last) * (1 - s.rng.Float64()*0.01),
			Close: last,
		})
	}
	return out
}
