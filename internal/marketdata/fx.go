package marketdata

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"quant-desk/internal/api"
	"quant-desk/internal/interfaces"
	"quant-desk/internal/logger"
)

const (
	DefaultRate = 1380.0
	rateStep    = 2.5
)

// SimulatedRate wanders USD->KRW by at most ±2.5 per quote.
type SimulatedRate struct {
	mu   sync.Mutex
	rng  *rand.Rand
	rate float64
}

var _ interfaces.RateSource = (*SimulatedRate)(nil)

func NewSimulatedRate(start float64, seed int64) *SimulatedRate {
	if start <= 0 {
		start = DefaultRate
	}
	return &SimulatedRate{rng: rand.New(rand.NewSource(seed)), rate: start}
}

func (s *SimulatedRate) Rate(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate += (s.rng.Float64()*2 - 1) * rateStep
	if s.rate <= 0 {
		s.rate = DefaultRate
	}
	return s.rate, nil
}

// HTTPRate reads the rate from a JSON endpoint shaped like
// {"rates":{"KRW":1380.5}} and keeps serving the last good quote on error.
type HTTPRate struct {
	client *api.Client
	path   string
	mu     sync.Mutex
	last   float64
}

var _ interfaces.RateSource = (*HTTPRate)(nil)

func NewHTTPRate(client *api.Client, path string, fallback float64) *HTTPRate {
	if fallback <= 0 {
		fallback = DefaultRate
	}
	return &HTTPRate{client: client, path: path, last: fallback}
}

func (h *HTTPRate) Rate(ctx context.Context) (float64, error) {
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	err := h.client.GetJSON(ctx, h.path, map[string]string{"base": "USD", "symbols": "KRW"}, &body)
	if err == nil && body.Rates["KRW"] <= 0 {
		err = fmt.Errorf("no KRW quote in response")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		logger.Warn(ctx, "FX quote failed, using last known rate", "error", err, "rate", h.last)
		return h.last, nil
	}
	h.last = body.Rates["KRW"]
	return h.last, nil
}
