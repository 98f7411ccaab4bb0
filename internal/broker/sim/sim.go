// Package sim is the in-process execution venue. It fills at the requested
// price after a configurable latency and rejects a seeded fraction of orders.
// Slippage is applied by the ledger, not here.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"quant-desk/internal/errs"
	"quant-desk/internal/interfaces"
	"quant-desk/internal/types"
)

type Params struct {
	Latency     time.Duration
	FailureRate float64 // probability in [0,1]
	Seed        int64
	Clock       func() time.Time
}

type Venue struct {
	p   Params
	mu  sync.Mutex
	rng *rand.Rand
}

var _ interfaces.Venue = (*Venue)(nil)

func New(p Params) *Venue {
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Venue{p: p, rng: rand.New(rand.NewSource(p.Seed))}
}

func (v *Venue) Execute(ctx context.Context, req types.OrderReq) (types.Fill, error) {
	if req.Shares <= 0 || req.Price <= 0 {
		return v.failed(req, "invalid order"), fmt.Errorf("%w: %d %s @ %.4f", errs.ErrInvalidOrder, req.Shares, req.Symbol, req.Price)
	}

	if v.p.Latency > 0 {
		timer := time.NewTimer(v.p.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return v.failed(req, "cancelled"), ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return v.failed(req, "cancelled"), err
	}

	v.mu.Lock()
	roll := v.rng.Float64()
	v.mu.Unlock()
	if roll < v.p.FailureRate {
		return v.failed(req, "rejected by venue"), fmt.Errorf("%w: %s %d %s", errs.ErrVenueRejected, req.Action, req.Shares, req.Symbol)
	}

	return types.Fill{
		OrderID:     "SIM-" + uuid.NewString(),
		Symbol:      req.Symbol,
		Action:      req.Action,
		Shares:      req.Shares,
		FilledPrice: req.Price,
		Status:      types.FillSuccess,
		Time:        v.p.Clock(),
	}, nil
}

func (v *Venue) failed(req types.OrderReq, reason string) types.Fill {
	return types.Fill{
		Symbol: req.Symbol,
		Action: req.Action,
		Shares: req.Shares,
		Status: types.FillFailed,
		Reason: reason,
		Time:   v.p.Clock(),
	}
}
