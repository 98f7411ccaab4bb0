package interfaces

import (
	"context"

	"quant-desk/internal/types"
)

// HistorySource seeds price series at startup.
type HistorySource interface {
	History(ctx context.Context, inst types.Instrument, points int) ([]types.PricePoint, error)
}

// RateSource quotes USD->KRW.
type RateSource interface {
	Rate(ctx context.Context) (float64, error)
}

// TickSource pushes ticks into sink until ctx is done.
type TickSource interface {
	Run(ctx context.Context, sink func(types.Tick)) error
}

type Notifier interface {
	Notify(ctx context.Context, n types.Notification) error
}
