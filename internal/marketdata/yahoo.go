package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/types"
)

// YahooHistory pulls daily closes from the Yahoo chart API.
type YahooHistory struct {
	Lookback time.Duration
	clock    func() time.Time
}

var _ interfaces.HistorySource = (*YahooHistory)(nil)

func NewYahooHistory(lookback time.Duration, clock func() time.Time) *YahooHistory {
	if lookback <= 0 {
		lookback = 365 * 24 * time.Hour
	}
	if clock == nil {
		clock = time.Now
	}
	return &YahooHistory{Lookback: lookback, clock: clock}
}

func (y *YahooHistory) History(ctx context.Context, inst types.Instrument, points int) ([]types.PricePoint, error) {
	if inst.Ticker == "" {
		return nil, fmt.Errorf("%s has no public ticker", inst.Symbol)
	}
	end := y.clock()
	start := end.Add(-y.Lookback)
	iter := chart.Get(&chart.Params{
		Symbol:   inst.Ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var out []types.PricePoint
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := iter.Bar()
		px, _ := bar.Close.Float64()
		if px <= 0 {
			continue
		}
		out = append(out, types.PricePoint{Time: time.Unix(int64(bar.Timestamp), 0).UTC(), Price: px})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get historical data for %s: %w", inst.Ticker, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty history for %s", inst.Ticker)
	}
	if points > 0 && len(out) > points {
		out = out[len(out)-points:]
	}
	return out, nil
}
