package brokerobs

import (
	"context"

	"quant-desk/internal/errs"
	"quant-desk/internal/interfaces"
	"quant-desk/internal/logger"
	"quant-desk/internal/trace"
	"quant-desk/internal/types"
)

// observableVenue wraps a Venue with observability (logging & tracing)
type observableVenue struct {
	venue interfaces.Venue
}

// Compile-time interface check
var _ interfaces.Venue = (*observableVenue)(nil)

// Wrap wraps a venue with observability middleware
func Wrap(venue interfaces.Venue) interfaces.Venue {
	return &observableVenue{venue: venue}
}

func (ov *observableVenue) Execute(ctx context.Context, req types.OrderReq) (types.Fill, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Execute")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Sending order",
		"symbol", req.Symbol,
		"action", req.Action,
		"shares", req.Shares,
		"price", req.Price,
	)

	fill, err := ov.venue.Execute(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Order not filled", err,
			"symbol", req.Symbol,
			"action", req.Action,
			"shares", req.Shares,
			"kind", errs.Kind(err),
		)
		return fill, err
	}

	logger.InfoSkip(ctx, 1, "Order filled",
		"symbol", fill.Symbol,
		"order_id", fill.OrderID,
		"filled_price", fill.FilledPrice,
	)
	return fill, nil
}
