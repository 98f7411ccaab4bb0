package engineobs

import (
	"context"
	"time"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/logger"
	"quant-desk/internal/trace"
	"quant-desk/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Cycle(ctx context.Context) (types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Cycle")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting trading cycle")

	result, err := oe.engine.Cycle(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, err
	}

	if result.Cancelled {
		logger.InfoSkip(ctx, 1, "Trading cycle cancelled",
			"strategy", result.Strategy,
			"entries", len(result.Entries),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, nil
	}

	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"regime", result.Regime,
		"strategy", result.Strategy,
		"reason", result.StrategyReason,
		"exchange_rate", result.ExchangeRate,
		"portfolio_value", result.PortfolioValue,
		"entries", len(result.Entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
