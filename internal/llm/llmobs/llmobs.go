package llmobs

import (
	"context"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/logger"
	"quant-desk/internal/trace"
	"quant-desk/internal/types"
)

// observableOracle wraps an Oracle with observability (logging & tracing)
type observableOracle struct {
	oracle interfaces.Oracle
}

// Compile-time interface check
var _ interfaces.Oracle = (*observableOracle)(nil)

// Wrap wraps an oracle with observability middleware
func Wrap(oracle interfaces.Oracle) interfaces.Oracle {
	return &observableOracle{
		oracle: oracle,
	}
}

func (o *observableOracle) SelectStrategy(ctx context.Context, req types.StrategyRequest) (types.StrategyDecision, error) {
	ctx, span := trace.StartSpan(ctx, "llm.SelectStrategy")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Requesting strategy",
		"regime", req.Regime,
		"portfolio_value", req.PortfolioValue,
		"aggressive", req.Aggressive,
		"low_latency", req.LowLatency,
	)

	d, err := o.oracle.SelectStrategy(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get strategy", err, "regime", req.Regime)
		return types.StrategyDecision{}, err
	}

	logger.InfoSkip(ctx, 1, "Strategy received",
		"strategy", d.Strategy,
		"reason", d.Reason,
	)
	return d, nil
}

func (o *observableOracle) Analyze(ctx context.Context, req types.AnalystRequest) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Analyze")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting analyst signal",
		"symbol", req.Instrument.Symbol,
		"strategy", req.Strategy,
		"trend", req.Trend,
		"alpha", req.Factors.CompositeAlphaScore,
	)

	d, err := o.oracle.Analyze(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get analyst signal", err,
			"symbol", req.Instrument.Symbol,
		)
		return types.Decision{}, err
	}

	logger.InfoSkip(ctx, 1, "Analyst signal received",
		"symbol", req.Instrument.Symbol,
		"action", d.Action,
		"shares", d.Shares,
		"reason", d.Reason,
		"confidence", d.Confidence,
	)
	return d, nil
}

func (o *observableOracle) Infer(ctx context.Context, req types.MLRequest) (types.MLSignal, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Infer")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Requesting ML inference",
		"symbol", req.Instrument.Symbol,
		"price_change_5", req.Features.PriceChange5,
		"rsi14", req.Features.RSI14,
	)

	sig, err := o.oracle.Infer(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get ML inference", err,
			"symbol", req.Instrument.Symbol,
		)
		return types.MLSignal{}, err
	}

	logger.InfoSkip(ctx, 1, "ML inference received",
		"symbol", req.Instrument.Symbol,
		"decision", sig.Decision,
		"probabilities", sig.Probabilities,
	)
	return sig, nil
}
