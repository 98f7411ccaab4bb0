package interfaces

import (
	"context"

	"quant-desk/internal/types"
)

// StrategyOracle picks the desk-wide strategy. Output is untrusted.
type StrategyOracle interface {
	SelectStrategy(ctx context.Context, req types.StrategyRequest) (types.StrategyDecision, error)
}

// Analyst produces a per-instrument decision. Output is untrusted.
type Analyst interface {
	Analyze(ctx context.Context, req types.AnalystRequest) (types.Decision, error)
}

// MLOracle returns class probabilities for BUY, SELL and HOLD.
type MLOracle interface {
	Infer(ctx context.Context, req types.MLRequest) (types.MLSignal, error)
}

// Oracle is implemented by every model provider.
type Oracle interface {
	StrategyOracle
	Analyst
	MLOracle
}
