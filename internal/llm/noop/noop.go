package noop

import (
	"context"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/logger"
	"quant-desk/internal/types"
)

// Oracle is the fallback used when no model provider is configured. It always
// picks RISK_OFF and never signals a trade.
type Oracle struct{}

var _ interfaces.Oracle = (*Oracle)(nil)

func New() *Oracle {
	return &Oracle{}
}

func (Oracle) SelectStrategy(ctx context.Context, req types.StrategyRequest) (types.StrategyDecision, error) {
	logger.Debug(ctx, "Noop oracle called - always returns RISK_OFF", "regime", req.Regime)
	return types.StrategyDecision{Strategy: types.StrategyRiskOff, Reason: "noop_oracle_fallback"}, nil
}

func (Oracle) Analyze(ctx context.Context, req types.AnalystRequest) (types.Decision, error) {
	logger.Debug(ctx, "Noop oracle called - always returns HOLD", "symbol", req.Instrument.Symbol)
	return types.Hold("noop_oracle_fallback"), nil
}

func (Oracle) Infer(ctx context.Context, req types.MLRequest) (types.MLSignal, error) {
	return types.MLSignal{
		Decision:      types.ActionHold,
		Reason:        "noop_oracle_fallback",
		Probabilities: map[types.Action]float64{types.ActionHold: 1},
	}, nil
}
