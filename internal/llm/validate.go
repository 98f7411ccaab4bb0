package llm

import (
	"fmt"
	"math"

	"quant-desk/internal/types"
)

const (
	MaxShares           = 100
	MaxSharesAggressive = 200
	MLShares            = 20
	MLSharesAggressive  = 50
)

// ValidateStrategy maps the strategy oracle's answer onto a known strategy,
// accepting the key or the label. Errors and unknown strategies give RISK_OFF.
func ValidateStrategy(d types.StrategyDecision, err error) types.StrategyDecision {
	if err != nil {
		return types.StrategyDecision{Strategy: types.StrategyRiskOff, Reason: fmt.Sprintf("Strategy oracle error, defaulting to safety: %v", err)}
	}
	s, ok := types.ParseStrategy(string(d.Strategy))
	if !ok {
		return types.StrategyDecision{Strategy: types.StrategyRiskOff, Reason: fmt.Sprintf("Unknown strategy %q, defaulting to safety", d.Strategy)}
	}
	return types.StrategyDecision{Strategy: s, Reason: d.Reason}
}

// ValidateAnalyst enforces the trading rules on an analyst signal no matter
// what the model said: BUY needs an uptrend, SHORT a downtrend, size is a
// multiple of 10 under the mode cap and HOLD never carries shares.
func ValidateAnalyst(d types.Decision, err error, trend types.Trend, aggressive bool) types.Decision {
	if err != nil {
		return types.Hold(fmt.Sprintf("Analyst oracle error: %v", err))
	}
	a, ok := types.ParseAction(string(d.Action))
	if !ok || a == types.ActionEnterPair || a == types.ActionExitPair {
		return types.Hold(fmt.Sprintf("Unknown analyst action %q", d.Action))
	}
	d.Action = a
	d.Confidence = clampConfidence(d.Confidence)

	if (a == types.ActionBuy && trend != types.TrendUp) || (a == types.ActionShort && trend != types.TrendDown) {
		d.Action = types.ActionHold
		d.Reason = "Signal ignored (Trend violation): " + d.Reason
	}
	if d.Action == types.ActionHold {
		d.Shares = 0
		return d
	}

	limit := MaxShares
	if aggressive {
		limit = MaxSharesAggressive
	}
	d.Shares = min(max(d.Shares, 0)/10*10, limit)
	if d.Shares == 0 {
		d.Action = types.ActionHold
		d.Reason = "Signal ignored (size rounds to zero): " + d.Reason
	}
	return d
}

// ValidateML normalizes the class probabilities and derives the decision
// from them: the most probable class wins (ties go to HOLD) and its
// probability is the confidence.
func ValidateML(sig types.MLSignal, err error, aggressive bool) types.Decision {
	if err != nil {
		return types.Hold(fmt.Sprintf("ML inference error: %v", err))
	}
	probs, ok := Normalize(sig.Probabilities)
	if !ok {
		return types.Hold("ML inference returned no usable probabilities")
	}

	best := types.ActionHold
	for _, a := range []types.Action{types.ActionBuy, types.ActionSell} {
		if probs[a] > probs[best] {
			best = a
		}
	}
	d := types.Decision{Action: best, Reason: sig.Reason, Confidence: probs[best]}
	switch {
	case best == types.ActionHold:
	case aggressive:
		d.Shares = MLSharesAggressive
	default:
		d.Shares = MLShares
	}
	return d
}

// Normalize rescales BUY/SELL/HOLD probabilities to sum to one. Negative or
// non-finite values count as zero; an all-zero input reports false.
func Normalize(p map[types.Action]float64) (map[types.Action]float64, bool) {
	classes := []types.Action{types.ActionBuy, types.ActionSell, types.ActionHold}
	sum := 0.0
	clean := make(map[types.Action]float64, len(classes))
	for _, a := range classes {
		v := p[a]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		clean[a] = v
		sum += v
	}
	if sum <= 0 {
		return nil, false
	}
	for a := range clean {
		clean[a] /= sum
	}
	return clean, true
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return 0
	}
	return c
}
