package llm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"quant-desk/internal/types"
)

func mode(aggressive bool) string {
	if aggressive {
		return "Aggressive"
	}
	return "Normal"
}

func StrategyPrompt(req types.StrategyRequest) string {
	labels := make([]string, len(types.Strategies))
	for i, s := range types.Strategies {
		labels[i] = fmt.Sprintf("%s (%s)", s, s.Label())
	}
	latency := "High Quality (prioritize accuracy)"
	if req.LowLatency {
		latency = "Low Latency (prioritize speed)"
	}

	var b strings.Builder
	b.WriteString("You are the Chief Investment Officer of a quantitative hedge fund trading semiconductor stocks. ")
	b.WriteString("Select exactly one strategy for the next cycle.\n")
	fmt.Fprintf(&b, "Available strategies: %s.\n", strings.Join(labels, ", "))
	b.WriteString("Current conditions:\n")
	fmt.Fprintf(&b, "- Market regime: %s (%s)\n", req.Regime, req.Regime.Label())
	fmt.Fprintf(&b, "- Total portfolio value (KRW): %s\n", groupThousands(req.PortfolioValue))
	fmt.Fprintf(&b, "- Investor mode: %s\n", mode(req.Aggressive))
	fmt.Fprintf(&b, "- Latency mode: %s\n", latency)
	b.WriteString("Guidelines:\n")
	b.WriteString("- TRENDING: ALPHA_MOMENTUM or MA_CROSS.\n")
	b.WriteString("- RANGING: MEAN_REVERSION or PAIRS_TRADING; DEEP_HEDGING when ranging with high volatility.\n")
	b.WriteString("- RISK_OFF when conditions are chaotic or offer no clear opportunity.\n")
	b.WriteString("- Low latency mode favours simple, fast strategies such as MA_CROSS.\n")
	b.WriteString("- Aggressive mode may take more risk with momentum or ML strategies.\n")
	b.WriteString(`Respond ONLY with JSON: {"strategy": "<STRATEGY_KEY>", "reason": "<one sentence>"}`)
	return b.String()
}

func AnalystPrompt(req types.AnalystRequest) string {
	f, fd := req.Factors, req.Fundamentals
	var b strings.Builder
	b.WriteString("You are a senior quantitative analyst covering semiconductor stocks. Produce one trade signal.\n")
	fmt.Fprintf(&b, "- Stock: %s (%s)\n", req.Instrument.Name, req.Instrument.Symbol)
	fmt.Fprintf(&b, "- Active strategy: %s\n", req.Strategy.Label())
	fmt.Fprintf(&b, "- Quant factors: Value=%.1f, Momentum=%.1f, Mean Reversion=%.1f, Composite Alpha=%.1f\n",
		f.Value, f.Momentum, f.MeanReversion, f.CompositeAlphaScore)
	fmt.Fprintf(&b, "- Short-term trend: %s\n", req.Trend)
	fmt.Fprintf(&b, "- Fundamentals: P/E=%.1f, EPS Growth=%.1f%%, Debt/Equity=%.2f\n", fd.PERatio, fd.EPSGrowth, fd.DebtToEquity)
	fmt.Fprintf(&b, "- Investor mode: %s\n", mode(req.Aggressive))
	b.WriteString("Read the factors through the active strategy: momentum matters most under Alpha Momentum, ")
	b.WriteString("a low mean reversion score means overbought under Mean Reversion. ")
	b.WriteString("BUY only in an UPTREND, SHORT only in a DOWNTREND.\n")
	b.WriteString("Choose decision from BUY, SELL, HOLD, SHORT, COVER. sharesToTrade is a round number (10, 20, 50), ")
	b.WriteString("higher when aggressive. confidence is between 0.5 and 1.0.\n")
	b.WriteString(`Respond ONLY with JSON: {"decision": "...", "reason": "...", "sharesToTrade": 0, "confidence": 0.0}`)
	return b.String()
}

func MLPrompt(req types.MLRequest) string {
	x := req.Features
	var b strings.Builder
	b.WriteString("You emulate a trained short-horizon price model for semiconductor stocks.\n")
	fmt.Fprintf(&b, "Input features for %s:\n", req.Instrument.Name)
	fmt.Fprintf(&b, "- priceChange5m: %.2f%%\n", x.PriceChange5)
	fmt.Fprintf(&b, "- priceChange20m: %.2f%%\n", x.PriceChange20)
	fmt.Fprintf(&b, "- volatility10m: %.2f%%\n", x.Volatility10)
	fmt.Fprintf(&b, "- rsi14m: %.1f\n", x.RSI14)
	b.WriteString("A large positive change with high RSI suggests SELL (mean reversion). A strong sustained change suggests BUY. ")
	b.WriteString("Low volatility suggests HOLD.\n")
	b.WriteString("Give softmax probabilities for BUY, SELL and HOLD that sum to 1.0; the decision is the most probable class.\n")
	b.WriteString(`Respond ONLY with JSON: {"decision": "...", "reason": "...", "probabilities": {"BUY": 0.0, "SELL": 0.0, "HOLD": 0.0}}`)
	return b.String()
}

// groupThousands renders a rounded amount as 1,234,567.
func groupThousands(v float64) string {
	s := strconv.FormatInt(int64(math.Round(math.Abs(v))), 10)
	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
