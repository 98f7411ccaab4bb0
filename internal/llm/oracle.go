// Package llm turns language-model completions into the desk's three oracles
// (strategy, analyst and ML inference) and validates whatever comes back.
// Providers live in subpackages and only implement Completer.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"quant-desk/internal/errs"
	"quant-desk/internal/interfaces"
	"quant-desk/internal/types"
)

// Kind tells a provider which response shape the prompt asks for, so
// providers with structured output can attach a schema.
type Kind string

const (
	KindStrategy Kind = "strategy"
	KindAnalyst  Kind = "analyst"
	KindML       Kind = "ml"
)

type Request struct {
	Kind        Kind
	Prompt      string
	LowLatency  bool
	Temperature float32
}

// Completer sends one prompt to a model and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Oracle implements the three oracle contracts on top of a Completer.
// Responses are parsed into typed values here; a transport failure or
// malformed JSON is reported as errs.ErrOracle.
type Oracle struct {
	c Completer
}

var _ interfaces.Oracle = (*Oracle)(nil)

func NewOracle(c Completer) *Oracle {
	return &Oracle{c: c}
}

func (o *Oracle) SelectStrategy(ctx context.Context, req types.StrategyRequest) (types.StrategyDecision, error) {
	var out types.StrategyDecision
	err := o.ask(ctx, Request{Kind: KindStrategy, Prompt: StrategyPrompt(req), LowLatency: req.LowLatency, Temperature: 0.5}, &out)
	return out, err
}

func (o *Oracle) Analyze(ctx context.Context, req types.AnalystRequest) (types.Decision, error) {
	var out types.Decision
	err := o.ask(ctx, Request{Kind: KindAnalyst, Prompt: AnalystPrompt(req), LowLatency: req.LowLatency, Temperature: 0.7}, &out)
	return out, err
}

func (o *Oracle) Infer(ctx context.Context, req types.MLRequest) (types.MLSignal, error) {
	var out types.MLSignal
	err := o.ask(ctx, Request{Kind: KindML, Prompt: MLPrompt(req), LowLatency: req.LowLatency, Temperature: 0.2}, &out)
	return out, err
}

func (o *Oracle) ask(ctx context.Context, req Request, out any) error {
	text, err := o.c.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrOracle, req.Kind, err)
	}
	return decodeJSON(text, out)
}

// decodeJSON accepts a bare JSON object or one embedded in surrounding text
// such as a fenced code block.
func decodeJSON(text string, out any) error {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "{") {
		if err := json.Unmarshal([]byte(t), out); err == nil {
			return nil
		}
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(t[start:end+1]), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: unparseable response %q", errs.ErrOracle, preview(t, 120))
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
