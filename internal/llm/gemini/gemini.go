// Package gemini completes oracle prompts with Google Gemini, asking for
// schema-constrained JSON.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"quant-desk/internal/llm"
	"quant-desk/internal/types"
)

const DefaultModel = "gemini-2.5-flash"

type Params struct {
	APIKey    string
	Model     string
	MaxTokens int
}

type Client struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

var _ llm.Completer = (*Client)(nil)

func New(ctx context.Context, p Params) (*Client, error) {
	if p.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY missing")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model := p.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model, maxTokens: int32(p.MaxTokens)}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schemaFor(req.Kind),
		Temperature:      genai.Ptr(req.Temperature),
	}
	if c.maxTokens > 0 {
		cfg.MaxOutputTokens = c.maxTokens
	}
	if req.LowLatency {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini API request failed: %w", err)
	}
	return resp.Text(), nil
}

func schemaFor(kind llm.Kind) *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	num := &genai.Schema{Type: genai.TypeNumber}
	switch kind {
	case llm.KindStrategy:
		enum := make([]string, len(types.Strategies))
		for i, s := range types.Strategies {
			enum[i] = string(s)
		}
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"strategy": {Type: genai.TypeString, Enum: enum},
				"reason":   str,
			},
			Required: []string{"strategy", "reason"},
		}
	case llm.KindAnalyst:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"decision":      actionEnum(types.ActionBuy, types.ActionSell, types.ActionHold, types.ActionShort, types.ActionCover),
				"reason":        str,
				"sharesToTrade": {Type: genai.TypeInteger},
				"confidence":    num,
			},
			Required: []string{"decision", "reason", "sharesToTrade", "confidence"},
		}
	case llm.KindML:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"decision": actionEnum(types.ActionBuy, types.ActionSell, types.ActionHold),
				"reason":   str,
				"probabilities": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						string(types.ActionBuy):  num,
						string(types.ActionSell): num,
						string(types.ActionHold): num,
					},
					Required: []string{"BUY", "SELL", "HOLD"},
				},
			},
			Required: []string{"decision", "reason", "probabilities"},
		}
	}
	return nil
}

func actionEnum(actions ...types.Action) *genai.Schema {
	enum := make([]string, len(actions))
	for i, a := range actions {
		enum[i] = string(a)
	}
	return &genai.Schema{Type: genai.TypeString, Enum: enum}
}
