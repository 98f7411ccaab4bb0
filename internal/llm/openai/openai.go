// Package openai completes oracle prompts with the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"strings"

	"quant-desk/internal/api"
	"quant-desk/internal/llm"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Params struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Client    *api.Client // optional; built from BaseURL when nil
}

type Client struct {
	http      *api.Client
	apiKey    string
	model     string
	maxTokens int
}

var _ llm.Completer = (*Client)(nil)

func New(p Params) (*Client, error) {
	if p.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY missing")
	}
	if p.Client == nil {
		base := p.BaseURL
		if base == "" {
			base = DefaultBaseURL
		}
		p.Client = api.NewClient(api.WithBaseURL(base), api.WithLogging(true))
	}
	return &Client{http: p.Client, apiKey: p.APIKey, model: p.Model, maxTokens: p.MaxTokens}, nil
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []message         `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: "You are a disciplined trading desk component. Output STRICT JSON only."},
			{Role: "user", Content: req.Prompt},
		},
		Temperature:    req.Temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.http.PostJSON(ctx, "/chat/completions", body, &resp, headers); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
