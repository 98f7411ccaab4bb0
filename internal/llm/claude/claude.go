// Package claude completes oracle prompts with the Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"strings"

	"quant-desk/internal/api"
	"quant-desk/internal/llm"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
)

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
		return nil, errors.New("ANTHROPIC_API_KEY missing")
	}
	if p.Client == nil {
		base := p.BaseURL
		if base == "" {
			base = DefaultBaseURL
		}
		p.Client = api.NewClient(api.WithBaseURL(base), api.WithLogging(true))
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 512
	}
	return &Client{http: p.Client, apiKey: p.APIKey, model: p.Model, maxTokens: p.MaxTokens}, nil
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	body := messagesRequest{
		Model:       c.model,
		System:      "You are a disciplined trading desk component. Output STRICT JSON only.",
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   c.maxTokens,
		Temperature: req.Temperature,
	}
	headers := map[string]string{"x-api-key": c.apiKey, "anthropic-version": apiVersion}

	var resp messagesResponse
	if err := c.http.PostJSON(ctx, "/messages", body, &resp, headers); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("empty completion")
	}
	return b.String(), nil
}
