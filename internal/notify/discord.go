// Package notify pushes trade signals to a Discord channel through a webhook.
package notify

import (
	"context"
	"time"

	"quant-desk/internal/api"
	"quant-desk/internal/interfaces"
	"quant-desk/internal/logger"
	"quant-desk/internal/types"
)

const username = "AI Trading Engine"

type Discord struct {
	client  *api.Client
	webhook string
	clock   func() time.Time
}

var _ interfaces.Notifier = (*Discord)(nil)

func NewDiscord(client *api.Client, webhook string) *Discord {
	if client == nil {
		client = api.NewClient(api.WithTimeout(10 * time.Second))
	}
	return &Discord{client: client, webhook: webhook, clock: time.Now}
}

type embed struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Color       int                       `json:"color"`
	Fields      []types.NotificationField `json:"fields,omitempty"`
	Timestamp   string                    `json:"timestamp"`
}

type payload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

func (d *Discord) Notify(ctx context.Context, n types.Notification) error {
	body := payload{
		Username: username,
		Embeds: []embed{{
			Title:       n.Title,
			Description: n.Description,
			Color:       n.Color,
			Fields:      n.Fields,
			Timestamp:   d.clock().UTC().Format(time.RFC3339),
		}},
	}
	if err := d.client.PostJSON(ctx, d.webhook, body, nil, nil); err != nil {
		logger.Warn(ctx, "Discord notification failed", "title", n.Title, "error", err)
		return err
	}
	return nil
}

// Noop drops every notification; used when no webhook is configured.
type Noop struct{}

var _ interfaces.Notifier = Noop{}

func (Noop) Notify(context.Context, types.Notification) error { return nil }
