package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-desk/internal/api"
	"quant-desk/internal/types"
)

var mu = types.Instrument{Symbol: "MU", Name: "Micron Technology", LocalName: "마이크론", Currency: types.USD}

func TestDiscordPostsEmbed(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hook/123", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(api.NewClient(), srv.URL+"/hook/123")
	d.clock = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }

	n := types.Notification{Title: "t", Description: "d", Color: ColorFor(types.ActionBuy)}
	require.NoError(t, d.Notify(context.Background(), n))

	assert.Equal(t, "AI Trading Engine", got.Username)
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, 3066993, got.Embeds[0].Color)
	assert.Equal(t, "2024-07-01T00:00:00Z", got.Embeds[0].Timestamp)
}

func TestDiscordReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscord(nil, srv.URL).Notify(context.Background(), types.Notification{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.NoError(t, Noop{}.Notify(context.Background(), types.Notification{}))
}

func TestColorFor(t *testing.T) {
	tests := []struct {
		action types.Action
		color  int
	}{
		{types.ActionBuy, 3066993},
		{types.ActionSell, 15158332},
		{types.ActionShort, 15105570},
		{types.ActionCover, 3447003},
		{types.ActionEnterPair, 15844367},
		{types.ActionExitPair, 7419530},
		{types.ActionHold, 9807270},
		{"UNKNOWN", 9807270},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.color, ColorFor(tt.action))
		})
	}
}

func TestTradeSignal(t *testing.T) {
	_, ok := TradeSignal(mu, types.StrategyAlphaMomentum, types.Hold("meh"), 100)
	assert.False(t, ok)

	n, ok := TradeSignal(mu, types.StrategyAlphaMomentum, types.Decision{Action: types.ActionShort, Shares: 20, Reason: "weak", Confidence: 0.85}, 1234.5)
	require.True(t, ok)
	assert.Equal(t, "AI Trade Signal: SHORT 마이크론", n.Title)
	assert.Equal(t, 15105570, n.Color)
	assert.Equal(t, "$24,690.00", n.Fields[4].Value)
	assert.Equal(t, "85.0%", n.Fields[5].Value)

	a, ok := AnalystSignal(mu, types.StrategyMeanReversion, types.Decision{Action: types.ActionSell, Confidence: 0.5})
	require.True(t, ok)
	assert.Equal(t, ColorAnalyst, a.Color)

	p := PairSignal(types.ActionEnterPair, mu, types.Instrument{Symbol: "000660"}, 2.34567, "spread wide")
	assert.Equal(t, "Pairs Trading Signal: ENTER PAIR TRADE", p.Title)
	assert.Equal(t, "2.3457", p.Fields[1].Value)
	assert.Equal(t, "000660", p.Fields[3].Value)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "₩81,500", Money(81500.4, types.KRW))
	assert.Equal(t, "-₩1,000", Money(-1000, types.KRW))
	assert.Equal(t, "$125.00", Money(125, types.USD))
	assert.Equal(t, "$1,234,567.89", Money(1234567.891, types.USD))
}
