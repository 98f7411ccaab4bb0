package notify

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"quant-desk/internal/types"
)

const ColorAnalyst = 3447003

var colors = map[types.Action]int{
	types.ActionBuy:       3066993,
	types.ActionSell:      15158332,
	types.ActionShort:     15105570,
	types.ActionCover:     3447003,
	types.ActionEnterPair: 15844367,
	types.ActionExitPair:  7419530,
	types.ActionHold:      9807270,
}

func ColorFor(a types.Action) int {
	if c, ok := colors[a]; ok {
		return c
	}
	return colors[types.ActionHold]
}

// TradeSignal describes a directional decision priced at price. HOLD
// decisions are not worth a message and report false.
func TradeSignal(inst types.Instrument, strategy types.Strategy, d types.Decision, price float64) (types.Notification, bool) {
	if d.Action == types.ActionHold || d.Shares <= 0 {
		return types.Notification{}, false
	}
	return types.Notification{
		Title:       fmt.Sprintf("AI Trade Signal: %s %s", d.Action, displayName(inst)),
		Description: "**Reason**: " + d.Reason,
		Color:       ColorFor(d.Action),
		Fields: []types.NotificationField{
			{Name: "Strategy", Value: strategy.Label(), Inline: true},
			{Name: "Stock", Value: fmt.Sprintf("%s (%s)", inst.Name, inst.Symbol), Inline: true},
			{Name: "Shares", Value: strconv.Itoa(d.Shares), Inline: true},
			{Name: "Price", Value: Money(price, inst.Currency), Inline: true},
			{Name: "Total", Value: Money(price*float64(d.Shares), inst.Currency), Inline: true},
			{Name: "Confidence", Value: Percent(d.Confidence), Inline: true},
		},
	}, true
}

// AnalystSignal announces a raw, non-HOLD analyst recommendation before the
// desk decides whether to act on it.
func AnalystSignal(inst types.Instrument, strategy types.Strategy, d types.Decision) (types.Notification, bool) {
	if d.Action == types.ActionHold {
		return types.Notification{}, false
	}
	return types.Notification{
		Title:       fmt.Sprintf("AI Analyst Signal: %s %s", d.Action, displayName(inst)),
		Description: "**Reason**: " + d.Reason,
		Color:       ColorAnalyst,
		Fields: []types.NotificationField{
			{Name: "Strategy", Value: strategy.Label()},
			{Name: "Confidence", Value: Percent(d.Confidence)},
		},
	}, true
}

func PairSignal(action types.Action, longInst, shortInst types.Instrument, z float64, reason string) types.Notification {
	return types.Notification{
		Title:       "Pairs Trading Signal: " + strings.ReplaceAll(string(action), "_", " "),
		Description: "**Reason**: " + reason,
		Color:       ColorFor(action),
		Fields: []types.NotificationField{
			{Name: "Strategy", Value: types.StrategyPairsTrading.Label(), Inline: true},
			{Name: "Z-Score", Value: strconv.FormatFloat(z, 'f', 4, 64), Inline: true},
			{Name: "Long", Value: displayName(longInst), Inline: true},
			{Name: "Short", Value: displayName(shortInst), Inline: true},
		},
	}
}

func displayName(inst types.Instrument) string {
	if inst.LocalName != "" {
		return inst.LocalName
	}
	if inst.Name != "" {
		return inst.Name
	}
	return inst.Symbol
}

// Money formats KRW as whole won and USD with cents.
func Money(v float64, cur types.Currency) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	if cur == types.USD {
		return sign + "$" + group(strconv.FormatFloat(math.Abs(v), 'f', 2, 64))
	}
	return sign + "₩" + group(strconv.FormatFloat(math.Round(math.Abs(v)), 'f', 0, 64))
}

func Percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}

func group(s string) string {
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
