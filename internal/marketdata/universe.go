// Package marketdata holds everything the desk knows about prices: the
// bounded per-symbol series store, the tick generator, seed history sources,
// the exchange rate and market hours.
package marketdata

import "quant-desk/internal/types"

// DefaultUniverse is the semiconductor basket the desk trades.
func DefaultUniverse() []types.Instrument {
	return []types.Instrument{
		{Symbol: "005930", Name: "Samsung Electronics", LocalName: "삼성전자", Currency: types.KRW, Ticker: "005930.KS"},
		{Symbol: "000660", Name: "SK Hynix", LocalName: "SK하이닉스", Currency: types.KRW, Ticker: "000660.KS"},
		{Symbol: "NVDA", Name: "NVIDIA", LocalName: "엔비디아", Currency: types.USD, Ticker: "NVDA"},
		{Symbol: "TSM", Name: "TSMC", LocalName: "TSMC", Currency: types.USD, Ticker: "TSM"},
		{Symbol: "MU", Name: "Micron Technology", LocalName: "마이크론", Currency: types.USD, Ticker: "MU"},
		{Symbol: "CXMT", Name: "ChangXin Memory", LocalName: "CXMT", Currency: types.USD},
	}
}

// StartingPrices seeds the tick generator when no history is available.
var StartingPrices = map[string]float64{
	"005930": 81_500,
	"000660": 228_000,
	"NVDA":   125,
	"TSM":    172,
	"MU":     141,
	"CXMT":   25,
}

// ProcessingOrder returns the universe with KRW names first, preserving the
// original order within each currency.
func ProcessingOrder(universe []types.Instrument) []types.Instrument {
	out := make([]types.Instrument, 0, len(universe))
	for _, cur := range []types.Currency{types.KRW, types.USD} {
		for _, inst := range universe {
			if inst.Currency == cur {
				out = append(out, inst)
			}
		}
	}
	return out
}
