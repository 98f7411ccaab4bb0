package engine

import (
	"time"

	"quant-desk/internal/alpha"
	"quant-desk/internal/bank"
	"quant-desk/internal/interfaces"
	"quant-desk/internal/ledger"
	"quant-desk/internal/marketdata"
	"quant-desk/internal/notify"
	"quant-desk/internal/signal"
	"quant-desk/internal/tradelog"
	"quant-desk/internal/types"
)

// Deps is everything the engine is built from. Journal and Notifier are
// optional.
type Deps struct {
	Universe     []types.Instrument
	Store        *marketdata.Store
	Hours        marketdata.Hours
	Rates        interfaces.RateSource
	Oracle       interfaces.Oracle
	Venue        interfaces.Venue
	Ledger       *ledger.Ledger
	Bank         *bank.Bank
	Factors      *alpha.Engine
	Fundamentals *alpha.Fundamentals
	Journal      *tradelog.Journal
	Notifier     interfaces.Notifier
	Pair         signal.Pair
	Modes        Modes
	StartRate    float64
	Clock        func() time.Time
}

// DefaultPair is the memory spread: Micron over SK Hynix.
var DefaultPair = signal.Pair{First: "MU", Second: "000660"}

func New(d Deps) *Engine {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = notify.Noop{}
	}
	if d.Pair == (signal.Pair{}) {
		d.Pair = DefaultPair
	}
	e := &Engine{
		universe:     d.Universe,
		bySymbol:     make(map[string]types.Instrument, len(d.Universe)),
		store:        d.Store,
		hours:        d.Hours,
		rates:        d.Rates,
		oracle:       d.Oracle,
		ledger:       d.Ledger,
		factors:      d.Factors,
		fundamentals: d.Fundamentals,
		journal:      d.Journal,
		notifier:     d.Notifier,
		pair:         d.Pair,
		clock:        d.Clock,
		modes:        d.Modes,
		state:        State{ExchangeRate: d.StartRate, Strategy: types.StrategyRiskOff},
	}
	for _, inst := range d.Universe {
		e.bySymbol[inst.Symbol] = inst
	}
	e.risk = newRiskManager(d.Bank, d.Ledger)
	e.exec = newOrderExecutor(d.Venue, d.Ledger, e.risk, d.Notifier)
	return e
}
