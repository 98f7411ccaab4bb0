package types

import (
	"strings"
	"time"
)

type Currency string

const (
	KRW Currency = "KRW"
	USD Currency = "USD"
)

const (
	MarketKorea = "KOREA"
	MarketUSA   = "USA"
)

// Instrument is immutable reference data for a tradable symbol.
type Instrument struct {
	Symbol    string   `json:"symbol" yaml:"symbol"`
	Name      string   `json:"name" yaml:"name"`
	LocalName string   `json:"localName,omitempty" yaml:"local_name"`
	Currency  Currency `json:"currency" yaml:"currency"`
	Ticker    string   `json:"ticker,omitempty" yaml:"ticker"` // Yahoo ticker, empty for synthetic-only names
}

// Market returns the exchange session the instrument trades in.
func (i Instrument) Market() string {
	if i.Currency == KRW {
		return MarketKorea
	}
	return MarketUSA
}

type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"timestamp"`
}

// Prices extracts the price column of a series.
func Prices(series []PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Price
	}
	return out
}

type AlphaFactors struct {
	Value               float64 `json:"value"`
	Momentum            float64 `json:"momentum"`
	MeanReversion       float64 `json:"meanReversion"`
	CompositeAlphaScore float64 `json:"compositeAlphaScore"`
}

type Fundamentals struct {
	PERatio      float64 `json:"peRatio"`
	EPSGrowth    float64 `json:"epsGrowth"`
	DebtToEquity float64 `json:"debtToEquity"`
}

type Regime string

const (
	RegimeTrending      Regime = "TRENDING"
	RegimeRanging       Regime = "RANGING"
	RegimeNeutral       Regime = "NEUTRAL"
	RegimeLowVolatility Regime = "LOW_VOLATILITY"
)

var regimeLabels = map[Regime]string{
	RegimeTrending:      "Trending Market",
	RegimeRanging:       "Ranging Market",
	RegimeNeutral:       "Neutral Market",
	RegimeLowVolatility: "Low Volatility",
}

func (r Regime) Label() string {
	if l, ok := regimeLabels[r]; ok {
		return l
	}
	return string(r)
}

type Strategy string

const (
	StrategyAlphaMomentum Strategy = "ALPHA_MOMENTUM"
	StrategyPairsTrading  Strategy = "PAIRS_TRADING"
	StrategyMeanReversion Strategy = "MEAN_REVERSION"
	StrategyRiskOff       Strategy = "RISK_OFF"
	StrategyDeepHedging   Strategy = "DEEP_HEDGING"
	StrategyMACross       Strategy = "MA_CROSS"
)

// Strategies lists every known strategy in prompt order.
var Strategies = []Strategy{
	StrategyAlphaMomentum,
	StrategyPairsTrading,
	StrategyMeanReversion,
	StrategyRiskOff,
	StrategyDeepHedging,
	StrategyMACross,
}

var strategyLabels = map[Strategy]string{
	StrategyAlphaMomentum: "Alpha Momentum",
	StrategyPairsTrading:  "Pairs Trading (Stat Arb)",
	StrategyMeanReversion: "Mean Reversion",
	StrategyRiskOff:       "Risk Off (Hold)",
	StrategyDeepHedging:   "Deep Hedging (ML)",
	StrategyMACross:       "Simple MA Cross",
}

func (s Strategy) Label() string {
	if l, ok := strategyLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStrategy accepts either the enum key or the human label, case-insensitively.
func ParseStrategy(raw string) (Strategy, bool) {
	v := strings.TrimSpace(raw)
	for _, s := range Strategies {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, s.Label()) {
			return s, true
		}
	}
	return "", false
}

type Trend string

const (
	TrendUp      Trend = "UPTREND"
	TrendDown    Trend = "DOWNTREND"
	TrendNeutral Trend = "NEUTRAL"
)

type Action string

const (
	ActionBuy       Action = "BUY"
	ActionSell      Action = "SELL"
	ActionHold      Action = "HOLD"
	ActionShort     Action = "SHORT"
	ActionCover     Action = "COVER"
	ActionEnterPair Action = "ENTER_PAIR_TRADE"
	ActionExitPair  Action = "EXIT_PAIR_TRADE"
)

// ParseAction normalizes a raw action string; unknown values report false.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	switch a {
	case ActionBuy, ActionSell, ActionHold, ActionShort, ActionCover, ActionEnterPair, ActionExitPair:
		return a, true
	}
	return "", false
}

type PositionType string

const (
	Long  PositionType = "LONG"
	Short PositionType = "SHORT"
)

type Holding struct {
	Shares       int          `json:"shares"`
	AvgPrice     float64      `json:"avgPrice"`
	PositionType PositionType `json:"positionType"`
	PairID       string       `json:"pairId,omitempty"`
}

type PairTrade struct {
	ID              string    `json:"id"`
	LongSymbol      string    `json:"longSymbol"`
	ShortSymbol     string    `json:"shortSymbol"`
	LongShares      int       `json:"longShares"`
	ShortShares     int       `json:"shortShares"`
	EntryPriceLong  float64   `json:"entryPriceLong"`
	EntryPriceShort float64   `json:"entryPriceShort"`
	EntrySpread     float64   `json:"entrySpread"`
	EntryTime       time.Time `json:"entryTime"`
}

type Portfolio struct {
	Cash       float64              `json:"cash"`
	Holdings   map[string]Holding   `json:"holdings"`
	PairTrades map[string]PairTrade `json:"pairTrades"`
}

func NewPortfolio(cash float64) Portfolio {
	return Portfolio{Cash: cash, Holdings: map[string]Holding{}, PairTrades: map[string]PairTrade{}}
}

// Clone returns a deep copy; Holding and PairTrade are plain values.
func (p Portfolio) Clone() Portfolio {
	out := Portfolio{
		Cash:       p.Cash,
		Holdings:   make(map[string]Holding, len(p.Holdings)),
		PairTrades: make(map[string]PairTrade, len(p.PairTrades)),
	}
	for k, v := range p.Holdings {
		out.Holdings[k] = v
	}
	for k, v := range p.PairTrades {
		out.PairTrades[k] = v
	}
	return out
}

type ActivityEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	Symbol     string    `json:"symbol"`
	Shares     int       `json:"shares"`
	Price      float64   `json:"price"`
	Reason     string    `json:"reason"`
	Confidence *float64  `json:"confidence,omitempty"`
	Success    bool      `json:"success"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	OrderID    string    `json:"orderId,omitempty"`
}

// Decision is a one-shot signal consumed by the executor.
type Decision struct {
	Action     Action  `json:"decision"`
	Shares     int     `json:"sharesToTrade"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

func Hold(reason string) Decision {
	return Decision{Action: ActionHold, Reason: reason}
}

type StrategyDecision struct {
	Strategy Strategy `json:"strategy"`
	Reason   string   `json:"reason"`
}

type StrategyRequest struct {
	Regime         Regime  `json:"regime"`
	PortfolioValue float64 `json:"portfolioValue"`
	Aggressive     bool    `json:"aggressive"`
	LowLatency     bool    `json:"lowLatency"`
}

type AnalystRequest struct {
	Instrument   Instrument   `json:"instrument"`
	Strategy     Strategy     `json:"strategy"`
	Factors      AlphaFactors `json:"factors"`
	Trend        Trend        `json:"trend"`
	Fundamentals Fundamentals `json:"fundamentals"`
	Aggressive   bool         `json:"aggressive"`
	LowLatency   bool         `json:"lowLatency"`
}

type MLFeatures struct {
	PriceChange5  float64 `json:"priceChange5m"`
	PriceChange20 float64 `json:"priceChange20m"`
	Volatility10  float64 `json:"volatility10m"`
	RSI14         float64 `json:"rsi14m"`
}

type MLRequest struct {
	Instrument Instrument `json:"instrument"`
	Features   MLFeatures `json:"features"`
	Aggressive bool       `json:"aggressive"`
	LowLatency bool       `json:"lowLatency"`
}

// MLSignal is the raw inference output before validation.
type MLSignal struct {
	Decision      Action             `json:"decision"`
	Reason        string             `json:"reason"`
	Probabilities map[Action]float64 `json:"probabilities"`
}

type OrderReq struct {
	Symbol string  `json:"symbol"`
	Action Action  `json:"action"`
	Shares int     `json:"shares"`
	Price  float64 `json:"price"`
}

const (
	FillSuccess = "SUCCESS"
	FillFailed  = "FAILED"
)

type Fill struct {
	OrderID     string    `json:"orderId"`
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	Shares      int       `json:"shares"`
	FilledPrice float64   `json:"filledPrice"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	Time        time.Time `json:"timestamp"`
}

type TransactionType string

const (
	Deposit    TransactionType = "DEPOSIT"
	Withdrawal TransactionType = "WITHDRAWAL"
)

type BankTransaction struct {
	ID           string          `json:"id"`
	Type         TransactionType `json:"type"`
	Amount       float64         `json:"amount"`
	BalanceAfter float64         `json:"balanceAfter"`
	Time         time.Time       `json:"timestamp"`
}

type MarketStatus struct {
	Korea bool `json:"KOREA"`
	USA   bool `json:"USA"`
}

func (m MarketStatus) Open(inst Instrument) bool {
	if inst.Market() == MarketKorea {
		return m.Korea
	}
	return m.USA
}

type CycleResult struct {
	Time           time.Time       `json:"time"`
	Regime         Regime          `json:"regime"`
	Strategy       Strategy        `json:"strategy"`
	StrategyReason string          `json:"strategyReason"`
	ExchangeRate   float64         `json:"exchangeRate"`
	PortfolioValue float64         `json:"portfolioValue"`
	Entries        []ActivityEntry `json:"entries"`
	Cancelled      bool            `json:"cancelled,omitempty"`
}

type NotificationField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Notification struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []NotificationField `json:"fields,omitempty"`
}
