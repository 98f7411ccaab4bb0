package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quant-desk/internal/types"
)

type Config struct {
	PollSeconds int     `yaml:"poll_seconds"`
	MarketHours string  `yaml:"market_hours"`
	Aggressive  bool    `yaml:"aggressive"`
	LowLatency  bool    `yaml:"low_latency"`
	AutoStart   bool    `yaml:"auto_start"`
	InitialCash float64 `yaml:"initial_cash"`
	ActivityCap int     `yaml:"activity_cap"`

	// Universe overrides the built-in semiconductor basket when non-empty.
	Universe []types.Instrument `yaml:"universe"`

	Bank struct {
		InitialBalance float64 `yaml:"initial_balance"`
	} `yaml:"bank"`
	History struct {
		Source          string `yaml:"source"`
		Points          int    `yaml:"points"`
		Cap             int    `yaml:"cap"`
		LookbackDays    int    `yaml:"lookback_days"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		CacheNamespace  string `yaml:"cache_namespace"`
	} `yaml:"history"`
	Ticks struct {
		IntervalMs int   `yaml:"interval_ms"`
		Seed       int64 `yaml:"seed"`
	} `yaml:"ticks"`
	Venue struct {
		LatencyMs   int     `yaml:"latency_ms"`
		FailureRate float64 `yaml:"failure_rate"`
		Seed        int64   `yaml:"seed"`
	} `yaml:"venue"`
	FX struct {
		Source    string  `yaml:"source"`
		BaseURL   string  `yaml:"base_url"`
		Path      string  `yaml:"path"`
		StartRate float64 `yaml:"start_rate"`
		Seed      int64   `yaml:"seed"`
	} `yaml:"fx"`
	LLM struct {
		Provider    string `yaml:"provider"`
		Model       string `yaml:"model"`
		BaseURL     string `yaml:"base_url"`
		MaxTokens   int    `yaml:"max_tokens"`
		TimeoutSecs int    `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Notify struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"notify"`
}

const (
	HistorySynthetic = "SYNTHETIC"
	HistoryYahoo     = "YAHOO"

	FXSimulated = "SIMULATED"
	FXHTTP      = "HTTP"

	ProviderGemini = "GEMINI"
	ProviderOpenAI = "OPENAI"
	ProviderClaude = "CLAUDE"
	ProviderNoop   = "NOOP"
)

var defaultModels = map[string]string{
	ProviderGemini: "gemini-2.5-flash",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderClaude: "claude-3-5-haiku-latest",
}

func (c *Config) Validate() error {
	if c.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive, got %d", c.PollSeconds)
	}
	if c.MarketHours != "EXCHANGE" && c.MarketHours != "ALWAYS_OPEN" {
		return fmt.Errorf("invalid market_hours '%s': must be 'EXCHANGE' or 'ALWAYS_OPEN'", c.MarketHours)
	}
	if c.InitialCash < 0 {
		return fmt.Errorf("initial_cash cannot be negative, got %.2f", c.InitialCash)
	}
	if c.History.Source != HistorySynthetic && c.History.Source != HistoryYahoo {
		return fmt.Errorf("invalid history.source '%s': must be 'SYNTHETIC' or 'YAHOO'", c.History.Source)
	}
	if c.History.Points < 21 {
		return fmt.Errorf("history.points must be at least 21, got %d", c.History.Points)
	}
	if c.History.Cap < c.History.Points {
		return fmt.Errorf("history.cap (%d) must be >= history.points (%d)", c.History.Cap, c.History.Points)
	}
	if c.Venue.FailureRate < 0 || c.Venue.FailureRate > 1 {
		return fmt.Errorf("venue.failure_rate must be between 0-1, got %.2f", c.Venue.FailureRate)
	}
	if c.FX.Source != FXSimulated && c.FX.Source != FXHTTP {
		return fmt.Errorf("invalid fx.source '%s': must be 'SIMULATED' or 'HTTP'", c.FX.Source)
	}
	if c.FX.Source == FXHTTP && c.FX.BaseURL == "" {
		return errors.New("fx.base_url is required when fx.source is HTTP")
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderClaude, ProviderNoop:
	default:
		return fmt.Errorf("llm.provider must be 'GEMINI', 'OPENAI', 'CLAUDE' or 'NOOP', got '%s'", c.LLM.Provider)
	}
	seen := map[string]bool{}
	for _, inst := range c.Universe {
		if inst.Symbol == "" {
			return errors.New("universe entries need a symbol")
		}
		if inst.Currency != types.KRW && inst.Currency != types.USD {
			return fmt.Errorf("universe %s: currency must be KRW or USD, got '%s'", inst.Symbol, inst.Currency)
		}
		if seen[inst.Symbol] {
			return fmt.Errorf("universe %s: duplicate symbol", inst.Symbol)
		}
		seen[inst.Symbol] = true
	}
	return nil
}

// applyDefaults fills every zero value that has a sensible default.
func (c *Config) applyDefaults() {
	if c.PollSeconds == 0 {
		c.PollSeconds = 5
	}
	if c.MarketHours == "" {
		c.MarketHours = "EXCHANGE"
	}
	if c.InitialCash == 0 {
		c.InitialCash = 1_000_000
	}
	if c.ActivityCap == 0 {
		c.ActivityCap = 200
	}
	if c.Bank.InitialBalance == 0 {
		c.Bank.InitialBalance = 1_000_000_000
	}
	if c.History.Source == "" {
		c.History.Source = HistorySynthetic
	}
	if c.History.Points == 0 {
		c.History.Points = 200
	}
	if c.History.Cap == 0 {
		c.History.Cap = 500
	}
	if c.History.LookbackDays == 0 {
		c.History.LookbackDays = 365
	}
	if c.History.CacheTTLSeconds == 0 {
		c.History.CacheTTLSeconds = 300
	}
	if c.Ticks.IntervalMs == 0 {
		c.Ticks.IntervalMs = 800
	}
	if c.FX.Source == "" {
		c.FX.Source = FXSimulated
	}
	if c.FX.Path == "" {
		c.FX.Path = "/latest"
	}
	if c.FX.StartRate == 0 {
		c.FX.StartRate = 1380
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 512
	}
	if c.LLM.TimeoutSecs == 0 {
		c.LLM.TimeoutSecs = 30
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
