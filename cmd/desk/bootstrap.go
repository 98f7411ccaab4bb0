package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"quant-desk/internal/alpha"
	"quant-desk/internal/api"
	"quant-desk/internal/bank"
	"quant-desk/internal/broker/brokerobs"
	"quant-desk/internal/broker/sim"
	"quant-desk/internal/engine"
	"quant-desk/internal/engine/engineobs"
	"quant-desk/internal/eod"
	"quant-desk/internal/eod/eodobs"
	"quant-desk/internal/interfaces"
	"quant-desk/internal/ledger"
	"quant-desk/internal/llm"
	"quant-desk/internal/llm/claude"
	"quant-desk/internal/llm/gemini"
	"quant-desk/internal/llm/llmobs"
	"quant-desk/internal/llm/noop"
	"quant-desk/internal/llm/openai"
	"quant-desk/internal/logger"
	"quant-desk/internal/marketdata"
	"quant-desk/internal/notify"
	"quant-desk/internal/server"
	"quant-desk/internal/store"
	"quant-desk/internal/trace"
	"quant-desk/internal/tradelog"
	"quant-desk/internal/types"
)

// desk is everything a command needs, wired once.
type desk struct {
	cfg      *store.Config
	universe []types.Instrument
	store    *marketdata.Store
	gen      *marketdata.Generator
	bank     *bank.Bank
	journal  *tradelog.Journal
	engine   *engine.Engine
	cycler   interfaces.Engine
	runner   *engine.Runner
	eod      interfaces.EodSummarizer
	hub      *server.Hub
	redis    *redis.Client
}

// initializeSystem loads .env, then initializes logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func shutdownSystem() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(ctx)
	_ = logger.Shutdown(ctx)
}

// loadConfig reads path, or uses the defaults when path is empty.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	if path == "" {
		logger.Info(ctx, "No config file given, using defaults")
		return store.Default(), nil
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old journal files if retention is configured
func compressOldLogs(ctx context.Context, j *tradelog.Journal) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	days, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Invalid TRADER_LOG_RETENTION_DAYS", "value", v)
		return
	}
	if err := j.CompressOlder(days); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeVenue builds the simulated venue with observability
func initializeVenue(ctx context.Context, cfg *store.Config) interfaces.Venue {
	v := sim.New(sim.Params{
		Latency:     time.Duration(cfg.Venue.LatencyMs) * time.Millisecond,
		FailureRate: cfg.Venue.FailureRate,
		Seed:        cfg.Venue.Seed,
	})
	logger.Info(ctx, "Simulated venue ready",
		"latency_ms", cfg.Venue.LatencyMs,
		"failure_rate", cfg.Venue.FailureRate,
	)
	return brokerobs.Wrap(v)
}

// initializeOracle picks the model provider. A provider without credentials
// falls back to the noop oracle, which keeps the desk in RISK_OFF.
func initializeOracle(ctx context.Context, cfg *store.Config) interfaces.Oracle {
	var (
		completer llm.Completer
		err       error
	)
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second

	switch cfg.LLM.Provider {
	case store.ProviderGemini:
		completer, err = gemini.New(ctx, gemini.Params{
			APIKey:    os.Getenv("GEMINI_API_KEY"),
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
	case store.ProviderOpenAI:
		completer, err = openai.New(openai.Params{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Client:    providerClient(cfg.LLM.BaseURL, openai.DefaultBaseURL, timeout),
		})
	case store.ProviderClaude:
		completer, err = claude.New(claude.Params{
			APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Client:    providerClient(cfg.LLM.BaseURL, claude.DefaultBaseURL, timeout),
		})
	}

	var oracle interfaces.Oracle
	switch {
	case err != nil:
		logger.Warn(ctx, "Model provider unavailable - using Noop oracle (always RISK_OFF)", "provider", cfg.LLM.Provider, "error", err)
		oracle = noop.New()
	case completer == nil:
		logger.Warn(ctx, "No model provider configured - using Noop oracle (always RISK_OFF)")
		oracle = noop.New()
	default:
		logger.Info(ctx, "Model provider ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		oracle = llm.NewOracle(completer)
	}

	return llmobs.Wrap(oracle)
}

func providerClient(baseURL, fallback string, timeout time.Duration) *api.Client {
	if baseURL == "" {
		baseURL = fallback
	}
	return api.NewClient(
		api.WithBaseURL(baseURL),
		api.WithTimeout(timeout),
		api.WithRetry(2, time.Second, 5*time.Second),
		api.WithLogging(true),
	)
}

// initializeHistory returns the seed history source. Yahoo history goes
// through Redis when REDIS_ADDR is set and falls back to the synthetic walk.
func initializeHistory(ctx context.Context, cfg *store.Config) (interfaces.HistorySource, *redis.Client) {
	synthetic := marketdata.NewSyntheticHistory(cfg.Ticks.Seed, time.Now, marketdata.StartingPrices)
	if cfg.History.Source != store.HistoryYahoo {
		logger.Info(ctx, "Using synthetic seed history")
		return synthetic, nil
	}

	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn(ctx, "Redis unavailable, history cache disabled", "addr", addr, "error", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			logger.Info(ctx, "History cache enabled", "addr", addr)
		}
	}

	yahoo := marketdata.NewYahooHistory(time.Duration(cfg.History.LookbackDays)*24*time.Hour, time.Now)
	cached := marketdata.NewCachingHistory(rdb, time.Duration(cfg.History.CacheTTLSeconds)*time.Second, yahoo, cfg.History.CacheNamespace)
	logger.Info(ctx, "Using Yahoo seed history", "lookback_days", cfg.History.LookbackDays)
	return marketdata.FallbackHistory{cached, synthetic}, rdb
}

func initializeRates(ctx context.Context, cfg *store.Config) interfaces.RateSource {
	if cfg.FX.Source == store.FXHTTP {
		logger.Info(ctx, "Using HTTP exchange rate", "base_url", cfg.FX.BaseURL)
		client := api.NewClient(
			api.WithBaseURL(cfg.FX.BaseURL),
			api.WithTimeout(10*time.Second),
			api.WithRetry(2, 500*time.Millisecond, 2*time.Second),
		)
		return marketdata.NewHTTPRate(client, cfg.FX.Path, cfg.FX.StartRate)
	}
	return marketdata.NewSimulatedRate(cfg.FX.StartRate, cfg.FX.Seed)
}

func initializeNotifier(ctx context.Context, cfg *store.Config) interfaces.Notifier {
	webhook := os.Getenv("DISCORD_WEBHOOK_URL")
	if !cfg.Notify.Enabled || webhook == "" {
		logger.Info(ctx, "Discord notifications disabled")
		return notify.Noop{}
	}
	return notify.NewDiscord(api.NewClient(api.WithTimeout(10*time.Second)), webhook)
}

// initializeEOD wraps the EOD summarizer with observability
func initializeEOD(j *tradelog.Journal) interfaces.EodSummarizer {
	return eodobs.Wrap(eod.New(j, nil))
}

// initializeDesk wires the market data, the ledger, the engine and its loop.
// Every ledger entry is journaled and pushed to websocket clients.
func initializeDesk(ctx context.Context, cfg *store.Config) *desk {
	d := &desk{
		cfg:      cfg,
		universe: cfg.Universe,
		store:    marketdata.NewStore(cfg.History.Cap),
		bank:     bank.New(cfg.Bank.InitialBalance, nil),
		journal:  tradelog.New("", nil),
		hub:      server.NewHub(),
	}
	if len(d.universe) == 0 {
		d.universe = marketdata.DefaultUniverse()
	}
	compressOldLogs(ctx, d.journal)

	history, rdb := initializeHistory(ctx, cfg)
	d.redis = rdb
	marketdata.SeedAll(ctx, d.store, history, d.universe, cfg.History.Points, nil)

	prices := make(map[string]float64, len(d.universe))
	for _, inst := range d.universe {
		if p, ok := d.store.LastPrice(inst.Symbol); ok {
			prices[inst.Symbol] = p
		} else if p, ok := marketdata.StartingPrices[inst.Symbol]; ok {
			prices[inst.Symbol] = p
		}
	}
	d.gen = marketdata.NewGenerator(d.universe, marketdata.GeneratorParams{
		Seed:     cfg.Ticks.Seed,
		Interval: time.Duration(cfg.Ticks.IntervalMs) * time.Millisecond,
		Prices:   prices,
	})

	l := ledger.New(d.universe, ledger.Options{
		InitialCash: cfg.InitialCash,
		ActivityCap: cfg.ActivityCap,
		OnEntry: func(e types.ActivityEntry) {
			if err := d.journal.AppendActivity(e); err != nil {
				logger.Warn(context.Background(), "Failed to journal activity", "id", e.ID, "error", err)
			}
			d.hub.Publish(server.EventActivity, e)
		},
	})

	symbols := make([]string, 0, len(d.universe))
	for _, inst := range d.universe {
		symbols = append(symbols, inst.Symbol)
	}
	d.engine = engine.New(engine.Deps{
		Universe:     d.universe,
		Store:        d.store,
		Hours:        marketdata.Hours{Mode: cfg.MarketHours},
		Rates:        initializeRates(ctx, cfg),
		Oracle:       initializeOracle(ctx, cfg),
		Venue:        initializeVenue(ctx, cfg),
		Ledger:       l,
		Bank:         d.bank,
		Factors:      alpha.NewEngine(rand.New(rand.NewSource(cfg.Ticks.Seed + 1))),
		Fundamentals: alpha.NewFundamentals(rand.New(rand.NewSource(cfg.Ticks.Seed+2)), symbols),
		Journal:      d.journal,
		Notifier:     initializeNotifier(ctx, cfg),
		Modes:        engine.Modes{Aggressive: cfg.Aggressive, LowLatency: cfg.LowLatency},
		StartRate:    cfg.FX.StartRate,
	})
	d.cycler = engineobs.Wrap(d.engine)
	d.eod = initializeEOD(d.journal)
	d.runner = engine.NewRunner(d.cycler, time.Duration(cfg.PollSeconds)*time.Second,
		engine.WithEOD(d.eod),
		engine.WithResultHook(func(res types.CycleResult) {
			d.hub.Publish(server.EventCycle, res)
		}),
	)
	return d
}

func (d *desk) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

// runFeed appends generated ticks to the store and broadcasts the accepted
// ones.
func (d *desk) runFeed(ctx context.Context) {
	_ = d.gen.Run(ctx, func(t types.Tick) {
		if d.store.Append(t) {
			d.hub.Publish(server.EventTick, t)
		}
	})
}

func (d *desk) httpServer(ctx context.Context) *server.Server {
	return server.New(server.Deps{
		Desk:     d.engine,
		Runner:   d.runner,
		Bank:     d.bank,
		Market:   d.store,
		Universe: d.universe,
		Hub:      d.hub,
		Base:     ctx,
	})
}
