// Package server exposes the desk over HTTP: read-only views of the
// portfolio, bank and market data, engine control, manual orders and a
// websocket event stream.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quant-desk/internal/bank"
	"quant-desk/internal/engine"
	"quant-desk/internal/logger"
	"quant-desk/internal/types"
)

// Desk is the engine surface the API needs.
type Desk interface {
	Status() engine.Status
	Modes() engine.Modes
	SetModes(m engine.Modes)
	Portfolio() types.Portfolio
	Activity(n int) []types.ActivityEntry
	ExecuteManual(ctx context.Context, req types.OrderReq) (types.ActivityEntry, error)
	Withdraw(ctx context.Context, amount float64) (bank.Result, error)
	Deposit(ctx context.Context, amount float64) (bank.Result, error)
}

// Controller starts and stops the decision loop.
type Controller interface {
	Start(parent context.Context) bool
	Stop() bool
	Running() bool
}

type BankView interface {
	Balance() float64
	Transactions() []types.BankTransaction
}

type MarketView interface {
	History(symbol string) []types.PricePoint
	LatestTicks() map[string]types.Tick
}

var (
	_ Desk       = (*engine.Engine)(nil)
	_ Controller = (*engine.Runner)(nil)
	_ BankView   = (*bank.Bank)(nil)
)

type Deps struct {
	Desk     Desk
	Runner   Controller
	Bank     BankView
	Market   MarketView
	Universe []types.Instrument
	Hub      *Hub
	// Base is the parent context of a loop started over the API.
	Base context.Context
}

type Server struct {
	desk     Desk
	runner   Controller
	bank     BankView
	market   MarketView
	universe []types.Instrument
	hub      *Hub
	base     context.Context
}

func New(d Deps) *Server {
	if d.Base == nil {
		d.Base = context.Background()
	}
	if d.Hub == nil {
		d.Hub = NewHub()
	}
	return &Server{
		desk:     d.Desk,
		runner:   d.Runner,
		bank:     d.Bank,
		market:   d.Market,
		universe: d.Universe,
		hub:      d.Hub,
		base:     d.Base,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.health)
	r.GET("/ws", s.hub.ServeWS)

	api := r.Group("/api")
	{
		api.GET("/portfolio", s.portfolio)
		api.GET("/bank-data", s.bankData)
		api.POST("/bank-withdraw", s.bankWithdraw)
		api.POST("/bank-deposit", s.bankDeposit)
		api.GET("/server-state", s.serverState)
		api.GET("/latest-ticks", s.latestTicks)
		api.GET("/initial-chart-data", s.initialChartData)
		api.GET("/activity", s.activity)
		api.POST("/execute-trade", s.executeTrade)

		eng := api.Group("/engine")
		eng.POST("/start", s.engineStart)
		eng.POST("/stop", s.engineStop)
		eng.POST("/modes", s.engineModes)
	}
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
