package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quant-desk/internal/bank"
	"quant-desk/internal/engine"
	"quant-desk/internal/types"
)

const (
	defaultActivityLimit = 50
	chartPoints          = 500
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type amountRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

type bankDataResponse struct {
	Balance      float64                 `json:"balance"`
	Transactions []types.BankTransaction `json:"transactions"`
}

type serverStateResponse struct {
	ExchangeRate   float64                       `json:"exchangeRate"`
	MarketStatuses types.MarketStatus            `json:"marketStatuses"`
	Fundamentals   map[string]types.Fundamentals `json:"fundamentalData"`
	AlphaFactors   map[string]types.AlphaFactors `json:"alphaFactors"`
	MarketRegime   types.Regime                  `json:"marketRegime"`
	Strategy       types.Strategy                `json:"strategy"`
	StrategyReason string                        `json:"strategyReason"`
	PortfolioValue float64                       `json:"portfolioValue"`
	PairSignal     any                           `json:"pairSignal,omitempty"`
	Modes          engine.Modes                  `json:"modes"`
	EngineRunning  bool                          `json:"engineRunning"`
	LastCycle      any                           `json:"lastCycle,omitempty"`
}

type engineResponse struct {
	Running bool `json:"running"`
	Changed bool `json:"changed"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) portfolio(c *gin.Context) {
	c.JSON(http.StatusOK, s.desk.Portfolio())
}

func (s *Server) bankData(c *gin.Context) {
	c.JSON(http.StatusOK, bankDataResponse{
		Balance:      s.bank.Balance(),
		Transactions: s.bank.Transactions(),
	})
}

func (s *Server) bankWithdraw(c *gin.Context) {
	s.bankTransfer(c, s.desk.Withdraw)
}

func (s *Server) bankDeposit(c *gin.Context) {
	s.bankTransfer(c, s.desk.Deposit)
}

// bankTransfer answers with the bank's result for this transfer; a refused
// transfer is 422 with the reason.
func (s *Server) bankTransfer(c *gin.Context, move func(ctx context.Context, amount float64) (bank.Result, error)) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	res, err := move(c.Request.Context(), req.Amount)
	if err != nil {
		res.Success = false
		if res.Error == "" {
			res.Error = err.Error()
		}
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) serverState(c *gin.Context) {
	st := s.desk.Status()
	resp := serverStateResponse{
		ExchangeRate:   st.ExchangeRate,
		MarketStatuses: st.MarketStatus,
		Fundamentals:   st.Fundamentals,
		AlphaFactors:   st.Factors,
		MarketRegime:   st.Regime,
		Strategy:       st.Strategy,
		StrategyReason: st.StrategyReason,
		PortfolioValue: st.PortfolioValue,
		Modes:          st.Modes,
		EngineRunning:  s.runner != nil && s.runner.Running(),
	}
	if st.PairSignal != nil {
		resp.PairSignal = st.PairSignal
	}
	if !st.LastCycle.IsZero() {
		resp.LastCycle = st.LastCycle
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) latestTicks(c *gin.Context) {
	c.JSON(http.StatusOK, s.market.LatestTicks())
}

func (s *Server) initialChartData(c *gin.Context) {
	out := make(map[string][]types.PricePoint, len(s.universe))
	for _, inst := range s.universe {
		h := s.market.History(inst.Symbol)
		if len(h) > chartPoints {
			h = h[len(h)-chartPoints:]
		}
		out[inst.Symbol] = h
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) activity(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultActivityLimit)))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		return
	}
	c.JSON(http.StatusOK, s.desk.Activity(limit))
}

func (s *Server) executeTrade(c *gin.Context) {
	var req types.OrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	entry, err := s.desk.ExecuteManual(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if !entry.Success {
		c.JSON(http.StatusUnprocessableEntity, entry)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) engineStart(c *gin.Context) {
	changed := s.runner.Start(s.base)
	s.publishEngine(changed)
	c.JSON(http.StatusOK, engineResponse{Running: s.runner.Running(), Changed: changed})
}

func (s *Server) engineStop(c *gin.Context) {
	changed := s.runner.Stop()
	s.publishEngine(changed)
	c.JSON(http.StatusOK, engineResponse{Running: s.runner.Running(), Changed: changed})
}

func (s *Server) engineModes(c *gin.Context) {
	var m engine.Modes
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	s.desk.SetModes(m)
	s.hub.Publish(EventEngine, gin.H{"running": s.runner.Running(), "modes": m})
	c.JSON(http.StatusOK, m)
}

func (s *Server) publishEngine(changed bool) {
	if !changed {
		return
	}
	s.hub.Publish(EventEngine, gin.H{"running": s.runner.Running(), "modes": s.desk.Modes()})
}
