package engine

import (
	"context"
	"fmt"
	"math"

	"quant-desk/internal/bank"
	"quant-desk/internal/errs"
	"quant-desk/internal/ledger"
	"quant-desk/internal/logger"
	"quant-desk/internal/types"
)

// Cash sweep bands in KRW: above the threshold, cash over the baseline goes
// back to the bank.
const (
	sweepThreshold           = 10_000_000
	sweepBaseline            = 5_000_000
	sweepThresholdAggressive = 15_000_000
	sweepBaselineAggressive  = 7_500_000
)

// riskManager keeps the trading account funded from the bank and sweeps
// idle cash back.
type riskManager struct {
	bank   *bank.Bank
	ledger *ledger.Ledger
}

func newRiskManager(b *bank.Bank, l *ledger.Ledger) *riskManager {
	return &riskManager{bank: b, ledger: l}
}

// ensureCash withdraws the shortfall when cash is below need. A failed
// withdrawal is logged and the trade is left to fail in the ledger.
func (rm *riskManager) ensureCash(ctx context.Context, need float64) {
	cash := rm.ledger.Cash()
	if need <= cash {
		return
	}
	shortfall := math.Ceil(need - cash)
	if _, _, err := rm.fromBank(ctx, shortfall, "Auto-withdraw: covering trade shortfall"); err != nil {
		logger.Risk(ctx, "CASH", "AUTO_WITHDRAW_FAILED", "shortfall", shortfall, "error", err)
		return
	}
	logger.Risk(ctx, "CASH", "AUTO_WITHDRAW", "amount", shortfall, "cash_before", cash)
}

// sweepExcess deposits cash above the band's baseline once it passes the
// threshold.
func (rm *riskManager) sweepExcess(ctx context.Context, aggressive bool) (types.ActivityEntry, bool) {
	threshold, baseline := float64(sweepThreshold), float64(sweepBaseline)
	if aggressive {
		threshold, baseline = sweepThresholdAggressive, sweepBaselineAggressive
	}
	cash := rm.ledger.Cash()
	if cash <= threshold {
		return types.ActivityEntry{}, false
	}
	amount := math.Floor(cash - baseline)
	e, _, err := rm.toBank(ctx, amount, "Auto-deposit: sweeping excess cash")
	if err != nil {
		logger.Risk(ctx, "CASH", "AUTO_DEPOSIT_FAILED", "amount", amount, "error", err)
		return e, true
	}
	logger.Risk(ctx, "CASH", "AUTO_DEPOSIT", "amount", amount, "cash_before", cash)
	return e, true
}

// fromBank moves amount from the bank into portfolio cash. The result is
// the bank's answer for this transfer.
func (rm *riskManager) fromBank(ctx context.Context, amount float64, reason string) (types.ActivityEntry, bank.Result, error) {
	res, err := rm.bank.Withdraw(amount)
	if err != nil {
		return types.ActivityEntry{}, res, err
	}
	e, err := rm.ledger.AddCash(amount, reason)
	if err != nil {
		// The ledger refused; put the money back.
		if _, derr := rm.bank.Deposit(amount); derr != nil {
			logger.ErrorWithErr(ctx, "Bank refund failed", derr, "amount", amount)
		}
		return e, rm.refused(err), err
	}
	return e, res, nil
}

// toBank moves amount of portfolio cash into the bank.
func (rm *riskManager) toBank(ctx context.Context, amount float64, reason string) (types.ActivityEntry, bank.Result, error) {
	if amount <= 0 {
		err := fmt.Errorf("%w: amount must be positive", errs.ErrInvalidOrder)
		return types.ActivityEntry{}, rm.refused(err), err
	}
	e, err := rm.ledger.RemoveCash(amount, reason)
	if err != nil {
		return e, rm.refused(err), err
	}
	res, err := rm.bank.Deposit(amount)
	if err != nil {
		logger.ErrorWithErr(ctx, "Bank deposit failed, returning cash", err, "amount", amount)
		_, _ = rm.ledger.AddCash(amount, "Deposit reversal")
		return e, res, err
	}
	return e, res, nil
}

func (rm *riskManager) refused(err error) bank.Result {
	return bank.Result{NewBalance: rm.bank.Balance(), Error: err.Error()}
}
