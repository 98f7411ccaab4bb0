// Package bank is the desk's simulated cash account. Balances are kept in
// decimal so repeated transfers never drift.
package bank

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quant-desk/internal/errs"
	"quant-desk/internal/types"
)

const DefaultBalance = 1_000_000_000

type Result struct {
	Success     bool                   `json:"success"`
	NewBalance  float64                `json:"newBalance"`
	Transaction *types.BankTransaction `json:"transaction,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

type Bank struct {
	mu           sync.Mutex
	balance      decimal.Decimal
	transactions []types.BankTransaction
	clock        func() time.Time
}

func New(initial float64, clock func() time.Time) *Bank {
	if clock == nil {
		clock = time.Now
	}
	return &Bank{balance: decimal.NewFromFloat(initial), clock: clock}
}

func (b *Bank) Balance() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance.InexactFloat64()
}

// Transactions returns the history, newest first.
func (b *Bank) Transactions() []types.BankTransaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.BankTransaction, len(b.transactions))
	for i, tx := range b.transactions {
		out[len(out)-1-i] = tx
	}
	return out
}

// Withdraw moves amount out of the bank.
func (b *Bank) Withdraw(amount float64) (Result, error) {
	return b.move(types.Withdrawal, amount)
}

// Deposit moves amount into the bank.
func (b *Bank) Deposit(amount float64) (Result, error) {
	return b.move(types.Deposit, amount)
}

func (b *Bank) move(kind types.TransactionType, amount float64) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if amount <= 0 {
		err := fmt.Errorf("%w: amount must be positive", errs.ErrInvalidOrder)
		return Result{NewBalance: b.balance.InexactFloat64(), Error: err.Error()}, err
	}
	amt := decimal.NewFromFloat(amount)
	next := b.balance.Add(amt)
	if kind == types.Withdrawal {
		if b.balance.LessThan(amt) {
			err := fmt.Errorf("%w: bank balance %s < %s", errs.ErrInsufficientFunds, b.balance.StringFixed(0), amt.StringFixed(0))
			return Result{NewBalance: b.balance.InexactFloat64(), Error: err.Error()}, err
		}
		next = b.balance.Sub(amt)
	}
	b.balance = next

	tx := types.BankTransaction{
		ID:           uuid.NewString(),
		Type:         kind,
		Amount:       amount,
		BalanceAfter: next.InexactFloat64(),
		Time:         b.clock(),
	}
	b.transactions = append(b.transactions, tx)
	return Result{Success: true, NewBalance: tx.BalanceAfter, Transaction: &tx}, nil
}
