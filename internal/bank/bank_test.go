package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-desk/internal/errs"
	"quant-desk/internal/types"
)

func TestBank(t *testing.T) {
	b := New(1_000, nil)

	res, err := b.Withdraw(400)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 600.0, res.NewBalance)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, types.Withdrawal, res.Transaction.Type)

	res, err = b.Withdraw(601)
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
	assert.False(t, res.Success)
	assert.Nil(t, res.Transaction)
	assert.Equal(t, 600.0, b.Balance())

	_, err = b.Deposit(0)
	assert.ErrorIs(t, err, errs.ErrInvalidOrder)

	res, err = b.Deposit(0.1)
	require.NoError(t, err)
	res, err = b.Deposit(0.2)
	require.NoError(t, err)
	assert.Equal(t, 600.3, res.NewBalance)

	txs := b.Transactions()
	require.Len(t, txs, 3)
	assert.Equal(t, types.Deposit, txs[0].Type)
	assert.Equal(t, types.Withdrawal, txs[2].Type)
}
