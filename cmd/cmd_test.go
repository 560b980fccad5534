package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/swap"
	"swap-aggregator/pkg/types"
	"swap-aggregator/pkg/wallet"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mustCurrency(t *testing.T, id string) types.Currency {
	t.Helper()
	c, err := types.FindCurrency(id)
	require.NoError(t, err)
	return c
}

func TestDraftTransaction(t *testing.T) {
	tx := draftTransaction(mustCurrency(t, "ethereum/erc20/usdc"), decimal.NewFromInt(5), false)
	assert.Equal(t, "ethereum", tx.Family)
	assert.Equal(t, uint64(100000), tx.GasLimit)
	assert.True(t, tx.Fees.Equal(decimal.NewFromInt(100000*20_000_000_000)))

	tx = draftTransaction(mustCurrency(t, "bitcoin"), decimal.NewFromInt(5), true)
	assert.Equal(t, "bitcoin", tx.Family)
	assert.Zero(t, tx.GasLimit)
	assert.True(t, tx.UseAllAmount)
}

func TestChooseRate(t *testing.T) {
	boom := errors.New("down")
	rates := []types.ExchangeRate{
		{Provider: "changelly", TradeMethod: types.TradeMethodFixed, ToAmount: decimal.NewFromInt(30)},
		{Provider: "changelly", TradeMethod: types.TradeMethodFloat, ToAmount: decimal.NewFromInt(20)},
		{Provider: "wyre", TradeMethod: types.TradeMethodFloat, ToAmount: decimal.NewFromInt(10)},
		{Provider: "kraken", Error: boom},
	}
	var state swap.SwapState
	state = state.RatesLoaded(rates, fixedTime)

	best, err := chooseRate(state, "", "")
	require.NoError(t, err)
	assert.Equal(t, types.TradeMethodFixed, best.TradeMethod)

	float, err := chooseRate(state, "changelly", types.TradeMethodFloat)
	require.NoError(t, err)
	assert.True(t, float.ToAmount.Equal(decimal.NewFromInt(20)))

	wyre, err := chooseRate(state, "wyre", "")
	require.NoError(t, err)
	assert.Equal(t, "wyre", wyre.Provider)

	_, err = chooseRate(state, "kraken", "")
	assert.ErrorIs(t, err, boom)

	_, err = chooseRate(state, "wyre", types.TradeMethodFixed)
	assert.ErrorIs(t, err, swap.ErrUnsupportedPair)
}

func TestChooseRate_OnlyFailures(t *testing.T) {
	boom := errors.New("down")
	var state swap.SwapState
	state = state.RatesLoaded([]types.ExchangeRate{{Provider: "kraken", Error: boom}}, fixedTime)

	_, err := chooseRate(state, "", "")
	assert.ErrorIs(t, err, boom)
}

func TestCollectStatuses(t *testing.T) {
	account := types.Account{
		ID:          "eth-1",
		SwapHistory: []types.SwapOperation{{Provider: "changelly", SwapID: "a", Status: "pending"}},
		SubAccounts: []types.Account{{
			ID:          "eth-1-usdc",
			SwapHistory: []types.SwapOperation{{Provider: "wyre", SwapID: "b", Status: "finished"}},
		}},
	}

	assert.Equal(t, []walletStatus{
		{AccountID: "eth-1", Provider: "changelly", SwapID: "a", Status: "pending"},
		{AccountID: "eth-1-usdc", Provider: "wyre", SwapID: "b", Status: "finished"},
	}, collectStatuses(account))
}

func seededAccounts(t *testing.T) (eth types.Account, usdc types.Account) {
	t.Helper()
	for _, a := range wallet.DemoAccounts(wallet.Addresses{}) {
		if a.ID == "eth-1" {
			return a, a.SubAccounts[0]
		}
	}
	t.Fatal("eth-1 not seeded")
	return
}

func TestSpendTransaction_MaxNativeLeavesFees(t *testing.T) {
	eth, _ := seededAccounts(t)

	tx, err := spendTransaction(eth, nil, decimal.Zero, true)
	require.NoError(t, err)
	assert.True(t, tx.UseAllAmount)
	assert.Equal(t, "420000000000000", tx.Fees.String())
	assert.Equal(t, "1999580000000000000", tx.Amount.String())
	assert.True(t, tx.Amount.Add(tx.Fees).Equal(eth.Balance))
}

func TestSpendTransaction_AmountPlusFeesMustFit(t *testing.T) {
	eth, _ := seededAccounts(t)

	_, err := spendTransaction(eth, nil, decimal.NewFromInt(2), false)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	tx, err := spendTransaction(eth, nil, decimal.RequireFromString("1.5"), false)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", tx.Amount.String())

	eth.Balance = decimal.NewFromInt(1000)
	_, err = spendTransaction(eth, nil, decimal.Zero, true)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
}

func TestSpendTransaction_TokenFeesFromParent(t *testing.T) {
	eth, usdc := seededAccounts(t)

	tx, err := spendTransaction(usdc, &eth, decimal.Zero, true)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(usdc.Balance))

	eth.Balance = decimal.NewFromInt(1)
	_, err = spendTransaction(usdc, &eth, decimal.NewFromInt(10), false)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
}

func TestSpendTransaction_MaxThenRecordKeepsBalanceNonNegative(t *testing.T) {
	store, err := wallet.NewStore(t.TempDir() + "/wallet.json")
	require.NoError(t, err)
	_, err = store.Seed(wallet.Addresses{})
	require.NoError(t, err)

	eth, _, err := store.Resolve("eth-1")
	require.NoError(t, err)
	tx, err := spendTransaction(eth, nil, decimal.Zero, true)
	require.NoError(t, err)

	op := types.Operation{ID: "op-1", AccountID: "eth-1", Type: "OUT", Value: tx.Amount, Fee: tx.Fees, Date: fixedTime}
	require.NoError(t, store.RecordSwap(op, types.SwapOperation{SwapID: "s-1", OperationID: "op-1"}))

	eth, _, err = store.Resolve("eth-1")
	require.NoError(t, err)
	assert.True(t, eth.Balance.IsZero())
}
