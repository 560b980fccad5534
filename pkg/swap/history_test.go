package swap

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/types"
)

func historyAccounts(t *testing.T) []types.Account {
	btc := btcAccount(t)
	eth := ethAccount(t)
	eth.SubAccounts = []types.Account{{
		ID:       "eth-1-usdc",
		Type:     types.AccountTypeToken,
		ParentID: "eth-1",
		Currency: mustCurrency(t, "ethereum/erc20/usdc"),
	}}
	return []types.Account{btc, eth}
}

func TestProject_GroupsByDay(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 23, 59, 0, 0, time.UTC)

	operations := []types.Operation{
		{ID: "op-1", AccountID: "btc-1", Type: "OUT", Value: decimal.NewFromInt(10), Date: day1},
		{ID: "op-2", AccountID: "btc-1", Type: "OUT", Value: decimal.NewFromInt(20), Date: day2},
		{ID: "op-3", AccountID: "btc-1", Type: "OUT", Value: decimal.NewFromInt(30), Date: day1.Add(2 * time.Hour)},
	}
	swaps := []types.SwapOperation{
		{Provider: "changelly", SwapID: "s3", Status: "pending", ReceiverAccountID: "eth-1", OperationID: "op-3"},
		{Provider: "changelly", SwapID: "s1", Status: "finished", ReceiverAccountID: "eth-1", OperationID: "op-1"},
		{Provider: "wyre", SwapID: "s2", Status: "refunded", ReceiverAccountID: "eth-1", TokenID: "eth-1-usdc", OperationID: "op-2"},
		{Provider: "wyre", SwapID: "orphan", Status: "pending", ReceiverAccountID: "eth-1", OperationID: "op-missing"},
	}

	sections := Project(operations, swaps, historyAccounts(t))
	require.Len(t, sections, 2)

	assert.True(t, sections[0].Day.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
	require.Len(t, sections[0].Data, 1)
	token := sections[0].Data[0]
	assert.Equal(t, "s2", token.SwapID)
	assert.True(t, token.ToExists)
	assert.Equal(t, "eth-1-usdc", token.ToAccount.ID)
	require.NotNil(t, token.ToParentAccount)
	assert.Equal(t, "eth-1", token.ToParentAccount.ID)

	assert.True(t, sections[1].Day.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.Len(t, sections[1].Data, 2)
	assert.Equal(t, "s3", sections[1].Data[0].SwapID, "in-day order follows the swap operations")
	assert.Equal(t, "s1", sections[1].Data[1].SwapID)

	first := sections[1].Data[1]
	assert.Equal(t, "btc-1", first.FromAccount.ID)
	assert.Nil(t, first.FromParentAccount)
	assert.Equal(t, "eth-1", first.ToAccount.ID)
	assert.True(t, first.Operation.Value.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "finished", first.Status)
}

func TestProject_MissingDestination(t *testing.T) {
	ops := []types.Operation{{ID: "op-1", AccountID: "btc-1", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}}
	swaps := []types.SwapOperation{{Provider: "changelly", SwapID: "s1", ReceiverAccountID: "deleted", OperationID: "op-1"}}

	sections := Project(ops, swaps, historyAccounts(t))
	require.Len(t, sections, 1)
	assert.False(t, sections[0].Data[0].ToExists)
	assert.Empty(t, sections[0].Data[0].ToAccount.ID)
	assert.Equal(t, "btc-1", sections[0].Data[0].FromAccount.ID)
}

func TestProject_UsesUTCDay(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*60*60)
	// both fall on 2024-03-01 in UTC
	ops := []types.Operation{
		{ID: "a", AccountID: "btc-1", Date: time.Date(2024, 3, 2, 2, 0, 0, 0, plus5)},
		{ID: "b", AccountID: "btc-1", Date: time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)},
	}
	swaps := []types.SwapOperation{
		{SwapID: "sa", OperationID: "a", ReceiverAccountID: "eth-1"},
		{SwapID: "sb", OperationID: "b", ReceiverAccountID: "eth-1"},
	}

	sections := Project(ops, swaps, historyAccounts(t))
	require.Len(t, sections, 1)
	assert.Len(t, sections[0].Data, 2)
}

func TestProject_Empty(t *testing.T) {
	assert.Empty(t, Project(nil, nil, nil))
}

func TestProjectAccounts(t *testing.T) {
	accounts := historyAccounts(t)
	accounts[0].Operations = []types.Operation{{ID: "op-1", AccountID: "btc-1", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}}
	accounts[0].SwapHistory = []types.SwapOperation{{Provider: "changelly", SwapID: "s1", ReceiverAccountID: "eth-1", TokenID: "eth-1-usdc", OperationID: "op-1"}}

	sections := ProjectAccounts(accounts)
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Data, 1)
	assert.Equal(t, "eth-1-usdc", sections[0].Data[0].ToAccount.ID)
}
