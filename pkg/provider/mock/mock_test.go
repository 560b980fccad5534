package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/types"
)

func currency(t *testing.T, id string) types.Currency {
	t.Helper()
	c, err := types.FindCurrency(id)
	require.NoError(t, err)
	return c
}

func TestProvider_Pairs(t *testing.T) {
	p := New("changelly")

	pairs, currencies, err := p.Pairs(context.Background())
	require.NoError(t, err)
	assert.Len(t, pairs, 4)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, currencies)
	assert.Equal(t, 1, p.PairsCalls())
}

func TestProvider_PairsHookError(t *testing.T) {
	boom := errors.New("boom")
	p := New("wyre", WithPairsHook(func(context.Context) error { return boom }))

	_, _, err := p.Pairs(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestProvider_QuoteOnePerTradeMethod(t *testing.T) {
	p := New("changelly",
		WithRate("bitcoin", "ethereum", decimal.NewFromInt(15)),
		WithPayoutFee(decimal.RequireFromString("0.01")),
	)

	quotes, err := p.Quote(context.Background(), provider.QuoteRequest{
		From:   currency(t, "bitcoin"),
		To:     currency(t, "ethereum"),
		Amount: decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	for _, q := range quotes {
		assert.True(t, q.AmountTo.Equal(decimal.RequireFromString("7.5")))
		switch q.TradeMethod {
		case types.TradeMethodFixed:
			assert.NotEmpty(t, q.RateID)
			assert.False(t, q.ExpiresAt.IsZero())
		case types.TradeMethodFloat:
			assert.Empty(t, q.RateID)
			assert.True(t, q.PayoutNetworkFees.Equal(decimal.RequireFromString("0.01")))
		default:
			t.Fatalf("unexpected trade method %s", q.TradeMethod)
		}
	}
}

func TestProvider_QuoteUnsupportedPair(t *testing.T) {
	p := New("changelly")

	_, err := p.Quote(context.Background(), provider.QuoteRequest{
		From:   currency(t, "solana"),
		To:     currency(t, "bitcoin"),
		Amount: decimal.NewFromInt(1),
	})
	assert.Error(t, err)
}

func TestProvider_CreateSwapAndStatuses(t *testing.T) {
	p := New("changelly")
	ctx := context.Background()

	created, err := p.CreateSwap(ctx, provider.CreateSwapRequest{
		From:   currency(t, "bitcoin"),
		To:     currency(t, "ethereum"),
		Amount: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.SwapID)
	assert.Contains(t, created.PayinAddress, "mock-payin-")

	statuses, err := p.Statuses(ctx, []string{created.SwapID, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{created.SwapID: StatusWaiting}, statuses)

	p.SetStatus(created.SwapID, StatusFinished)
	statuses, err = p.Statuses(ctx, []string{created.SwapID})
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, statuses[created.SwapID])
	assert.Equal(t, 2, p.StatusCalls())
}

func TestProvider_PayinAddressFollowsSendingChain(t *testing.T) {
	p := New("changelly")
	ctx := context.Background()

	created, err := p.CreateSwap(ctx, provider.CreateSwapRequest{
		From:   currency(t, "ethereum"),
		To:     currency(t, "bitcoin"),
		Amount: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.True(t, common.IsHexAddress(created.PayinAddress))

	created, err = p.CreateSwap(ctx, provider.CreateSwapRequest{
		From:   currency(t, "solana"),
		To:     currency(t, "bitcoin"),
		Amount: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	_, err = solana.PublicKeyFromBase58(created.PayinAddress)
	assert.NoError(t, err)
}

func TestProvider_UnknownStatus(t *testing.T) {
	p := New("wyre", WithUnknownStatus(StatusFinished))

	statuses, err := p.Statuses(context.Background(), []string{"from-earlier-run"})
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, statuses["from-earlier-run"])
}

func TestProvider_CreateSwapRejectsNonPositiveAmount(t *testing.T) {
	p := New("changelly")

	_, err := p.CreateSwap(context.Background(), provider.CreateSwapRequest{Amount: decimal.Zero})
	assert.ErrorIs(t, err, provider.ErrSwapRejected)
}

func TestProvider_InjectedErrors(t *testing.T) {
	boom := errors.New("down")
	p := New("kraken", WithQuoteError(boom), WithCreateError(boom), WithStatusError(boom))
	ctx := context.Background()

	_, err := p.Quote(ctx, provider.QuoteRequest{})
	assert.ErrorIs(t, err, boom)
	_, err = p.CreateSwap(ctx, provider.CreateSwapRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, boom)
	_, err = p.Statuses(ctx, []string{"x"})
	assert.ErrorIs(t, err, boom)
}
