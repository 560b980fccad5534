package swap

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/types"
)

func TestSwapState_Transitions(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var s SwapState

	s = s.SelectFromAccount(btcAccount(t), nil)
	s = s.SelectToAccount(ethAccount(t), nil)
	s = s.SetAmount(oneBTC)

	exchange, err := s.Exchange()
	require.NoError(t, err)
	assert.Equal(t, "btc-1", exchange.FromAccount.ID)
	assert.Equal(t, "eth-1", exchange.ToAccount.ID)

	s = s.RatesRequested()
	assert.True(t, s.RatesLoading)

	fixed := types.ExchangeRate{Provider: "changelly", TradeMethod: types.TradeMethodFixed, RateID: "r", ToAmount: decimal.NewFromInt(5), ExpiresAt: now.Add(time.Minute)}
	rates := []types.ExchangeRate{
		{Provider: "kraken", Error: errors.New("down")},
		fixed,
	}
	s = s.RatesLoaded(rates, now)
	assert.False(t, s.RatesLoading)
	require.NotNil(t, s.SelectedRate)
	assert.Equal(t, "changelly", s.SelectedRate.Provider)
	assert.True(t, s.RatesExpiration.Equal(now.Add(time.Minute)))

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))

	s = s.SelectToCurrency(mustCurrency(t, "solana"))
	assert.Nil(t, s.ToAccount)
	assert.Nil(t, s.SelectedRate)
	assert.Nil(t, s.Rates)
	_, err = s.Exchange()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSwapState_RatesLoadedAllFailed(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	boom := errors.New("down")

	s := SwapState{}.RatesLoaded([]types.ExchangeRate{{Provider: "kraken", Error: boom}}, now)
	assert.Nil(t, s.SelectedRate)
	assert.ErrorIs(t, s.RatesError, boom)
	assert.True(t, s.RatesExpiration.Equal(now.Add(DefaultRateTTL)))
}

func TestSwapState_SelectFromCurrencyKeepsMatchingAccount(t *testing.T) {
	s := SwapState{}.SelectFromAccount(btcAccount(t), nil)

	kept := s.SelectFromCurrency(mustCurrency(t, "bitcoin"))
	require.NotNil(t, kept.FromAccount)

	cleared := s.SelectFromCurrency(mustCurrency(t, "ethereum"))
	assert.Nil(t, cleared.FromAccount)
	require.NotNil(t, s.FromAccount, "receiver unchanged")
}

func TestSwapState_RatesFailed(t *testing.T) {
	boom := errors.New("boom")
	s := SwapState{}.RatesRequested().RatesFailed(boom)
	assert.False(t, s.RatesLoading)
	assert.ErrorIs(t, s.RatesError, boom)
}
