package swap

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/types"
)

func TestNormalizeQuote_Float(t *testing.T) {
	btc, eth := mustCurrency(t, "bitcoin"), mustCurrency(t, "ethereum")
	fallback := time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC)

	rate, err := NormalizeQuote("wyre", btc, eth, oneBTC, provider.Quote{
		TradeMethod:       types.TradeMethodFloat,
		AmountFrom:        decimal.NewFromInt(1),
		AmountTo:          decimal.NewFromInt(15),
		PayoutNetworkFees: decimal.RequireFromString("0.01"),
		ProviderURL:       "https://wyre.example",
	}, fallback)
	require.NoError(t, err)

	assert.Equal(t, "15", rate.Rate.String())
	assert.Equal(t, "14990000000000000000", rate.ToAmount.String())
	assert.Equal(t, "149900000000", rate.MagnitudeAwareRate.String())
	require.NotNil(t, rate.PayoutNetworkFees)
	assert.Equal(t, "0.01", rate.PayoutNetworkFees.String())
	assert.Equal(t, "wyre", rate.Provider)
	assert.Equal(t, types.TradeMethodFloat, rate.TradeMethod)
	assert.Equal(t, "https://wyre.example", rate.ProviderURL)
	assert.True(t, rate.ExpiresAt.Equal(fallback))
	assert.Empty(t, rate.RateID)
}

func TestNormalizeQuote_Fixed(t *testing.T) {
	eth, btc := mustCurrency(t, "ethereum"), mustCurrency(t, "bitcoin")
	expires := time.Date(2024, 3, 1, 12, 0, 30, 0, time.UTC)

	// 2 ETH -> 0.13 BTC, payout fees are ignored on fixed rates
	rate, err := NormalizeQuote("changelly", eth, btc, decimal.RequireFromString("2000000000000000000"), provider.Quote{
		TradeMethod:       types.TradeMethodFixed,
		AmountFrom:        decimal.NewFromInt(2),
		AmountTo:          decimal.RequireFromString("0.13"),
		PayoutNetworkFees: decimal.RequireFromString("0.001"),
		RateID:            "rate-7",
		ExpiresAt:         expires,
	}, expires.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "0.065", rate.Rate.String())
	assert.Equal(t, "13000000", rate.ToAmount.String())
	assert.Equal(t, "0.0000000000065", rate.MagnitudeAwareRate.String())
	assert.Nil(t, rate.PayoutNetworkFees)
	assert.Equal(t, "rate-7", rate.RateID)
	assert.True(t, rate.ExpiresAt.Equal(expires))
}

func TestNormalizeQuote_FloorsToBaseUnits(t *testing.T) {
	eth, usdc := mustCurrency(t, "ethereum"), mustCurrency(t, "ethereum/erc20/usdc")

	rate, err := NormalizeQuote("changelly", eth, usdc, decimal.RequireFromString("1000000000000000000"), provider.Quote{
		TradeMethod: types.TradeMethodFloat,
		AmountFrom:  decimal.NewFromInt(1),
		AmountTo:    decimal.RequireFromString("3012.4567899"),
	}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "3012456789", rate.ToAmount.String())
}

func TestNormalizeQuote_Invalid(t *testing.T) {
	btc, eth := mustCurrency(t, "bitcoin"), mustCurrency(t, "ethereum")
	valid := provider.Quote{
		TradeMethod: types.TradeMethodFloat,
		AmountFrom:  decimal.NewFromInt(1),
		AmountTo:    decimal.NewFromInt(15),
	}

	tests := []struct {
		name     string
		mutate   func(q *provider.Quote)
		fromBase decimal.Decimal
		wantErr  error
	}{
		{"zero amount from", func(q *provider.Quote) { q.AmountFrom = decimal.Zero }, oneBTC, ErrInvalidQuote},
		{"negative amount to", func(q *provider.Quote) { q.AmountTo = decimal.NewFromInt(-1) }, oneBTC, ErrInvalidQuote},
		{"negative fees", func(q *provider.Quote) { q.PayoutNetworkFees = decimal.NewFromInt(-1) }, oneBTC, ErrInvalidQuote},
		{"fees exceed amount", func(q *provider.Quote) { q.PayoutNetworkFees = decimal.NewFromInt(15) }, oneBTC, ErrInvalidQuote},
		{"unknown trade method", func(q *provider.Quote) { q.TradeMethod = "limit" }, oneBTC, ErrInvalidQuote},
		{"fixed without rate id", func(q *provider.Quote) { q.TradeMethod = types.TradeMethodFixed }, oneBTC, ErrInvalidQuote},
		{"zero sent amount", func(q *provider.Quote) {}, decimal.Zero, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mutate(&q)
			_, err := NormalizeQuote("wyre", btc, eth, tt.fromBase, q, time.Time{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
