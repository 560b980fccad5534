package swap

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/types"
)

const (
	ratePrecision      = 18
	magnitudePrecision = 30
)

// NormalizeQuote converts a provider-native quote into an ExchangeRate.
//
// fromBase is the amount sent, in base units of from. The display rate is AmountTo/AmountFrom;
// ToAmount is expressed in base units of to (rounded down), net of payout fees for float rates,
// and MagnitudeAwareRate relates base units of both sides. Quotes without an expiry get fallbackExpiry.
func NormalizeQuote(providerName string, from, to types.Currency, fromBase decimal.Decimal, q provider.Quote, fallbackExpiry time.Time) (types.ExchangeRate, error) {
	if !q.TradeMethod.Valid() {
		return types.ExchangeRate{}, fmt.Errorf("%w: %s: unknown trade method '%s'", ErrInvalidQuote, providerName, q.TradeMethod)
	}
	if q.AmountFrom.Sign() <= 0 || q.AmountTo.Sign() <= 0 {
		return types.ExchangeRate{}, fmt.Errorf("%w: %s: non-positive amounts %s -> %s", ErrInvalidQuote, providerName, q.AmountFrom, q.AmountTo)
	}
	if q.PayoutNetworkFees.Sign() < 0 {
		return types.ExchangeRate{}, fmt.Errorf("%w: %s: negative payout fees", ErrInvalidQuote, providerName)
	}
	if fromBase.Sign() <= 0 {
		return types.ExchangeRate{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if q.TradeMethod == types.TradeMethodFixed && q.RateID == "" {
		return types.ExchangeRate{}, fmt.Errorf("%w: %s: fixed quote without rate id", ErrInvalidQuote, providerName)
	}

	toDisplay := q.AmountTo
	var payoutFees *decimal.Decimal
	if q.TradeMethod == types.TradeMethodFloat {
		toDisplay = toDisplay.Sub(q.PayoutNetworkFees)
		fees := q.PayoutNetworkFees
		payoutFees = &fees
	}

	toAmount := to.ToBaseUnits(toDisplay)
	if toAmount.Sign() <= 0 {
		return types.ExchangeRate{}, fmt.Errorf("%w: %s: payout fees exceed the quoted amount", ErrInvalidQuote, providerName)
	}

	expiresAt := q.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = fallbackExpiry
	}

	return types.ExchangeRate{
		Rate:               q.AmountTo.DivRound(q.AmountFrom, ratePrecision),
		MagnitudeAwareRate: toAmount.DivRound(fromBase, magnitudePrecision),
		PayoutNetworkFees:  payoutFees,
		ToAmount:           toAmount,
		RateID:             q.RateID,
		Provider:           providerName,
		TradeMethod:        q.TradeMethod,
		ProviderURL:        q.ProviderURL,
		ExpiresAt:          expiresAt,
	}, nil
}
