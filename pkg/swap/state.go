package swap

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"swap-aggregator/pkg/types"
)

// SwapState is the transient session aggregate of a swap being prepared.
// Transitions return a new state and never mutate the receiver.
type SwapState struct {
	FromCurrency      *types.Currency
	ToCurrency        *types.Currency
	FromAccount       *types.Account
	FromParentAccount *types.Account
	ToAccount         *types.Account
	ToParentAccount   *types.Account
	Amount            decimal.Decimal // base units of FromCurrency

	Rates           []types.ExchangeRate
	RatesLoading    bool
	RatesError      error
	RatesExpiration time.Time
	SelectedRate    *types.ExchangeRate
}

func (s SwapState) clearRates() SwapState {
	s.Rates = nil
	s.RatesLoading = false
	s.RatesError = nil
	s.RatesExpiration = time.Time{}
	s.SelectedRate = nil
	return s
}

// SelectFromCurrency switches the source currency; the source account is kept only if it matches
func (s SwapState) SelectFromCurrency(c types.Currency) SwapState {
	s.FromCurrency = &c
	if s.FromAccount != nil && s.FromAccount.Currency.ID != c.ID {
		s.FromAccount = nil
		s.FromParentAccount = nil
	}
	return s.clearRates()
}

// SelectFromAccount picks the account funds are sent from
func (s SwapState) SelectFromAccount(account types.Account, parent *types.Account) SwapState {
	c := account.Currency
	s.FromCurrency = &c
	s.FromAccount = &account
	s.FromParentAccount = parent
	return s.clearRates()
}

// SelectToCurrency switches the destination currency and clears the destination account and rates
func (s SwapState) SelectToCurrency(c types.Currency) SwapState {
	s.ToCurrency = &c
	s.ToAccount = nil
	s.ToParentAccount = nil
	return s.clearRates()
}

// SelectToAccount picks the account receiving the swapped funds
func (s SwapState) SelectToAccount(account types.Account, parent *types.Account) SwapState {
	c := account.Currency
	s.ToCurrency = &c
	s.ToAccount = &account
	s.ToParentAccount = parent
	return s.clearRates()
}

// SetAmount sets the amount sent, in base units
func (s SwapState) SetAmount(amount decimal.Decimal) SwapState {
	s.Amount = amount
	return s.clearRates()
}

// RatesRequested marks rates as loading
func (s SwapState) RatesRequested() SwapState {
	s = s.clearRates()
	s.RatesLoading = true
	return s
}

// RatesLoaded stores the rates and selects the best successful one
func (s SwapState) RatesLoaded(rates []types.ExchangeRate, now time.Time) SwapState {
	s = s.clearRates()
	s.Rates = rates
	for i := range rates {
		if rates[i].Error == nil {
			selected := rates[i]
			s.SelectedRate = &selected
			s.RatesExpiration = selected.ExpiresAt
			break
		}
	}
	if s.SelectedRate == nil && len(rates) > 0 {
		s.RatesError = rates[0].Error
	}
	if s.RatesExpiration.IsZero() {
		s.RatesExpiration = now.Add(DefaultRateTTL)
	}
	return s
}

// RatesFailed records a failed rate request
func (s SwapState) RatesFailed(err error) SwapState {
	s = s.clearRates()
	s.RatesError = err
	return s
}

// SelectRate picks one of the loaded rates
func (s SwapState) SelectRate(rate types.ExchangeRate) SwapState {
	s.SelectedRate = &rate
	if !rate.ExpiresAt.IsZero() {
		s.RatesExpiration = rate.ExpiresAt
	}
	return s
}

// Expired reports whether the selected fixed rate can no longer be used
func (s SwapState) Expired(now time.Time) bool {
	return s.SelectedRate != nil && s.SelectedRate.IsExpired(now)
}

// Exchange returns the exchange once both accounts are selected
func (s SwapState) Exchange() (types.Exchange, error) {
	if s.FromAccount == nil || s.ToAccount == nil {
		return types.Exchange{}, fmt.Errorf("%w: both accounts must be selected", ErrInvalidInput)
	}
	return types.Exchange{
		FromAccount:       *s.FromAccount,
		FromParentAccount: s.FromParentAccount,
		ToAccount:         *s.ToAccount,
		ToParentAccount:   s.ToParentAccount,
	}, nil
}
