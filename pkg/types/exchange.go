package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeMethod defines how a rate is honoured by the provider
type TradeMethod string

const (
	TradeMethodFixed TradeMethod = "fixed" // Rate locked until RateID expires
	TradeMethodFloat TradeMethod = "float" // Indicative rate, settled at execution time
)

// Valid returns true for the two known trade methods
func (m TradeMethod) Valid() bool {
	return m == TradeMethodFixed || m == TradeMethodFloat
}

// Exchange identifies the two wallet endpoints of a swap
type Exchange struct {
	FromAccount       Account  `json:"from_account"`
	FromParentAccount *Account `json:"from_parent_account,omitempty"`
	ToAccount         Account  `json:"to_account"`
	ToParentAccount   *Account `json:"to_parent_account,omitempty"`
}

// ExchangeRaw is the serialized form of Exchange
type ExchangeRaw struct {
	FromAccount       AccountRaw  `json:"from_account"`
	FromParentAccount *AccountRaw `json:"from_parent_account,omitempty"`
	ToAccount         AccountRaw  `json:"to_account"`
	ToParentAccount   *AccountRaw `json:"to_parent_account,omitempty"`
}

// ToRaw converts the exchange to its serialized form
func (e Exchange) ToRaw() ExchangeRaw {
	raw := ExchangeRaw{
		FromAccount: e.FromAccount.ToRaw(),
		ToAccount:   e.ToAccount.ToRaw(),
	}
	if e.FromParentAccount != nil {
		p := e.FromParentAccount.ToRaw()
		raw.FromParentAccount = &p
	}
	if e.ToParentAccount != nil {
		p := e.ToParentAccount.ToRaw()
		raw.ToParentAccount = &p
	}
	return raw
}

// FromRaw decodes a serialized exchange
func (raw ExchangeRaw) FromRaw() (Exchange, error) {
	from, err := raw.FromAccount.FromRaw()
	if err != nil {
		return Exchange{}, fmt.Errorf("from account: %w", err)
	}
	to, err := raw.ToAccount.FromRaw()
	if err != nil {
		return Exchange{}, fmt.Errorf("to account: %w", err)
	}

	e := Exchange{FromAccount: from, ToAccount: to}
	if raw.FromParentAccount != nil {
		p, err := raw.FromParentAccount.FromRaw()
		if err != nil {
			return Exchange{}, fmt.Errorf("from parent account: %w", err)
		}
		e.FromParentAccount = &p
	}
	if raw.ToParentAccount != nil {
		p, err := raw.ToParentAccount.FromRaw()
		if err != nil {
			return Exchange{}, fmt.Errorf("to parent account: %w", err)
		}
		e.ToParentAccount = &p
	}
	return e, nil
}

// ExchangeRate is a normalized quote from a single provider.
// Either the numeric fields or Error are meaningful, never both.
type ExchangeRate struct {
	Rate               decimal.Decimal  `json:"rate"`                 // display rate
	MagnitudeAwareRate decimal.Decimal  `json:"magnitude_aware_rate"` // rate between base units
	PayoutNetworkFees  *decimal.Decimal `json:"payout_network_fees,omitempty"`
	ToAmount           decimal.Decimal  `json:"to_amount"` // base units of the destination currency
	RateID             string           `json:"rate_id,omitempty"`
	Provider           string           `json:"provider"`
	TradeMethod        TradeMethod      `json:"trade_method"`
	Error              error            `json:"-"`
	ProviderURL        string           `json:"provider_url,omitempty"`
	ExpiresAt          time.Time        `json:"expires_at,omitempty"`
}

// IsExpired reports whether a fixed rate is past its validity window.
// Float rates never expire: they are indicative only.
func (r ExchangeRate) IsExpired(now time.Time) bool {
	if r.TradeMethod != TradeMethodFixed || r.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(r.ExpiresAt)
}

// ExchangeRateRaw is the serialized form of ExchangeRate
type ExchangeRateRaw struct {
	Rate               string      `json:"rate"`
	MagnitudeAwareRate string      `json:"magnitude_aware_rate"`
	PayoutNetworkFees  string      `json:"payout_network_fees,omitempty"`
	ToAmount           string      `json:"to_amount"`
	RateID             string      `json:"rate_id,omitempty"`
	Provider           string      `json:"provider"`
	TradeMethod        TradeMethod `json:"trade_method"`
	Error              string      `json:"error,omitempty"`
	ErrorKind          string      `json:"error_kind,omitempty"` // registered sentinel name, see RegisterErrorKind
	ProviderURL        string      `json:"provider_url,omitempty"`
	ExpiresAt          time.Time   `json:"expires_at,omitempty"`
}

// ToRaw converts the rate to its serialized form
func (r ExchangeRate) ToRaw() ExchangeRateRaw {
	raw := ExchangeRateRaw{
		Rate:               r.Rate.String(),
		MagnitudeAwareRate: r.MagnitudeAwareRate.String(),
		ToAmount:           r.ToAmount.String(),
		RateID:             r.RateID,
		Provider:           r.Provider,
		TradeMethod:        r.TradeMethod,
		ProviderURL:        r.ProviderURL,
		ExpiresAt:          r.ExpiresAt,
	}
	if r.PayoutNetworkFees != nil {
		raw.PayoutNetworkFees = r.PayoutNetworkFees.String()
	}
	if r.Error != nil {
		raw.Error = r.Error.Error()
		raw.ErrorKind = errorKindOf(r.Error)
	}
	return raw
}

// FromRaw decodes a serialized rate
func (raw ExchangeRateRaw) FromRaw() (ExchangeRate, error) {
	rate, err := parseDecimal(raw.Rate)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("rate: %w", err)
	}
	magnitudeAwareRate, err := parseDecimal(raw.MagnitudeAwareRate)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("magnitude aware rate: %w", err)
	}
	toAmount, err := parseDecimal(raw.ToAmount)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("to amount: %w", err)
	}

	r := ExchangeRate{
		Rate:               rate,
		MagnitudeAwareRate: magnitudeAwareRate,
		ToAmount:           toAmount,
		RateID:             raw.RateID,
		Provider:           raw.Provider,
		TradeMethod:        raw.TradeMethod,
		ProviderURL:        raw.ProviderURL,
		ExpiresAt:          raw.ExpiresAt,
	}
	if raw.PayoutNetworkFees != "" {
		fees, err := decimal.NewFromString(raw.PayoutNetworkFees)
		if err != nil {
			return ExchangeRate{}, fmt.Errorf("payout network fees: %w", err)
		}
		r.PayoutNetworkFees = &fees
	}
	if raw.Error != "" {
		r.Error = decodeError(raw.Error, raw.ErrorKind)
	}
	return r, nil
}
