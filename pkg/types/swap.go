package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount       string
	UseAllAmount bool
	SourceToken  string
	DestToken    string
	SourceChain  string
	DestChain    string
}

// CurrencyPair is a (from, to) direction supported by a provider for a trade method
type CurrencyPair struct {
	From        string      `json:"from"`
	To          string      `json:"to"`
	TradeMethod TradeMethod `json:"trade_method"`
}

// AvailableProvider is a snapshot of a provider's availability
type AvailableProvider struct {
	Provider            string         `json:"provider"`
	SupportedCurrencies []string       `json:"supported_currencies"`
	Pairs               []CurrencyPair `json:"pairs,omitempty"`
}

// Supports reports whether the provider can swap from -> to.
// Explicit pairs win; otherwise any two distinct supported currencies form a pair.
func (p AvailableProvider) Supports(from, to string) bool {
	if from == to {
		return false
	}
	if len(p.Pairs) > 0 {
		for _, pair := range p.Pairs {
			if pair.From == from && pair.To == to {
				return true
			}
		}
		return false
	}

	var hasFrom, hasTo bool
	for _, c := range p.SupportedCurrencies {
		hasFrom = hasFrom || c == from
		hasTo = hasTo || c == to
	}
	return hasFrom && hasTo
}

// CurrenciesFromPairs returns the distinct currencies referenced by pairs, in first-seen order
func CurrenciesFromPairs(pairs []CurrencyPair) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range pairs {
		for _, c := range []string{p.From, p.To} {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// InitSwapInput is everything needed to initiate a swap
type InitSwapInput struct {
	Exchange     Exchange        `json:"exchange"`
	ExchangeRate ExchangeRate    `json:"exchange_rate"`
	Transaction  SwapTransaction `json:"transaction"`
	DeviceID     string          `json:"device_id"`
}

// InitSwapInputRaw is the serialized form of InitSwapInput
type InitSwapInputRaw struct {
	Exchange     ExchangeRaw     `json:"exchange"`
	ExchangeRate ExchangeRateRaw `json:"exchange_rate"`
	Transaction  TransactionRaw  `json:"transaction"`
	DeviceID     string          `json:"device_id"`
}

// ToRaw converts the input to its serialized form
func (in InitSwapInput) ToRaw() InitSwapInputRaw {
	return InitSwapInputRaw{
		Exchange:     in.Exchange.ToRaw(),
		ExchangeRate: in.ExchangeRate.ToRaw(),
		Transaction:  in.Transaction.ToRaw(),
		DeviceID:     in.DeviceID,
	}
}

// FromRaw decodes a serialized input
func (raw InitSwapInputRaw) FromRaw() (InitSwapInput, error) {
	exchange, err := raw.Exchange.FromRaw()
	if err != nil {
		return InitSwapInput{}, err
	}
	rate, err := raw.ExchangeRate.FromRaw()
	if err != nil {
		return InitSwapInput{}, err
	}
	tx, err := raw.Transaction.FromRaw()
	if err != nil {
		return InitSwapInput{}, err
	}
	return InitSwapInput{
		Exchange:     exchange,
		ExchangeRate: rate,
		Transaction:  tx,
		DeviceID:     raw.DeviceID,
	}, nil
}

// InitSwapResult is produced once per successful initiation.
// SwapID is the correlation key for all later status tracking.
type InitSwapResult struct {
	Transaction SwapTransaction `json:"transaction"`
	SwapID      string          `json:"swap_id"`
}

// ValidSwapStatus is the closed set of statuses a swap can be in
type ValidSwapStatus string

const (
	SwapStatusPending  ValidSwapStatus = "pending"
	SwapStatusOnHold   ValidSwapStatus = "onhold"
	SwapStatusExpired  ValidSwapStatus = "expired"
	SwapStatusFinished ValidSwapStatus = "finished"
	SwapStatusRefunded ValidSwapStatus = "refunded"
)

// ParseSwapStatus accepts only the five canonical statuses
func ParseSwapStatus(s string) (ValidSwapStatus, error) {
	switch status := ValidSwapStatus(s); status {
	case SwapStatusPending, SwapStatusOnHold, SwapStatusExpired, SwapStatusFinished, SwapStatusRefunded:
		return status, nil
	default:
		return "", fmt.Errorf("invalid swap status '%s'", s)
	}
}

// IsTerminal returns true once polling for the swap may stop
func (s ValidSwapStatus) IsTerminal() bool {
	return s == SwapStatusFinished || s == SwapStatusExpired || s == SwapStatusRefunded
}

// SwapStatusRequest asks a provider for the status of one swap
type SwapStatusRequest struct {
	Provider string `json:"provider"`
	SwapID   string `json:"swap_id"`
}

// SwapStatus is the mapped status of one swap. Err is set when the entry
// could not be resolved; Status is empty in that case.
type SwapStatus struct {
	Provider string          `json:"provider"`
	SwapID   string          `json:"swap_id"`
	Status   ValidSwapStatus `json:"status,omitempty"`
	Err      error           `json:"-"`
}

// SwapOperation is the durable record of an executed swap
type SwapOperation struct {
	Provider          string          `json:"provider"`
	SwapID            string          `json:"swap_id"`
	Status            string          `json:"status"`
	ReceiverAccountID string          `json:"receiver_account_id"`
	TokenID           string          `json:"token_id,omitempty"`
	OperationID       string          `json:"operation_id"`
	FromAmount        decimal.Decimal `json:"from_amount"`
	ToAmount          decimal.Decimal `json:"to_amount"`
}

// IsTerminal returns true if the recorded status no longer needs polling
func (o SwapOperation) IsTerminal() bool {
	status, err := ParseSwapStatus(o.Status)
	return err == nil && status.IsTerminal()
}

// SwapOperationRaw is the serialized form of SwapOperation
type SwapOperationRaw struct {
	Provider          string `json:"provider"`
	SwapID            string `json:"swap_id"`
	Status            string `json:"status"`
	ReceiverAccountID string `json:"receiver_account_id"`
	TokenID           string `json:"token_id,omitempty"`
	OperationID       string `json:"operation_id"`
	FromAmount        string `json:"from_amount"`
	ToAmount          string `json:"to_amount"`
}

// ToRaw converts the swap operation to its serialized form
func (o SwapOperation) ToRaw() SwapOperationRaw {
	return SwapOperationRaw{
		Provider:          o.Provider,
		SwapID:            o.SwapID,
		Status:            o.Status,
		ReceiverAccountID: o.ReceiverAccountID,
		TokenID:           o.TokenID,
		OperationID:       o.OperationID,
		FromAmount:        o.FromAmount.String(),
		ToAmount:          o.ToAmount.String(),
	}
}

// FromRaw decodes a serialized swap operation
func (raw SwapOperationRaw) FromRaw() (SwapOperation, error) {
	fromAmount, err := parseDecimal(raw.FromAmount)
	if err != nil {
		return SwapOperation{}, fmt.Errorf("swap %s: from amount: %w", raw.SwapID, err)
	}
	toAmount, err := parseDecimal(raw.ToAmount)
	if err != nil {
		return SwapOperation{}, fmt.Errorf("swap %s: to amount: %w", raw.SwapID, err)
	}
	return SwapOperation{
		Provider:          raw.Provider,
		SwapID:            raw.SwapID,
		Status:            raw.Status,
		ReceiverAccountID: raw.ReceiverAccountID,
		TokenID:           raw.TokenID,
		OperationID:       raw.OperationID,
		FromAmount:        fromAmount,
		ToAmount:          toAmount,
	}, nil
}

// MappedSwapOperation joins a swap operation with its wallet operation for display
type MappedSwapOperation struct {
	FromAccount       Account         `json:"from_account"`
	FromParentAccount *Account        `json:"from_parent_account,omitempty"`
	ToAccount         Account         `json:"to_account"`
	ToParentAccount   *Account        `json:"to_parent_account,omitempty"`
	ToExists          bool            `json:"to_exists"`
	Operation         Operation       `json:"operation"`
	Provider          string          `json:"provider"`
	SwapID            string          `json:"swap_id"`
	Status            string          `json:"status"`
	FromAmount        decimal.Decimal `json:"from_amount"`
	ToAmount          decimal.Decimal `json:"to_amount"`
}

// SwapHistorySection groups mapped swap operations of one calendar day
type SwapHistorySection struct {
	Day  time.Time             `json:"day"`
	Data []MappedSwapOperation `json:"data"`
}

// SwapRequestEventType tags the events emitted by the initiation flow
type SwapRequestEventType string

const (
	EventInitSwapRequested SwapRequestEventType = "init-swap-requested"
	EventInitSwapError     SwapRequestEventType = "init-swap-error"
	EventInitSwapResult    SwapRequestEventType = "init-swap-result"
)

// SwapRequestEvent is a tagged variant; only the fields of its Type are set
type SwapRequestEvent struct {
	Type SwapRequestEventType

	// init-swap-requested
	AmountExpectedTo string
	EstimatedFees    decimal.Decimal

	// init-swap-error
	Error error

	// init-swap-result
	InitSwapResult *InitSwapResult
}
