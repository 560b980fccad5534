package swap

import (
	"errors"

	"swap-aggregator/pkg/types"
)

var (
	// ErrProviderUnavailable is returned when a provider call fails at the transport level
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAggregationFailed is returned when no provider could be listed at all
	ErrAggregationFailed = errors.New("provider aggregation failed")

	// ErrRateExpired is returned when initiating with a fixed rate past its validity
	ErrRateExpired = errors.New("rate expired")

	// ErrUnsupportedPair is returned when no available provider serves the pair
	ErrUnsupportedPair = errors.New("unsupported currency pair")

	// ErrUnknownStatus is set on a status entry whose raw provider status has no mapping
	ErrUnknownStatus = errors.New("unknown swap status")

	// ErrInitiationRejected is returned when the provider or the device refuses the swap
	ErrInitiationRejected = errors.New("swap initiation rejected")

	// ErrInvalidQuote is set on a rate entry whose provider quote cannot be normalized
	ErrInvalidQuote = errors.New("invalid provider quote")

	// ErrUnmounted is returned by a providers holder that was torn down
	ErrUnmounted = errors.New("providers holder unmounted")

	// ErrInvalidInput is returned for malformed exchanges or transactions
	ErrInvalidInput = errors.New("invalid input")
)

func init() {
	for name, err := range map[string]error{
		"provider_unavailable": ErrProviderUnavailable,
		"aggregation_failed":   ErrAggregationFailed,
		"rate_expired":         ErrRateExpired,
		"unsupported_pair":     ErrUnsupportedPair,
		"unknown_status":       ErrUnknownStatus,
		"initiation_rejected":  ErrInitiationRejected,
		"invalid_quote":        ErrInvalidQuote,
		"unmounted":            ErrUnmounted,
		"invalid_input":        ErrInvalidInput,
	} {
		types.RegisterErrorKind(name, err)
	}
}
