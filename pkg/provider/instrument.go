package provider

import (
	"context"
	"time"

	"swap-aggregator/pkg/types"
)

// Observer receives the outcome of every provider call
type Observer interface {
	ObserveProviderCall(provider, operation string, elapsed time.Duration, err error)
}

// Instrumented wraps a provider and reports each call to an Observer
type Instrumented struct {
	next     Provider
	observer Observer
}

// Instrument decorates p; a nil observer returns p unchanged
func Instrument(p Provider, observer Observer) Provider {
	if observer == nil {
		return p
	}
	return &Instrumented{next: p, observer: observer}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	i.observer.ObserveProviderCall(i.next.Name(), op, time.Since(start), err)
}

// Name returns the wrapped provider's name
func (i *Instrumented) Name() string {
	return i.next.Name()
}

// Pairs delegates to the wrapped provider
func (i *Instrumented) Pairs(ctx context.Context) ([]types.CurrencyPair, []string, error) {
	start := time.Now()
	pairs, currencies, err := i.next.Pairs(ctx)
	i.observe("pairs", start, err)
	return pairs, currencies, err
}

// Quote delegates to the wrapped provider
func (i *Instrumented) Quote(ctx context.Context, req QuoteRequest) ([]Quote, error) {
	start := time.Now()
	quotes, err := i.next.Quote(ctx, req)
	i.observe("quote", start, err)
	return quotes, err
}

// CreateSwap delegates to the wrapped provider
func (i *Instrumented) CreateSwap(ctx context.Context, req CreateSwapRequest) (*CreatedSwap, error) {
	start := time.Now()
	created, err := i.next.CreateSwap(ctx, req)
	i.observe("create_swap", start, err)
	return created, err
}

// Statuses delegates to the wrapped provider
func (i *Instrumented) Statuses(ctx context.Context, swapIDs []string) (map[string]string, error) {
	start := time.Now()
	statuses, err := i.next.Statuses(ctx, swapIDs)
	i.observe("statuses", start, err)
	return statuses, err
}

var _ Provider = (*Instrumented)(nil)
