package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"swap-aggregator/pkg/metrics"
	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/types"
)

const defaultMaxConcurrency = 8

// ProviderSource exposes the registered providers
type ProviderSource interface {
	List() []provider.Provider
	Get(name string) (provider.Provider, error)
}

// ProvidersFetcher lists the providers available right now
type ProvidersFetcher interface {
	FetchAvailableProviders(ctx context.Context) ([]types.AvailableProvider, error)
}

// Aggregator fans out to every registered provider and merges their availability
type Aggregator struct {
	providers      ProviderSource
	disabled       DisabledSource
	weights        map[string]int
	maxConcurrency int
	metrics        *metrics.Metrics
	log            zerolog.Logger
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithWeights replaces the default weight table
func WithWeights(weights map[string]int) AggregatorOption {
	return func(a *Aggregator) { a.weights = weights }
}

// WithAggregatorConcurrency bounds the number of providers queried at once
func WithAggregatorConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxConcurrency = n
		}
	}
}

// WithAggregatorMetrics records the size of each aggregation
func WithAggregatorMetrics(m *metrics.Metrics) AggregatorOption {
	return func(a *Aggregator) { a.metrics = m }
}

// NewAggregator creates an aggregator. A nil disabled source disables nothing.
func NewAggregator(providers ProviderSource, disabled DisabledSource, log zerolog.Logger, opts ...AggregatorOption) *Aggregator {
	if disabled == nil {
		disabled = StaticDisabled("")
	}
	a := &Aggregator{
		providers:      providers,
		disabled:       disabled,
		weights:        DefaultWeights,
		maxConcurrency: defaultMaxConcurrency,
		log:            log.With().Str("component", "aggregator").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchAvailableProviders queries every provider concurrently, drops the failing and the
// disabled ones and returns the rest sorted by weight. It fails only when every provider failed.
func (a *Aggregator) FetchAvailableProviders(ctx context.Context) ([]types.AvailableProvider, error) {
	list := a.providers.List()
	results := make([]*types.AvailableProvider, len(list))
	errs := make([]error, len(list))

	start := time.Now()

	var g errgroup.Group
	g.SetLimit(a.maxConcurrency)
	for i, p := range list {
		i, p := i, p
		g.Go(func() error {
			pairs, currencies, err := p.Pairs(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, p.Name(), err)
				a.log.Warn().Err(err).Str("provider", p.Name()).Msg("Provider dropped")
				return nil
			}
			if len(currencies) == 0 {
				currencies = types.CurrenciesFromPairs(pairs)
			}
			results[i] = &types.AvailableProvider{
				Provider:            p.Name(),
				SupportedCurrencies: currencies,
				Pairs:               pairs,
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	available := make([]types.AvailableProvider, 0, len(list))
	var failures []error
	for i := range list {
		if results[i] != nil {
			available = append(available, *results[i])
		} else {
			failures = append(failures, errs[i])
		}
	}
	if len(list) > 0 && len(available) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAggregationFailed, errors.Join(failures...))
	}

	available = FilterDisabled(available, a.disabled.DisabledProviders())
	SortByWeight(available, a.weights)

	a.metrics.SetProvidersLoaded(len(available))
	a.log.Debug().
		Int("queried", len(list)).
		Int("failed", len(failures)).
		Int("available", len(available)).
		Dur("elapsed", time.Since(start)).
		Msg("Providers aggregated")

	return available, nil
}

var _ ProvidersFetcher = (*Aggregator)(nil)
