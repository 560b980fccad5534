package swap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"swap-aggregator/pkg/metrics"
	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/types"
)

// DefaultRateTTL is how long a rate stays valid when the provider does not say
const DefaultRateTTL = time.Minute

// RateFetcher requests quotes from every provider supporting a pair
type RateFetcher struct {
	providers      ProviderSource
	available      ProvidersFetcher
	ttl            time.Duration
	maxConcurrency int
	now            func() time.Time
	metrics        *metrics.Metrics
	log            zerolog.Logger
}

// RateFetcherOption configures a RateFetcher
type RateFetcherOption func(*RateFetcher)

// WithRateTTL sets the validity assigned to rates without a provider expiry
func WithRateTTL(ttl time.Duration) RateFetcherOption {
	return func(f *RateFetcher) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// WithRateConcurrency bounds the number of providers quoted at once
func WithRateConcurrency(n int) RateFetcherOption {
	return func(f *RateFetcher) {
		if n > 0 {
			f.maxConcurrency = n
		}
	}
}

// WithRateClock overrides the clock used to stamp expiries
func WithRateClock(now func() time.Time) RateFetcherOption {
	return func(f *RateFetcher) { f.now = now }
}

// WithRateMetrics records every returned rate
func WithRateMetrics(m *metrics.Metrics) RateFetcherOption {
	return func(f *RateFetcher) { f.metrics = m }
}

// NewRateFetcher creates a rate fetcher. available decides which providers are eligible,
// providers resolves them for quoting.
func NewRateFetcher(providers ProviderSource, available ProvidersFetcher, log zerolog.Logger, opts ...RateFetcherOption) *RateFetcher {
	f := &RateFetcher{
		providers:      providers,
		available:      available,
		ttl:            DefaultRateTTL,
		maxConcurrency: defaultMaxConcurrency,
		now:            time.Now,
		log:            log.With().Str("component", "rate_fetcher").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchRates quotes every eligible provider for the exchange. Successful rates come first,
// best ToAmount first; each failing provider contributes one entry carrying its Error.
func (f *RateFetcher) FetchRates(ctx context.Context, exchange types.Exchange, tx types.Transaction) ([]types.ExchangeRate, error) {
	from := exchange.FromAccount.Currency
	to := exchange.ToAccount.Currency

	amount, err := validateExchange(exchange, tx)
	if err != nil {
		return nil, err
	}

	available, err := f.available.FetchAvailableProviders(ctx)
	if err != nil {
		return nil, err
	}

	var eligible []string
	for _, p := range available {
		if p.Supports(from.ID, to.ID) {
			eligible = append(eligible, p.Provider)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, from.ID, to.ID)
	}

	req := provider.QuoteRequest{
		From:          from,
		To:            to,
		Amount:        from.FromBaseUnits(amount),
		RefundAddress: accountAddress(exchange.FromAccount, exchange.FromParentAccount),
		PayoutAddress: accountAddress(exchange.ToAccount, exchange.ToParentAccount),
	}

	perProvider := make([][]types.ExchangeRate, len(eligible))

	var g errgroup.Group
	g.SetLimit(f.maxConcurrency)
	for i, name := range eligible {
		i, name := i, name
		g.Go(func() error {
			perProvider[i] = f.quote(ctx, name, req, amount)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rates, failed []types.ExchangeRate
	for _, entries := range perProvider {
		for _, r := range entries {
			f.metrics.RecordRate(r.Provider, r.Error)
			if r.Error != nil {
				failed = append(failed, r)
			} else {
				rates = append(rates, r)
			}
		}
	}

	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].ToAmount.GreaterThan(rates[j].ToAmount)
	})

	f.log.Debug().
		Str("from", from.ID).
		Str("to", to.ID).
		Int("rates", len(rates)).
		Int("failed", len(failed)).
		Msg("Rates fetched")

	return append(rates, failed...), nil
}

// quote returns the normalized rates of one provider, or a single error entry
func (f *RateFetcher) quote(ctx context.Context, name string, req provider.QuoteRequest, fromBase decimal.Decimal) []types.ExchangeRate {
	p, err := f.providers.Get(name)
	if err != nil {
		return []types.ExchangeRate{{Provider: name, Error: fmt.Errorf("%w: %w", ErrProviderUnavailable, err)}}
	}

	quotes, err := p.Quote(ctx, req)
	if err != nil {
		f.log.Warn().Err(err).Str("provider", name).Msg("Quote failed")
		return []types.ExchangeRate{{Provider: name, Error: fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, name, err)}}
	}

	fallback := f.now().Add(f.ttl)

	var rates []types.ExchangeRate
	var invalid []error
	for _, q := range quotes {
		rate, err := NormalizeQuote(name, req.From, req.To, fromBase, q, fallback)
		if err != nil {
			invalid = append(invalid, err)
			continue
		}
		rates = append(rates, rate)
	}

	if len(rates) == 0 {
		cause := errors.Join(invalid...)
		if cause == nil {
			cause = fmt.Errorf("%w: %s returned no quote", ErrInvalidQuote, name)
		}
		return []types.ExchangeRate{{Provider: name, Error: cause}}
	}
	for _, err := range invalid {
		f.log.Warn().Err(err).Str("provider", name).Msg("Quote skipped")
	}
	return rates
}

// validateExchange checks the exchange endpoints and returns the amount sent in base units
func validateExchange(exchange types.Exchange, tx types.Transaction) (decimal.Decimal, error) {
	from := exchange.FromAccount
	to := exchange.ToAccount

	if from.Currency.ID == "" || to.Currency.ID == "" {
		return decimal.Zero, fmt.Errorf("%w: both currencies are required", ErrInvalidInput)
	}
	if from.Currency.ID == to.Currency.ID {
		return decimal.Zero, fmt.Errorf("%w: cannot swap %s to itself", ErrInvalidInput, from.Currency.ID)
	}
	if from.ID == to.ID {
		return decimal.Zero, fmt.Errorf("%w: source and destination accounts are the same", ErrInvalidInput)
	}

	amount := tx.Amount
	if tx.UseAllAmount {
		// fees of a token are paid from its parent
		amount = from.Balance
		if !from.Currency.IsToken() {
			amount = amount.Sub(tx.Fees)
		}
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return amount, nil
}

// accountAddress returns the receive address of an account, falling back to its parent
func accountAddress(account types.Account, parent *types.Account) string {
	if account.FreshAddress != "" || parent == nil {
		return account.FreshAddress
	}
	return parent.FreshAddress
}
