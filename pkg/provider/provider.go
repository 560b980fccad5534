// Package provider defines the transport contract each swap provider adapter implements.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"swap-aggregator/pkg/types"
)

// ErrSwapRejected is returned by adapters when the provider refuses to create a swap
var ErrSwapRejected = errors.New("swap rejected by provider")

// Provider is implemented by every exchange provider adapter
type Provider interface {
	// Name returns the provider identifier (e.g. "changelly")
	Name() string

	// Pairs returns the currency pairs currently supported.
	// Adapters that support any-to-any swaps return currencies only.
	Pairs(ctx context.Context) (pairs []types.CurrencyPair, currencies []string, err error)

	// Quote returns one quote per trade method offered for the request
	Quote(ctx context.Context, req QuoteRequest) ([]Quote, error)

	// CreateSwap registers a swap and returns where the funds must be sent
	CreateSwap(ctx context.Context, req CreateSwapRequest) (*CreatedSwap, error)

	// Statuses returns the provider-native status string for each swap id.
	// Ids missing from the result are unknown to the provider.
	Statuses(ctx context.Context, swapIDs []string) (map[string]string, error)
}

// QuoteRequest asks for quotes for a given amount
type QuoteRequest struct {
	From          types.Currency
	To            types.Currency
	Amount        decimal.Decimal // display units of From
	RefundAddress string
	PayoutAddress string
}

// Quote is a provider-native quote, amounts in display units
type Quote struct {
	TradeMethod       types.TradeMethod
	AmountFrom        decimal.Decimal
	AmountTo          decimal.Decimal
	PayoutNetworkFees decimal.Decimal
	RateID            string
	ProviderURL       string
	ExpiresAt         time.Time
}

// CreateSwapRequest asks the provider to open a swap
type CreateSwapRequest struct {
	From          types.Currency
	To            types.Currency
	Amount        decimal.Decimal // display units of From
	TradeMethod   types.TradeMethod
	RateID        string
	RefundAddress string
	PayoutAddress string
}

// CreatedSwap tells the wallet where to send the funds
type CreatedSwap struct {
	SwapID         string
	PayinAddress   string
	PayinExtraID   string // memo / destination tag, when the chain needs one
	AmountExpected decimal.Decimal
}

// Registry holds providers in registration order
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates a registry with the given providers
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider '%s' not registered", name)
	}
	return p, nil
}

// List returns all providers in registration order
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.providers[name])
	}
	return list
}

// Names returns the registered provider names sorted lexically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}
