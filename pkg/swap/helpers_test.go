package swap

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/provider/mock"
	"swap-aggregator/pkg/types"
)

var nop = zerolog.Nop()

func mustCurrency(t *testing.T, id string) types.Currency {
	t.Helper()
	c, err := types.FindCurrency(id)
	require.NoError(t, err)
	return c
}

func btcAccount(t *testing.T) types.Account {
	return types.Account{
		ID:           "btc-1",
		Type:         types.AccountTypeAccount,
		Currency:     mustCurrency(t, "bitcoin"),
		Balance:      decimal.NewFromInt(250_000_000),
		FreshAddress: "bc1qsender",
	}
}

func ethAccount(t *testing.T) types.Account {
	return types.Account{
		ID:           "eth-1",
		Type:         types.AccountTypeAccount,
		Currency:     mustCurrency(t, "ethereum"),
		Balance:      decimal.NewFromInt(0),
		FreshAddress: "0x000000000000000000000000000000000000dEaD",
	}
}

func btcToEth(t *testing.T) types.Exchange {
	return types.Exchange{FromAccount: btcAccount(t), ToAccount: ethAccount(t)}
}

// oneBTC is 1 BTC in satoshis
var oneBTC = decimal.NewFromInt(100_000_000)

func registryOf(providers ...provider.Provider) *provider.Registry {
	return provider.NewRegistry(providers...)
}

func mocks(names ...string) []provider.Provider {
	out := make([]provider.Provider, 0, len(names))
	for _, n := range names {
		out = append(out, mock.New(n))
	}
	return out
}

func providerNames(list []types.AvailableProvider) []string {
	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Provider)
	}
	return names
}

// mutableDisabled is a DisabledSource whose value can change between calls
type mutableDisabled struct {
	mu    sync.Mutex
	value string
	reads int
}

func (m *mutableDisabled) DisabledProviders() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.value
}

func (m *mutableDisabled) set(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
}

// fetcherFunc adapts a function to ProvidersFetcher
type fetcherFunc func(ctx context.Context) ([]types.AvailableProvider, error)

func (f fetcherFunc) FetchAvailableProviders(ctx context.Context) ([]types.AvailableProvider, error) {
	return f(ctx)
}

// stubSigner signs by stamping a fixed signature
type stubSigner struct {
	err      error
	requests []SignRequest
}

func (s *stubSigner) Sign(_ context.Context, req SignRequest) (types.SwapTransaction, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return types.SwapTransaction{}, s.err
	}
	tx := req.Transaction
	tx.Signature = "0xsigned"
	return tx, nil
}
