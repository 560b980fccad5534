package wallet

import (
	"github.com/shopspring/decimal"

	"swap-aggregator/pkg/types"
)

// Addresses are the receive addresses of the device the demo accounts belong to
type Addresses struct {
	Bitcoin  string
	Ethereum string
	Solana   string
}

func mustCurrency(id string) types.Currency {
	c, err := types.FindCurrency(id)
	if err != nil {
		panic(err)
	}
	return c
}

// DemoAccounts returns a funded bitcoin, ethereum (with a USDC token account) and
// solana account. Balances are in base units.
func DemoAccounts(addrs Addresses) []types.Account {
	if addrs.Bitcoin == "" {
		addrs.Bitcoin = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
	}

	return []types.Account{
		{
			ID:           "btc-1",
			Type:         types.AccountTypeAccount,
			Currency:     mustCurrency("bitcoin"),
			Balance:      decimal.NewFromInt(50_000_000), // 0.5 BTC
			FreshAddress: addrs.Bitcoin,
		},
		{
			ID:           "eth-1",
			Type:         types.AccountTypeAccount,
			Currency:     mustCurrency("ethereum"),
			Balance:      decimal.RequireFromString("2000000000000000000"), // 2 ETH
			FreshAddress: addrs.Ethereum,
			SubAccounts: []types.Account{
				{
					ID:           "eth-1-usdc",
					Type:         types.AccountTypeToken,
					ParentID:     "eth-1",
					Currency:     mustCurrency("ethereum/erc20/usdc"),
					Balance:      decimal.NewFromInt(500_000_000), // 500 USDC
					FreshAddress: addrs.Ethereum,
				},
			},
		},
		{
			ID:           "sol-1",
			Type:         types.AccountTypeAccount,
			Currency:     mustCurrency("solana"),
			Balance:      decimal.NewFromInt(10_000_000_000), // 10 SOL
			FreshAddress: addrs.Solana,
		},
	}
}

// Seed fills an empty store with the demo accounts
func (s *Store) Seed(addrs Addresses) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.accounts) > 0 {
		return false, nil
	}
	if err := s.commit(DemoAccounts(addrs)); err != nil {
		return false, err
	}
	return true, nil
}
