package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency describes a crypto currency or a token living on a parent chain
type Currency struct {
	ID       string `json:"id"`                  // e.g. "bitcoin", "ethereum/erc20/usdc"
	Ticker   string `json:"ticker"`              // e.g. "BTC"
	Units    int32  `json:"units"`               // magnitude of the smallest unit
	Chain    string `json:"chain"`               // blockchain identifier used by providers
	ParentID string `json:"parent_id,omitempty"` // set for tokens only
	Contract string `json:"contract,omitempty"`  // token contract / mint address
}

// IsToken returns true if the currency lives on top of a parent currency
func (c Currency) IsToken() bool {
	return c.ParentID != ""
}

// ToBaseUnits converts a display amount (e.g. 1.5 BTC) to the smallest unit, rounding down
func (c Currency) ToBaseUnits(display decimal.Decimal) decimal.Decimal {
	return display.Shift(c.Units).Floor()
}

// FromBaseUnits converts an amount in the smallest unit to a display amount
func (c Currency) FromBaseUnits(base decimal.Decimal) decimal.Decimal {
	return base.Shift(-c.Units)
}

var currencies = map[string]Currency{
	"bitcoin":             {ID: "bitcoin", Ticker: "BTC", Units: 8, Chain: "btc"},
	"ethereum":            {ID: "ethereum", Ticker: "ETH", Units: 18, Chain: "eth"},
	"solana":              {ID: "solana", Ticker: "SOL", Units: 9, Chain: "sol"},
	"near":                {ID: "near", Ticker: "NEAR", Units: 24, Chain: "near"},
	"ethereum/erc20/usdc": {ID: "ethereum/erc20/usdc", Ticker: "USDC", Units: 6, Chain: "eth", ParentID: "ethereum", Contract: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
	"ethereum/erc20/usdt": {ID: "ethereum/erc20/usdt", Ticker: "USDT", Units: 6, Chain: "eth", ParentID: "ethereum", Contract: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
}

// FindCurrency looks a currency up by id
func FindCurrency(id string) (Currency, error) {
	c, ok := currencies[id]
	if !ok {
		return Currency{}, fmt.Errorf("currency '%s' not found", id)
	}
	return c, nil
}

// FindCurrencyByTicker looks a currency up by ticker, optionally restricted to a chain
func FindCurrencyByTicker(ticker, chain string) (Currency, error) {
	ticker = strings.ToUpper(ticker)
	chain = strings.ToLower(chain)

	for _, c := range ListCurrencies() {
		if c.Ticker != ticker {
			continue
		}
		if chain != "" && c.Chain != chain {
			continue
		}
		return c, nil
	}

	return Currency{}, fmt.Errorf("currency with ticker '%s' not found", ticker)
}

// ListCurrencies returns all known currencies ordered by id
func ListCurrencies() []Currency {
	list := make([]Currency, 0, len(currencies))
	for _, c := range currencies {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
