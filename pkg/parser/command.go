package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"swap-aggregator/pkg/types"
)

// <amount|MAX> <token>[@chain] TO <token>[@chain]
var swapPattern = regexp.MustCompile(`^(\d+\.?\d*|MAX)\s+([A-Z0-9]+)(?:@([A-Z0-9]+))?\s+TO\s+([A-Z0-9]+)(?:@([A-Z0-9]+))?$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 0.5 BTC to ETH"
//   - "100 USDC@eth to SOL"
//   - "max ETH to BTC"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 0.5 BTC to ETH')")
	}

	req := &types.SwapRequest{
		Amount:      matches[1],
		SourceToken: NormalizeTokenSymbol(matches[2]),
		SourceChain: strings.ToLower(matches[3]),
		DestToken:   NormalizeTokenSymbol(matches[4]),
		DestChain:   strings.ToLower(matches[5]),
	}
	if req.Amount == "MAX" {
		req.Amount = ""
		req.UseAllAmount = true
	}
	return req, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == "" && !req.UseAllAmount {
		return fmt.Errorf("amount is required")
	}
	if req.SourceToken == "" {
		return fmt.Errorf("source token is required")
	}
	if req.DestToken == "" {
		return fmt.Errorf("destination token is required")
	}
	if req.SourceToken == req.DestToken && req.SourceChain == req.DestChain {
		return fmt.Errorf("cannot swap %s to itself", req.SourceToken)
	}
	return nil
}

// Resolved is a swap request mapped onto known currencies
type Resolved struct {
	From         types.Currency
	To           types.Currency
	Amount       decimal.Decimal // display units of From; zero when UseAllAmount
	UseAllAmount bool
}

// Resolve maps the tickers of a request onto known currencies and parses the amount
func Resolve(req *types.SwapRequest) (Resolved, error) {
	if err := ValidateSwapRequest(req); err != nil {
		return Resolved{}, err
	}

	from, err := types.FindCurrencyByTicker(req.SourceToken, req.SourceChain)
	if err != nil {
		return Resolved{}, err
	}
	to, err := types.FindCurrencyByTicker(req.DestToken, req.DestChain)
	if err != nil {
		return Resolved{}, err
	}
	if from.ID == to.ID {
		return Resolved{}, fmt.Errorf("cannot swap %s to itself", from.ID)
	}

	out := Resolved{From: from, To: to, UseAllAmount: req.UseAllAmount}
	if req.UseAllAmount {
		return out, nil
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return Resolved{}, fmt.Errorf("invalid amount '%s': %w", req.Amount, err)
	}
	if amount.Sign() <= 0 {
		return Resolved{}, fmt.Errorf("amount must be positive")
	}
	if amount.Exponent() < -from.Units {
		return Resolved{}, fmt.Errorf("%s supports at most %d decimals", from.Ticker, from.Units)
	}
	out.Amount = amount
	return out, nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Handle common aliases
	aliases := map[string]string{
		"WBTC": "BTC",
		"WETH": "ETH",
		"WSOL": "SOL",
		"XBT":  "BTC",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
