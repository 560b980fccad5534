package cmd

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"swap-aggregator/pkg/parser"
	"swap-aggregator/pkg/swap"
	"swap-aggregator/pkg/types"
	"swap-aggregator/pkg/wallet"
)

var (
	fromAccountID string
	toAccountID   string
)

// families maps a chain to the transaction family its wallet builds
var families = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"sol":  "solana",
	"near": "near",
}

// Rough fee estimates in base units of the fee-paying currency
var estimatedFees = map[string]decimal.Decimal{
	"bitcoin":  decimal.NewFromInt(1500),
	"ethereum": decimal.NewFromInt(21000 * 20_000_000_000),
	"solana":   decimal.NewFromInt(5000),
	"near":     decimal.RequireFromString("1000000000000000000000"),
}

func familyOf(c types.Currency) string {
	if family, ok := families[c.Chain]; ok {
		return family
	}
	return c.Chain
}

// draftTransaction is the unsigned transaction the wallet would send for the swap
func draftTransaction(from types.Currency, amount decimal.Decimal, useAll bool) types.Transaction {
	family := familyOf(from)
	fees := estimatedFees[family]
	var gasLimit uint64
	if family == "ethereum" {
		gasLimit = 21000
		if from.IsToken() {
			gasLimit = 100000
			fees = decimal.NewFromInt(100000 * 20_000_000_000)
		}
	}
	return types.Transaction{
		Family:       family,
		Amount:       amount,
		UseAllAmount: useAll,
		Fees:         fees,
		GasLimit:     gasLimit,
	}
}

// prepareSwap resolves "<amount> <token> to <token>" against the wallet into a swap state
// with both accounts selected, and the matching draft transaction
func (a *app) prepareSwap(args []string) (swap.SwapState, types.Transaction, error) {
	req, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		return swap.SwapState{}, types.Transaction{}, err
	}
	resolved, err := parser.Resolve(req)
	if err != nil {
		return swap.SwapState{}, types.Transaction{}, err
	}

	var state swap.SwapState
	state = state.SelectFromCurrency(resolved.From).SelectToCurrency(resolved.To)

	from, fromParent, err := a.pickAccount(fromAccountID, resolved.From)
	if err != nil {
		return swap.SwapState{}, types.Transaction{}, err
	}
	to, toParent, err := a.pickAccount(toAccountID, resolved.To)
	if err != nil {
		return swap.SwapState{}, types.Transaction{}, err
	}
	state = state.SelectFromAccount(from, fromParent).SelectToAccount(to, toParent)

	tx, err := spendTransaction(from, fromParent, resolved.Amount, resolved.UseAllAmount)
	if err != nil {
		return swap.SwapState{}, types.Transaction{}, err
	}
	state = state.SetAmount(tx.Amount)

	return state, tx, nil
}

// spendTransaction drafts the transaction for display amount out of from. With useAll a
// native account spends its balance minus the fees, a token account its whole balance.
// The amount and the fees must fit the account, or its parent for the fees of a token.
func spendTransaction(from types.Account, parent *types.Account, display decimal.Decimal, useAll bool) (types.Transaction, error) {
	c := from.Currency
	amount := c.ToBaseUnits(display)
	tx := draftTransaction(c, amount, useAll)

	feePayer := from
	if c.IsToken() && parent != nil {
		feePayer = *parent
	}

	if useAll {
		amount = from.Balance
		if !c.IsToken() {
			amount = from.Balance.Sub(tx.Fees)
		}
		if !amount.IsPositive() {
			return types.Transaction{}, fmt.Errorf("%w: %s %s does not cover the fees",
				wallet.ErrInsufficientBalance, c.FromBaseUnits(from.Balance), c.Ticker)
		}
		tx.Amount = amount
	}

	spent := amount
	if feePayer.ID == from.ID {
		spent = spent.Add(tx.Fees)
	}
	if spent.GreaterThan(from.Balance) {
		return types.Transaction{}, fmt.Errorf("%w: have %s %s, need %s %s including fees",
			wallet.ErrInsufficientBalance, c.FromBaseUnits(from.Balance), c.Ticker, c.FromBaseUnits(spent), c.Ticker)
	}
	if feePayer.ID != from.ID && tx.Fees.GreaterThan(feePayer.Balance) {
		fc := feePayer.Currency
		return types.Transaction{}, fmt.Errorf("%w: fees need %s %s on %s, have %s",
			wallet.ErrInsufficientBalance, fc.FromBaseUnits(tx.Fees), fc.Ticker, feePayer.ID, fc.FromBaseUnits(feePayer.Balance))
	}
	return tx, nil
}

func (a *app) pickAccount(id string, c types.Currency) (types.Account, *types.Account, error) {
	if id == "" {
		return a.store.FindByCurrency(c.ID)
	}
	account, parent, err := a.store.Resolve(id)
	if err != nil {
		return types.Account{}, nil, err
	}
	if account.Currency.ID != c.ID {
		return types.Account{}, nil, fmt.Errorf("account '%s' holds %s, not %s", id, account.Currency.ID, c.ID)
	}
	return account, parent, nil
}
