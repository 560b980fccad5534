package swap

import (
	"sort"
	"time"

	"swap-aggregator/pkg/types"
)

// accountIndex resolves accounts and token sub-accounts by id
type accountIndex struct {
	byID   map[string]types.Account
	parent map[string]string
}

func indexAccounts(accounts []types.Account) accountIndex {
	idx := accountIndex{byID: make(map[string]types.Account), parent: make(map[string]string)}
	for _, a := range accounts {
		idx.byID[a.ID] = a
		for _, sub := range a.SubAccounts {
			idx.byID[sub.ID] = sub
			idx.parent[sub.ID] = a.ID
		}
	}
	return idx
}

// resolve returns the account and, for a token sub-account, its parent
func (idx accountIndex) resolve(id string) (types.Account, *types.Account, bool) {
	account, ok := idx.byID[id]
	if !ok {
		return types.Account{}, nil, false
	}
	parentID := idx.parent[id]
	if parentID == "" {
		parentID = account.ParentID
	}
	if parentID == "" {
		return account, nil, true
	}
	if parent, ok := idx.byID[parentID]; ok {
		return account, &parent, true
	}
	return account, nil, true
}

// Project joins swap operations with the wallet operations that funded them and groups
// the result by UTC calendar day, most recent day first. Within a day the order of
// swapOperations is kept. Swaps whose operation is missing are skipped.
func Project(operations []types.Operation, swapOperations []types.SwapOperation, accounts []types.Account) []types.SwapHistorySection {
	opsByID := make(map[string]types.Operation, len(operations))
	for _, op := range operations {
		opsByID[op.ID] = op
	}
	idx := indexAccounts(accounts)

	sections := make(map[time.Time]*types.SwapHistorySection)
	for _, so := range swapOperations {
		op, ok := opsByID[so.OperationID]
		if !ok {
			continue
		}

		mapped := types.MappedSwapOperation{
			Operation:  op,
			Provider:   so.Provider,
			SwapID:     so.SwapID,
			Status:     so.Status,
			FromAmount: so.FromAmount,
			ToAmount:   so.ToAmount,
		}
		if from, parent, ok := idx.resolve(op.AccountID); ok {
			mapped.FromAccount = from
			mapped.FromParentAccount = parent
		}

		toID := so.ReceiverAccountID
		if so.TokenID != "" {
			toID = so.TokenID
		}
		if to, parent, ok := idx.resolve(toID); ok {
			mapped.ToAccount = to
			mapped.ToParentAccount = parent
			mapped.ToExists = true
		}

		day := startOfDay(op.Date)
		section, ok := sections[day]
		if !ok {
			section = &types.SwapHistorySection{Day: day}
			sections[day] = section
		}
		section.Data = append(section.Data, mapped)
	}

	out := make([]types.SwapHistorySection, 0, len(sections))
	for _, s := range sections {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	return out
}

// ProjectAccounts projects the swap history recorded on the accounts themselves
func ProjectAccounts(accounts []types.Account) []types.SwapHistorySection {
	var operations []types.Operation
	var swapOperations []types.SwapOperation
	for _, a := range accounts {
		operations = append(operations, a.Operations...)
		swapOperations = append(swapOperations, a.SwapHistory...)
		for _, sub := range a.SubAccounts {
			operations = append(operations, sub.Operations...)
			swapOperations = append(swapOperations, sub.SwapHistory...)
		}
	}
	return Project(operations, swapOperations, accounts)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
