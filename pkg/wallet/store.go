// Package wallet persists the local accounts the swap commands read from and record into.
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"swap-aggregator/pkg/types"
)

const (
	DefaultStorageFileName = ".swap-aggregator-wallet.json"
)

// ErrInsufficientBalance is returned when a spend would leave an account below zero
var ErrInsufficientBalance = errors.New("insufficient balance")

// Store keeps accounts in a JSON file
type Store struct {
	filePath string
	mu       sync.RWMutex
	accounts []types.Account
}

// walletFile represents the JSON structure for storage
type walletFile struct {
	Accounts []types.AccountRaw `json:"accounts"`
}

// NewStore opens the wallet file, which may not exist yet
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	s := &Store{filePath: filePath}
	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load wallet: %w", err)
		}
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file walletFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal wallet: %w", err)
	}

	accounts := make([]types.Account, 0, len(file.Accounts))
	for _, raw := range file.Accounts {
		a, err := raw.FromRaw()
		if err != nil {
			return err
		}
		accounts = append(accounts, a)
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	return nil
}

// commit writes accounts atomically and only then makes them the store's state.
// The caller holds the lock.
func (s *Store) commit(accounts []types.Account) error {
	if err := s.save(accounts); err != nil {
		return err
	}
	s.accounts = accounts
	return nil
}

func (s *Store) save(accounts []types.Account) error {
	file := walletFile{Accounts: make([]types.AccountRaw, 0, len(accounts))}
	for _, a := range accounts {
		file.Accounts = append(file.Accounts, a.ToRaw())
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write wallet: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Accounts returns a copy of every top level account, in insertion order
func (s *Store) Accounts() []types.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Clone())
	}
	return out
}

// Count returns the number of top level accounts
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// Resolve finds an account or token sub-account by id. For a sub-account the
// parent is returned too.
func (s *Store) Resolve(id string) (types.Account, *types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.ID == id {
			return a.Clone(), nil, nil
		}
		if sub, ok := a.FindSubAccount(id); ok {
			parent := a.Clone()
			return sub.Clone(), &parent, nil
		}
	}
	return types.Account{}, nil, fmt.Errorf("account '%s' not found", id)
}

// FindByCurrency returns the first account (or sub-account) holding the currency
func (s *Store) FindByCurrency(currencyID string) (types.Account, *types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Currency.ID == currencyID {
			return a.Clone(), nil, nil
		}
		for _, sub := range a.SubAccounts {
			if sub.Currency.ID == currencyID {
				parent := a.Clone()
				return sub.Clone(), &parent, nil
			}
		}
	}
	return types.Account{}, nil, fmt.Errorf("no account holds '%s'", currencyID)
}

// Add inserts a new top level account
func (s *Store) Add(account types.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.ID == account.ID {
			return fmt.Errorf("account '%s' already exists", account.ID)
		}
	}
	accounts := append(s.snapshot(), account.Clone())
	return s.commit(accounts)
}

// Update replaces a top level account
func (s *Store) Update(account types.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts {
		if s.accounts[i].ID == account.ID {
			accounts := s.snapshot()
			accounts[i] = account.Clone()
			return s.commit(accounts)
		}
	}
	return fmt.Errorf("account '%s' not found", account.ID)
}

// RecordSwap stores the broadcast operation and its swap record on the sending account.
// The amount leaves the sending account; the fee is paid by the parent of a token account.
// Nothing is recorded when either balance would go negative.
func (s *Store) RecordSwap(op types.Operation, swapOp types.SwapOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.snapshot()
	for i := range accounts {
		top := &accounts[i]
		if top.ID == op.AccountID {
			top.Operations = append(top.Operations, op)
			top.SwapHistory = append(top.SwapHistory, swapOp)
			top.Balance = top.Balance.Sub(op.Value).Sub(op.Fee)
			if top.Balance.IsNegative() {
				return fmt.Errorf("%w: account '%s' short by %s", ErrInsufficientBalance, top.ID, top.Balance.Neg())
			}
			return s.commit(accounts)
		}
		if sub, ok := top.FindSubAccount(op.AccountID); ok {
			sub.Operations = append(sub.Operations, op)
			sub.SwapHistory = append(sub.SwapHistory, swapOp)
			sub.Balance = sub.Balance.Sub(op.Value)
			top.Balance = top.Balance.Sub(op.Fee)
			if sub.Balance.IsNegative() {
				return fmt.Errorf("%w: account '%s' short by %s", ErrInsufficientBalance, sub.ID, sub.Balance.Neg())
			}
			if top.Balance.IsNegative() {
				return fmt.Errorf("%w: fee account '%s' short by %s", ErrInsufficientBalance, top.ID, top.Balance.Neg())
			}
			return s.commit(accounts)
		}
	}
	return fmt.Errorf("account '%s' not found", op.AccountID)
}

// snapshot deep copies the accounts; the caller holds the lock
func (s *Store) snapshot() []types.Account {
	out := make([]types.Account, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = a.Clone()
	}
	return out
}

// FilePath returns the storage file path
func (s *Store) FilePath() string {
	return s.filePath
}
