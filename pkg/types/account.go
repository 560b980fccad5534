package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType distinguishes top level accounts from token sub-accounts
type AccountType string

const (
	AccountTypeAccount AccountType = "account"
	AccountTypeToken   AccountType = "token"
)

// Account is a wallet account or a token sub-account. It is owned by the wallet
// subsystem; the swap core only reads it, except for SwapHistory statuses.
type Account struct {
	ID           string          `json:"id"`
	Type         AccountType     `json:"type"`
	ParentID     string          `json:"parent_id,omitempty"`
	Currency     Currency        `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	FreshAddress string          `json:"fresh_address"`
	Operations   []Operation     `json:"operations,omitempty"`
	SwapHistory  []SwapOperation `json:"swap_history,omitempty"`
	SubAccounts  []Account       `json:"sub_accounts,omitempty"`
}

// FindSubAccount returns the token sub-account with the given id
func (a *Account) FindSubAccount(id string) (*Account, bool) {
	for i := range a.SubAccounts {
		if a.SubAccounts[i].ID == id {
			return &a.SubAccounts[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the account
func (a Account) Clone() Account {
	out := a
	out.Operations = append([]Operation(nil), a.Operations...)
	out.SwapHistory = append([]SwapOperation(nil), a.SwapHistory...)
	if a.SubAccounts != nil {
		out.SubAccounts = make([]Account, len(a.SubAccounts))
		for i, sub := range a.SubAccounts {
			out.SubAccounts[i] = sub.Clone()
		}
	}
	return out
}

// AccountRaw is the serialized form of Account
type AccountRaw struct {
	ID           string             `json:"id"`
	Type         AccountType        `json:"type"`
	ParentID     string             `json:"parent_id,omitempty"`
	Currency     Currency           `json:"currency"`
	Balance      string             `json:"balance"`
	FreshAddress string             `json:"fresh_address"`
	Operations   []OperationRaw     `json:"operations,omitempty"`
	SwapHistory  []SwapOperationRaw `json:"swap_history,omitempty"`
	SubAccounts  []AccountRaw       `json:"sub_accounts,omitempty"`
}

// ToRaw converts the account to its serialized form
func (a Account) ToRaw() AccountRaw {
	raw := AccountRaw{
		ID:           a.ID,
		Type:         a.Type,
		ParentID:     a.ParentID,
		Currency:     a.Currency,
		Balance:      a.Balance.String(),
		FreshAddress: a.FreshAddress,
	}
	for _, op := range a.Operations {
		raw.Operations = append(raw.Operations, op.ToRaw())
	}
	for _, so := range a.SwapHistory {
		raw.SwapHistory = append(raw.SwapHistory, so.ToRaw())
	}
	for _, sub := range a.SubAccounts {
		raw.SubAccounts = append(raw.SubAccounts, sub.ToRaw())
	}
	return raw
}

// FromRaw decodes a serialized account
func (raw AccountRaw) FromRaw() (Account, error) {
	balance, err := parseDecimal(raw.Balance)
	if err != nil {
		return Account{}, fmt.Errorf("account %s: balance: %w", raw.ID, err)
	}

	a := Account{
		ID:           raw.ID,
		Type:         raw.Type,
		ParentID:     raw.ParentID,
		Currency:     raw.Currency,
		Balance:      balance,
		FreshAddress: raw.FreshAddress,
	}
	for _, opRaw := range raw.Operations {
		op, err := opRaw.FromRaw()
		if err != nil {
			return Account{}, fmt.Errorf("account %s: %w", raw.ID, err)
		}
		a.Operations = append(a.Operations, op)
	}
	for _, soRaw := range raw.SwapHistory {
		so, err := soRaw.FromRaw()
		if err != nil {
			return Account{}, fmt.Errorf("account %s: %w", raw.ID, err)
		}
		a.SwapHistory = append(a.SwapHistory, so)
	}
	for _, subRaw := range raw.SubAccounts {
		sub, err := subRaw.FromRaw()
		if err != nil {
			return Account{}, err
		}
		a.SubAccounts = append(a.SubAccounts, sub)
	}
	return a, nil
}

// Operation is an on-chain operation recorded by the wallet
type Operation struct {
	ID        string          `json:"id"`
	Hash      string          `json:"hash"`
	AccountID string          `json:"account_id"`
	Type      string          `json:"type"` // "OUT", "IN", "FEES", ...
	Value     decimal.Decimal `json:"value"`
	Fee       decimal.Decimal `json:"fee"`
	Date      time.Time       `json:"date"`
}

// OperationRaw is the serialized form of Operation
type OperationRaw struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	AccountID string    `json:"account_id"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Fee       string    `json:"fee"`
	Date      time.Time `json:"date"`
}

// ToRaw converts the operation to its serialized form
func (o Operation) ToRaw() OperationRaw {
	return OperationRaw{
		ID:        o.ID,
		Hash:      o.Hash,
		AccountID: o.AccountID,
		Type:      o.Type,
		Value:     o.Value.String(),
		Fee:       o.Fee.String(),
		Date:      o.Date,
	}
}

// FromRaw decodes a serialized operation
func (raw OperationRaw) FromRaw() (Operation, error) {
	value, err := parseDecimal(raw.Value)
	if err != nil {
		return Operation{}, fmt.Errorf("operation %s: value: %w", raw.ID, err)
	}
	fee, err := parseDecimal(raw.Fee)
	if err != nil {
		return Operation{}, fmt.Errorf("operation %s: fee: %w", raw.ID, err)
	}
	return Operation{
		ID:        raw.ID,
		Hash:      raw.Hash,
		AccountID: raw.AccountID,
		Type:      raw.Type,
		Value:     value,
		Fee:       fee,
		Date:      raw.Date,
	}, nil
}

// Transaction is a draft (or signed) transaction prepared by the wallet
type Transaction struct {
	Family       string          `json:"family"` // "ethereum", "solana", "bitcoin", ...
	Recipient    string          `json:"recipient"`
	Amount       decimal.Decimal `json:"amount"` // in base units of the sending account
	UseAllAmount bool            `json:"use_all_amount,omitempty"`
	Fees         decimal.Decimal `json:"fees"`
	SubAccountID string          `json:"sub_account_id,omitempty"`
	Nonce        uint64          `json:"nonce,omitempty"`
	GasLimit     uint64          `json:"gas_limit,omitempty"`
	ChainID      int64           `json:"chain_id,omitempty"`
	Payload      string          `json:"payload,omitempty"`
	Signature    string          `json:"signature,omitempty"`
}

// IsSigned returns true once the device signer has produced a signature
func (t Transaction) IsSigned() bool {
	return t.Signature != ""
}

// SwapTransaction is a transaction carrying the memo/tag some providers require
type SwapTransaction struct {
	Transaction
	Tag       *uint32 `json:"tag,omitempty"`
	MemoValue string  `json:"memo_value,omitempty"`
	MemoType  string  `json:"memo_type,omitempty"`
}

// TransactionRaw is the serialized form of SwapTransaction
type TransactionRaw struct {
	Family       string  `json:"family"`
	Recipient    string  `json:"recipient"`
	Amount       string  `json:"amount"`
	UseAllAmount bool    `json:"use_all_amount,omitempty"`
	Fees         string  `json:"fees"`
	SubAccountID string  `json:"sub_account_id,omitempty"`
	Nonce        uint64  `json:"nonce,omitempty"`
	GasLimit     uint64  `json:"gas_limit,omitempty"`
	ChainID      int64   `json:"chain_id,omitempty"`
	Payload      string  `json:"payload,omitempty"`
	Signature    string  `json:"signature,omitempty"`
	Tag          *uint32 `json:"tag,omitempty"`
	MemoValue    string  `json:"memo_value,omitempty"`
	MemoType     string  `json:"memo_type,omitempty"`
}

// ToRaw converts the transaction to its serialized form
func (t SwapTransaction) ToRaw() TransactionRaw {
	return TransactionRaw{
		Family:       t.Family,
		Recipient:    t.Recipient,
		Amount:       t.Amount.String(),
		UseAllAmount: t.UseAllAmount,
		Fees:         t.Fees.String(),
		SubAccountID: t.SubAccountID,
		Nonce:        t.Nonce,
		GasLimit:     t.GasLimit,
		ChainID:      t.ChainID,
		Payload:      t.Payload,
		Signature:    t.Signature,
		Tag:          t.Tag,
		MemoValue:    t.MemoValue,
		MemoType:     t.MemoType,
	}
}

// FromRaw decodes a serialized transaction
func (raw TransactionRaw) FromRaw() (SwapTransaction, error) {
	amount, err := parseDecimal(raw.Amount)
	if err != nil {
		return SwapTransaction{}, fmt.Errorf("transaction amount: %w", err)
	}
	fees, err := parseDecimal(raw.Fees)
	if err != nil {
		return SwapTransaction{}, fmt.Errorf("transaction fees: %w", err)
	}
	return SwapTransaction{
		Transaction: Transaction{
			Family:       raw.Family,
			Recipient:    raw.Recipient,
			Amount:       amount,
			UseAllAmount: raw.UseAllAmount,
			Fees:         fees,
			SubAccountID: raw.SubAccountID,
			Nonce:        raw.Nonce,
			GasLimit:     raw.GasLimit,
			ChainID:      raw.ChainID,
			Payload:      raw.Payload,
			Signature:    raw.Signature,
		},
		Tag:       raw.Tag,
		MemoValue: raw.MemoValue,
		MemoType:  raw.MemoType,
	}, nil
}

// parseDecimal treats the empty string as zero
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
