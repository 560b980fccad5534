// Package signer is a software stand-in for the hardware device that signs swap
// transactions. Ethereum and Solana transactions are built and signed natively;
// other families get a secp256k1 signature over the canonical transaction.
package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog"

	"swap-aggregator/pkg/swap"
	"swap-aggregator/pkg/types"
)

// ERC20 transfer function ABI
const erc20TransferABI = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

const (
	nativeGasLimit = uint64(21000)
	erc20GasLimit  = uint64(100000)
	mainnetChainID = int64(1)
)

// Config holds the device keys. Empty keys are replaced by ephemeral ones.
type Config struct {
	EthPrivateKey string // hex, with or without 0x
	SolPrivateKey string // base58

	// Approve is asked before every signature; nil approves everything
	Approve func(swap.SignRequest) bool
}

// Device signs swap transactions
type Device struct {
	ethKey  *ecdsa.PrivateKey
	solKey  solana.PrivateKey
	approve func(swap.SignRequest) bool
	log     zerolog.Logger
}

// New loads the device keys
func New(cfg Config, log zerolog.Logger) (*Device, error) {
	log = log.With().Str("component", "device").Logger()

	var (
		ethKey *ecdsa.PrivateKey
		err    error
	)
	if cfg.EthPrivateKey != "" {
		ethKey, err = crypto.HexToECDSA(strings.TrimPrefix(cfg.EthPrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid ethereum private key: %w", err)
		}
	} else {
		ethKey, err = crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate ethereum key: %w", err)
		}
		log.Warn().Msg("No ethereum key configured, using an ephemeral one")
	}

	var solKey solana.PrivateKey
	if cfg.SolPrivateKey != "" {
		solKey, err = solana.PrivateKeyFromBase58(cfg.SolPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid solana private key: %w", err)
		}
	} else {
		solKey, err = solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate solana key: %w", err)
		}
		log.Warn().Msg("No solana key configured, using an ephemeral one")
	}

	return &Device{
		ethKey:  ethKey,
		solKey:  solKey,
		approve: cfg.Approve,
		log:     log,
	}, nil
}

// EthereumAddress returns the checksummed address of the ethereum key
func (d *Device) EthereumAddress() string {
	return crypto.PubkeyToAddress(d.ethKey.PublicKey).Hex()
}

// SolanaAddress returns the base58 public key of the solana key
func (d *Device) SolanaAddress() string {
	return d.solKey.PublicKey().String()
}

// Sign asks for approval then signs the transaction for the sending currency's chain
func (d *Device) Sign(ctx context.Context, req swap.SignRequest) (types.SwapTransaction, error) {
	if err := ctx.Err(); err != nil {
		return types.SwapTransaction{}, err
	}
	if d.approve != nil && !d.approve(req) {
		d.log.Info().Str("device_id", req.DeviceID).Msg("Signature refused")
		return types.SwapTransaction{}, swap.ErrDeviceDeclined
	}

	var (
		signed types.SwapTransaction
		err    error
	)
	switch req.Currency.Chain {
	case "eth":
		signed, err = d.signEthereum(req.Transaction, req.Currency)
	case "sol":
		signed, err = d.signSolana(req.Transaction, req.Currency)
	default:
		signed, err = d.signDigest(req.Transaction)
	}
	if err != nil {
		return types.SwapTransaction{}, err
	}

	d.log.Debug().
		Str("device_id", req.DeviceID).
		Str("currency", req.Currency.ID).
		Str("recipient", signed.Recipient).
		Msg("Transaction signed")
	return signed, nil
}

// signEthereum builds a legacy EIP-155 transaction; Signature holds the raw signed bytes
func (d *Device) signEthereum(tx types.SwapTransaction, currency types.Currency) (types.SwapTransaction, error) {
	if !common.IsHexAddress(tx.Recipient) {
		return types.SwapTransaction{}, fmt.Errorf("invalid recipient address: %s", tx.Recipient)
	}
	if tx.Amount.Sign() < 0 {
		return types.SwapTransaction{}, fmt.Errorf("invalid amount: %s", tx.Amount)
	}

	recipient := common.HexToAddress(tx.Recipient)
	amount := tx.Amount.BigInt()

	to := recipient
	value := amount
	var data []byte
	gasLimit := nativeGasLimit

	if currency.IsToken() {
		if !common.IsHexAddress(currency.Contract) {
			return types.SwapTransaction{}, fmt.Errorf("invalid token contract address: %s", currency.Contract)
		}
		parsedABI, err := abi.JSON(strings.NewReader(erc20TransferABI))
		if err != nil {
			return types.SwapTransaction{}, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
		}
		data, err = parsedABI.Pack("transfer", recipient, amount)
		if err != nil {
			return types.SwapTransaction{}, fmt.Errorf("failed to pack transfer data: %w", err)
		}
		to = common.HexToAddress(currency.Contract)
		value = big.NewInt(0)
		gasLimit = erc20GasLimit
	}
	if tx.GasLimit > 0 {
		gasLimit = tx.GasLimit
	}

	// Fees is the total the wallet is willing to spend on gas
	gasPrice := new(big.Int).Div(tx.Fees.BigInt(), new(big.Int).SetUint64(gasLimit))

	chainID := tx.ChainID
	if chainID == 0 {
		chainID = mainnetChainID
	}

	etx := ethtypes.NewTransaction(tx.Nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := ethtypes.SignTx(etx, ethtypes.NewEIP155Signer(big.NewInt(chainID)), d.ethKey)
	if err != nil {
		return types.SwapTransaction{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return types.SwapTransaction{}, fmt.Errorf("failed to encode transaction: %w", err)
	}

	tx.GasLimit = gasLimit
	tx.ChainID = chainID
	tx.Signature = hexutil.Encode(raw)
	return tx, nil
}

// signSolana builds a system transfer. Payload, when set, is the recent blockhash.
func (d *Device) signSolana(tx types.SwapTransaction, currency types.Currency) (types.SwapTransaction, error) {
	if currency.IsToken() {
		return types.SwapTransaction{}, fmt.Errorf("token transfers are not supported on %s", currency.Chain)
	}
	recipient, err := solana.PublicKeyFromBase58(tx.Recipient)
	if err != nil {
		return types.SwapTransaction{}, fmt.Errorf("invalid recipient address: %w", err)
	}
	if tx.Amount.Sign() < 0 || !tx.Amount.IsInteger() {
		return types.SwapTransaction{}, fmt.Errorf("invalid amount: %s", tx.Amount)
	}
	lamports := tx.Amount.BigInt().Uint64()

	var blockhash solana.Hash
	if tx.Payload != "" {
		blockhash, err = solana.HashFromBase58(tx.Payload)
		if err != nil {
			return types.SwapTransaction{}, fmt.Errorf("invalid blockhash: %w", err)
		}
	}

	payer := d.solKey.PublicKey()
	instruction := system.NewTransferInstruction(lamports, payer, recipient).Build()

	stx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return types.SwapTransaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	sigs, err := stx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &d.solKey
		}
		return nil
	})
	if err != nil {
		return types.SwapTransaction{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if len(sigs) == 0 {
		return types.SwapTransaction{}, fmt.Errorf("no signature produced")
	}

	tx.Signature = sigs[0].String()
	return tx, nil
}

// signDigest signs the keccak256 of the unsigned transaction's JSON form
func (d *Device) signDigest(tx types.SwapTransaction) (types.SwapTransaction, error) {
	tx.Signature = ""
	payload, err := json.Marshal(tx.ToRaw())
	if err != nil {
		return types.SwapTransaction{}, fmt.Errorf("failed to encode transaction: %w", err)
	}

	sig, err := crypto.Sign(crypto.Keccak256(payload), d.ethKey)
	if err != nil {
		return types.SwapTransaction{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx.Signature = hexutil.Encode(sig)
	return tx, nil
}

var _ swap.DeviceSigner = (*Device)(nil)
