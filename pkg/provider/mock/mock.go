// Package mock provides a deterministic in-memory provider used in mock mode and tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/types"
)

// Raw statuses spoken by the mock provider
const (
	StatusWaiting    = "waiting"
	StatusExchanging = "exchanging"
	StatusHold       = "hold"
	StatusOverdue    = "overdue"
	StatusFinished   = "finished"
	StatusRefunded   = "refunded"
)

// DefaultPairs mirrors the bitcoin/ethereum pairs of the stock mock providers
var DefaultPairs = []types.CurrencyPair{
	{From: "bitcoin", To: "ethereum", TradeMethod: types.TradeMethodFloat},
	{From: "bitcoin", To: "ethereum", TradeMethod: types.TradeMethodFixed},
	{From: "ethereum", To: "bitcoin", TradeMethod: types.TradeMethodFloat},
	{From: "ethereum", To: "bitcoin", TradeMethod: types.TradeMethodFixed},
}

// Provider is an in-memory swap provider
type Provider struct {
	name     string
	pairs    []types.CurrencyPair
	rates    map[string]decimal.Decimal
	payout   decimal.Decimal
	quoteTTL time.Duration
	extraID  string
	unknown  string

	pairsHook func(ctx context.Context) error
	quoteErr  error
	createErr error
	statusErr error

	pairsCalls  atomic.Int32
	quoteCalls  atomic.Int32
	createCalls atomic.Int32
	statusCalls atomic.Int32

	mu    sync.Mutex
	swaps map[string]string
}

// Option configures a mock provider
type Option func(*Provider)

// WithPairs replaces the supported pairs
func WithPairs(pairs []types.CurrencyPair) Option {
	return func(p *Provider) { p.pairs = pairs }
}

// WithRate sets the display rate for a direction
func WithRate(from, to string, rate decimal.Decimal) Option {
	return func(p *Provider) { p.rates[from+"|"+to] = rate }
}

// WithPayoutFee sets the payout network fee charged on float quotes
func WithPayoutFee(fee decimal.Decimal) Option {
	return func(p *Provider) { p.payout = fee }
}

// WithQuoteTTL sets how long fixed quotes stay valid
func WithQuoteTTL(ttl time.Duration) Option {
	return func(p *Provider) { p.quoteTTL = ttl }
}

// WithPayinExtraID makes created swaps require a memo / destination tag
func WithPayinExtraID(extraID string) Option {
	return func(p *Provider) { p.extraID = extraID }
}

// WithUnknownStatus reports raw for swap ids this instance did not create,
// such as swaps created by an earlier process
func WithUnknownStatus(raw string) Option {
	return func(p *Provider) { p.unknown = raw }
}

// WithPairsHook runs fn at the start of every Pairs call; a non-nil error fails the call
func WithPairsHook(fn func(ctx context.Context) error) Option {
	return func(p *Provider) { p.pairsHook = fn }
}

// WithQuoteError makes every Quote call fail
func WithQuoteError(err error) Option {
	return func(p *Provider) { p.quoteErr = err }
}

// WithCreateError makes every CreateSwap call fail
func WithCreateError(err error) Option {
	return func(p *Provider) { p.createErr = err }
}

// WithStatusError makes every Statuses call fail
func WithStatusError(err error) Option {
	return func(p *Provider) { p.statusErr = err }
}

// New creates a mock provider named name
func New(name string, opts ...Option) *Provider {
	p := &Provider{
		name:     name,
		pairs:    DefaultPairs,
		rates:    make(map[string]decimal.Decimal),
		payout:   decimal.Zero,
		quoteTTL: time.Minute,
		swaps:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.name
}

// Pairs returns the configured pairs
func (p *Provider) Pairs(ctx context.Context) ([]types.CurrencyPair, []string, error) {
	p.pairsCalls.Add(1)

	if p.pairsHook != nil {
		if err := p.pairsHook(ctx); err != nil {
			return nil, nil, err
		}
	}

	pairs := append([]types.CurrencyPair(nil), p.pairs...)
	return pairs, types.CurrenciesFromPairs(pairs), nil
}

// Quote returns one quote per trade method configured for the pair
func (p *Provider) Quote(ctx context.Context, req provider.QuoteRequest) ([]provider.Quote, error) {
	p.quoteCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}

	rate, ok := p.rates[req.From.ID+"|"+req.To.ID]
	if !ok {
		rate = decimal.NewFromInt(1)
	}

	var quotes []provider.Quote
	for _, pair := range p.pairs {
		if pair.From != req.From.ID || pair.To != req.To.ID {
			continue
		}

		q := provider.Quote{
			TradeMethod: pair.TradeMethod,
			AmountFrom:  req.Amount,
			AmountTo:    req.Amount.Mul(rate),
			ProviderURL: fmt.Sprintf("https://%s.example", p.name),
		}
		if pair.TradeMethod == types.TradeMethodFixed {
			q.RateID = uuid.New().String()
			q.ExpiresAt = time.Now().Add(p.quoteTTL)
		} else {
			q.PayoutNetworkFees = p.payout
		}
		quotes = append(quotes, q)
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf("%s: pair %s -> %s not supported", p.name, req.From.ID, req.To.ID)
	}
	return quotes, nil
}

// CreateSwap registers a new swap in the waiting state
func (p *Provider) CreateSwap(ctx context.Context, req provider.CreateSwapRequest) (*provider.CreatedSwap, error) {
	p.createCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.createErr != nil {
		return nil, p.createErr
	}
	if req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", provider.ErrSwapRejected)
	}

	swapID := uuid.New().String()

	p.mu.Lock()
	p.swaps[swapID] = StatusWaiting
	p.mu.Unlock()

	return &provider.CreatedSwap{
		SwapID:         swapID,
		PayinAddress:   payinAddress(req.From, swapID),
		PayinExtraID:   p.extraID,
		AmountExpected: req.Amount,
	}, nil
}

// payinAddress derives a deposit address the sending chain would accept
func payinAddress(from types.Currency, swapID string) string {
	seed := crypto.Keccak256([]byte(swapID))
	switch from.Chain {
	case "eth":
		return common.BytesToAddress(seed[12:]).Hex()
	case "sol":
		return solana.PublicKeyFromBytes(seed).String()
	default:
		return "mock-payin-" + swapID[:8]
	}
}

// Statuses returns the raw status of every known swap id
func (p *Provider) Statuses(ctx context.Context, swapIDs []string) (map[string]string, error) {
	p.statusCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.statusErr != nil {
		return nil, p.statusErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]string, len(swapIDs))
	for _, id := range swapIDs {
		if status, ok := p.swaps[id]; ok {
			out[id] = status
		} else if p.unknown != "" {
			out[id] = p.unknown
		}
	}
	return out, nil
}

// SetStatus forces the raw status of a swap, registering it if needed
func (p *Provider) SetStatus(swapID, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.swaps[swapID] = status
}

// PairsCalls returns how many times Pairs was invoked
func (p *Provider) PairsCalls() int {
	return int(p.pairsCalls.Load())
}

// QuoteCalls returns how many times Quote was invoked
func (p *Provider) QuoteCalls() int {
	return int(p.quoteCalls.Load())
}

// CreateCalls returns how many times CreateSwap was invoked
func (p *Provider) CreateCalls() int {
	return int(p.createCalls.Load())
}

// StatusCalls returns how many times Statuses was invoked
func (p *Provider) StatusCalls() int {
	return int(p.statusCalls.Load())
}

var _ provider.Provider = (*Provider)(nil)
