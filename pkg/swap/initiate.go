package swap

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swap-aggregator/pkg/metrics"
	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/types"
)

// ErrDeviceDeclined is returned by a DeviceSigner when the user refuses on the device
var ErrDeviceDeclined = errors.New("declined on device")

// SignRequest asks the device to sign the swap transaction
type SignRequest struct {
	Transaction types.SwapTransaction
	Currency    types.Currency // currency being sent
	DeviceID    string
}

// DeviceSigner signs transactions on the user's device
type DeviceSigner interface {
	Sign(ctx context.Context, req SignRequest) (types.SwapTransaction, error)
}

// InitState is the state of one initiation
type InitState string

const (
	InitStateIdle      InitState = "idle"
	InitStateRequested InitState = "requested"
	InitStateResult    InitState = "result"
	InitStateErrored   InitState = "errored"
)

// Memo types set on the swap transaction when the provider returns an extra id
const (
	MemoTypeID   = "id"
	MemoTypeText = "text"
)

// InitSwapFlow drives a single swap initiation from request to signed transaction
type InitSwapFlow struct {
	providers ProviderSource
	signer    DeviceSigner
	now       func() time.Time
	metrics   *metrics.Metrics
	log       zerolog.Logger

	mu    sync.Mutex
	state InitState
}

// InitOption configures an InitSwapFlow
type InitOption func(*InitSwapFlow)

// WithInitClock overrides the clock used for expiry checks
func WithInitClock(now func() time.Time) InitOption {
	return func(f *InitSwapFlow) { f.now = now }
}

// WithInitMetrics records the outcome of the initiation
func WithInitMetrics(m *metrics.Metrics) InitOption {
	return func(f *InitSwapFlow) { f.metrics = m }
}

// NewInitSwapFlow creates an idle flow
func NewInitSwapFlow(providers ProviderSource, signer DeviceSigner, log zerolog.Logger, opts ...InitOption) *InitSwapFlow {
	f := &InitSwapFlow{
		providers: providers,
		signer:    signer,
		now:       time.Now,
		log:       log.With().Str("component", "init_swap").Logger(),
		state:     InitStateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state of the flow
func (f *InitSwapFlow) State() InitState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *InitSwapFlow) transition(from, to InitState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != from {
		return false
	}
	f.state = to
	return true
}

// Run performs the initiation once. Every outcome is emitted as a SwapRequestEvent
// and also returned. emit may be nil.
func (f *InitSwapFlow) Run(ctx context.Context, input types.InitSwapInput, emit func(types.SwapRequestEvent)) (*types.InitSwapResult, error) {
	if emit == nil {
		emit = func(types.SwapRequestEvent) {}
	}
	if !f.transition(InitStateIdle, InitStateRequested) {
		return nil, fmt.Errorf("%w: initiation already started", ErrInvalidInput)
	}

	rate := input.ExchangeRate
	log := f.log.With().Str("provider", rate.Provider).Str("trade_method", string(rate.TradeMethod)).Logger()

	fail := func(err error) (*types.InitSwapResult, error) {
		f.mu.Lock()
		f.state = InitStateErrored
		f.mu.Unlock()

		f.metrics.RecordSwapInitiated(rate.Provider, err)
		log.Warn().Err(err).Msg("Swap initiation failed")
		emit(types.SwapRequestEvent{Type: types.EventInitSwapError, Error: err})
		return nil, err
	}

	if err := validateInitInput(input); err != nil {
		return fail(err)
	}
	if rate.IsExpired(f.now()) {
		return fail(fmt.Errorf("%w: %s rate %s expired at %s", ErrRateExpired, rate.Provider, rate.RateID, rate.ExpiresAt.Format(time.RFC3339)))
	}

	emit(types.SwapRequestEvent{
		Type:             types.EventInitSwapRequested,
		AmountExpectedTo: rate.ToAmount.String(),
		EstimatedFees:    input.Transaction.Fees,
	})

	p, err := f.providers.Get(rate.Provider)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
	}

	exchange := input.Exchange
	from := exchange.FromAccount.Currency
	created, err := p.CreateSwap(ctx, provider.CreateSwapRequest{
		From:          from,
		To:            exchange.ToAccount.Currency,
		Amount:        from.FromBaseUnits(input.Transaction.Amount),
		TradeMethod:   rate.TradeMethod,
		RateID:        rate.RateID,
		RefundAddress: accountAddress(exchange.FromAccount, exchange.FromParentAccount),
		PayoutAddress: accountAddress(exchange.ToAccount, exchange.ToParentAccount),
	})
	if err != nil {
		if errors.Is(err, provider.ErrSwapRejected) {
			return fail(fmt.Errorf("%w: %w", ErrInitiationRejected, err))
		}
		return fail(fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, rate.Provider, err))
	}

	tx := withPayin(input.Transaction, created)

	signed, err := f.signer.Sign(ctx, SignRequest{Transaction: tx, Currency: from, DeviceID: input.DeviceID})
	if err != nil {
		if errors.Is(err, ErrDeviceDeclined) {
			return fail(fmt.Errorf("%w: %w", ErrInitiationRejected, err))
		}
		return fail(fmt.Errorf("device signing failed: %w", err))
	}

	result := &types.InitSwapResult{Transaction: signed, SwapID: created.SwapID}

	f.mu.Lock()
	f.state = InitStateResult
	f.mu.Unlock()

	f.metrics.RecordSwapInitiated(rate.Provider, nil)
	log.Info().Str("swap_id", created.SwapID).Str("payin", created.PayinAddress).Msg("Swap initiated")
	emit(types.SwapRequestEvent{Type: types.EventInitSwapResult, InitSwapResult: result})

	return result, nil
}

func validateInitInput(input types.InitSwapInput) error {
	rate := input.ExchangeRate
	if rate.Error != nil {
		return fmt.Errorf("%w: cannot initiate with a failed rate: %w", ErrInvalidInput, rate.Error)
	}
	if rate.Provider == "" {
		return fmt.Errorf("%w: rate has no provider", ErrInvalidInput)
	}
	if !rate.TradeMethod.Valid() {
		return fmt.Errorf("%w: unknown trade method '%s'", ErrInvalidInput, rate.TradeMethod)
	}
	if input.Transaction.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if input.Exchange.FromAccount.Currency.ID == input.Exchange.ToAccount.Currency.ID {
		return fmt.Errorf("%w: cannot swap %s to itself", ErrInvalidInput, input.Exchange.FromAccount.Currency.ID)
	}
	return nil
}

// withPayin points the transaction at the provider deposit address and attaches its extra id
func withPayin(tx types.SwapTransaction, created *provider.CreatedSwap) types.SwapTransaction {
	tx.Recipient = created.PayinAddress
	if created.PayinExtraID == "" {
		return tx
	}

	tx.MemoValue = created.PayinExtraID
	if tag, err := strconv.ParseUint(created.PayinExtraID, 10, 32); err == nil {
		t := uint32(tag)
		tx.Tag = &t
		tx.MemoType = MemoTypeID
	} else {
		tx.MemoType = MemoTypeText
	}
	return tx
}

// SwapOperationFromResult builds the pending swap operation to persist once the
// transaction identified by operationID is broadcast
func SwapOperationFromResult(input types.InitSwapInput, result types.InitSwapResult, operationID string) types.SwapOperation {
	to := input.Exchange.ToAccount

	op := types.SwapOperation{
		Provider:          input.ExchangeRate.Provider,
		SwapID:            result.SwapID,
		Status:            string(types.SwapStatusPending),
		ReceiverAccountID: to.ID,
		OperationID:       operationID,
		FromAmount:        result.Transaction.Amount,
		ToAmount:          input.ExchangeRate.ToAmount,
	}
	if to.Type == types.AccountTypeToken {
		op.TokenID = to.ID
		op.ReceiverAccountID = to.ParentID
		if input.Exchange.ToParentAccount != nil {
			op.ReceiverAccountID = input.Exchange.ToParentAccount.ID
		}
	}
	return op
}
