package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/provider/mock"
	"swap-aggregator/pkg/types"
)

func initInput(t *testing.T, method types.TradeMethod, expiresAt time.Time) types.InitSwapInput {
	rate := types.ExchangeRate{
		Rate:        decimal.NewFromInt(15),
		ToAmount:    decimal.RequireFromString("15000000000000000000"),
		Provider:    "changelly",
		TradeMethod: method,
		ExpiresAt:   expiresAt,
	}
	if method == types.TradeMethodFixed {
		rate.RateID = "rate-1"
	}
	return types.InitSwapInput{
		Exchange:     btcToEth(t),
		ExchangeRate: rate,
		Transaction: types.SwapTransaction{Transaction: types.Transaction{
			Family: "bitcoin",
			Amount: oneBTC,
			Fees:   decimal.NewFromInt(1200),
		}},
		DeviceID: "nano-x",
	}
}

type eventLog []types.SwapRequestEvent

func (l *eventLog) emit(e types.SwapRequestEvent) { *l = append(*l, e) }

func (l eventLog) kinds() []types.SwapRequestEventType {
	out := make([]types.SwapRequestEventType, 0, len(l))
	for _, e := range l {
		out = append(out, e.Type)
	}
	return out
}

func TestInitSwapFlow_Success(t *testing.T) {
	p := mock.New("changelly")
	signer := &stubSigner{}
	flow := NewInitSwapFlow(registryOf(p), signer, nop, WithInitClock(func() time.Time { return fixedNow }))
	assert.Equal(t, InitStateIdle, flow.State())

	var events eventLog
	input := initInput(t, types.TradeMethodFixed, fixedNow.Add(time.Minute))
	result, err := flow.Run(context.Background(), input, events.emit)
	require.NoError(t, err)

	assert.Equal(t, InitStateResult, flow.State())
	assert.Equal(t, []types.SwapRequestEventType{types.EventInitSwapRequested, types.EventInitSwapResult}, events.kinds())
	assert.Equal(t, "15000000000000000000", events[0].AmountExpectedTo)
	assert.True(t, events[0].EstimatedFees.Equal(decimal.NewFromInt(1200)))
	assert.Same(t, result, events[1].InitSwapResult)

	assert.NotEmpty(t, result.SwapID)
	assert.Contains(t, result.Transaction.Recipient, "mock-payin-")
	assert.True(t, result.Transaction.IsSigned())

	require.Len(t, signer.requests, 1)
	assert.Equal(t, "nano-x", signer.requests[0].DeviceID)
	assert.Equal(t, "bitcoin", signer.requests[0].Currency.ID)
	assert.Equal(t, result.Transaction.Recipient, signer.requests[0].Transaction.Recipient)

	statuses, err := p.Statuses(context.Background(), []string{result.SwapID})
	require.NoError(t, err)
	assert.Equal(t, mock.StatusWaiting, statuses[result.SwapID])
}

func TestInitSwapFlow_ExpiredRate(t *testing.T) {
	p := mock.New("changelly")
	signer := &stubSigner{}
	flow := NewInitSwapFlow(registryOf(p), signer, nop, WithInitClock(func() time.Time { return fixedNow }))

	var events eventLog
	_, err := flow.Run(context.Background(), initInput(t, types.TradeMethodFixed, fixedNow), events.emit)

	assert.ErrorIs(t, err, ErrRateExpired)
	assert.Equal(t, InitStateErrored, flow.State())
	assert.Equal(t, []types.SwapRequestEventType{types.EventInitSwapError}, events.kinds())
	assert.ErrorIs(t, events[0].Error, ErrRateExpired)
	assert.Equal(t, 0, p.CreateCalls())
	assert.Empty(t, signer.requests)
}

func TestInitSwapFlow_FloatRateNeverExpires(t *testing.T) {
	flow := NewInitSwapFlow(registryOf(mock.New("changelly")), &stubSigner{}, nop,
		WithInitClock(func() time.Time { return fixedNow.Add(time.Hour) }))

	_, err := flow.Run(context.Background(), initInput(t, types.TradeMethodFloat, fixedNow), nil)
	assert.NoError(t, err)
}

func TestInitSwapFlow_Failures(t *testing.T) {
	tests := []struct {
		name    string
		p       *mock.Provider
		signErr error
		wantErr error
	}{
		{"provider rejects", mock.New("changelly", mock.WithCreateError(provider.ErrSwapRejected)), nil, ErrInitiationRejected},
		{"provider unreachable", mock.New("changelly", mock.WithCreateError(errors.New("i/o timeout"))), nil, ErrProviderUnavailable},
		{"device declines", mock.New("changelly"), ErrDeviceDeclined, ErrInitiationRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := NewInitSwapFlow(registryOf(tt.p), &stubSigner{err: tt.signErr}, nop)

			var events eventLog
			result, err := flow.Run(context.Background(), initInput(t, types.TradeMethodFloat, time.Time{}), events.emit)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, InitStateErrored, flow.State())
			assert.Equal(t, []types.SwapRequestEventType{types.EventInitSwapRequested, types.EventInitSwapError}, events.kinds())
			assert.Equal(t, 1, tt.p.CreateCalls(), "one attempt, no retry")
		})
	}
}

func TestInitSwapFlow_UnknownProvider(t *testing.T) {
	flow := NewInitSwapFlow(registryOf(), &stubSigner{}, nop)

	_, err := flow.Run(context.Background(), initInput(t, types.TradeMethodFloat, time.Time{}), nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestInitSwapFlow_RunsOnce(t *testing.T) {
	flow := NewInitSwapFlow(registryOf(mock.New("changelly")), &stubSigner{}, nop)
	input := initInput(t, types.TradeMethodFloat, time.Time{})

	_, err := flow.Run(context.Background(), input, nil)
	require.NoError(t, err)
	_, err = flow.Run(context.Background(), input, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInitSwapFlow_RejectsFailedRate(t *testing.T) {
	flow := NewInitSwapFlow(registryOf(mock.New("changelly")), &stubSigner{}, nop)
	input := initInput(t, types.TradeMethodFloat, time.Time{})
	input.ExchangeRate.Error = errors.New("quote failed")

	_, err := flow.Run(context.Background(), input, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInitSwapFlow_AttachesMemo(t *testing.T) {
	tests := []struct {
		extraID  string
		wantTag  bool
		wantType string
	}{
		{"123456", true, MemoTypeID},
		{"swap-memo", false, MemoTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.extraID, func(t *testing.T) {
			flow := NewInitSwapFlow(registryOf(mock.New("changelly", mock.WithPayinExtraID(tt.extraID))), &stubSigner{}, nop)

			result, err := flow.Run(context.Background(), initInput(t, types.TradeMethodFloat, time.Time{}), nil)
			require.NoError(t, err)

			assert.Equal(t, tt.extraID, result.Transaction.MemoValue)
			assert.Equal(t, tt.wantType, result.Transaction.MemoType)
			if tt.wantTag {
				require.NotNil(t, result.Transaction.Tag)
				assert.Equal(t, uint32(123456), *result.Transaction.Tag)
			} else {
				assert.Nil(t, result.Transaction.Tag)
			}
		})
	}
}

func TestSwapOperationFromResult(t *testing.T) {
	input := initInput(t, types.TradeMethodFloat, time.Time{})
	result := types.InitSwapResult{SwapID: "swap-1", Transaction: input.Transaction}

	op := SwapOperationFromResult(input, result, "btc-1-op-9")
	assert.Equal(t, "changelly", op.Provider)
	assert.Equal(t, "swap-1", op.SwapID)
	assert.Equal(t, "pending", op.Status)
	assert.Equal(t, "eth-1", op.ReceiverAccountID)
	assert.Empty(t, op.TokenID)
	assert.Equal(t, "btc-1-op-9", op.OperationID)
	assert.True(t, op.FromAmount.Equal(oneBTC))
	assert.True(t, op.ToAmount.Equal(input.ExchangeRate.ToAmount))

	parent := ethAccount(t)
	input.Exchange.ToAccount = types.Account{ID: "eth-1-usdc", Type: types.AccountTypeToken, ParentID: "eth-1", Currency: mustCurrency(t, "ethereum/erc20/usdc")}
	input.Exchange.ToParentAccount = &parent

	op = SwapOperationFromResult(input, result, "btc-1-op-9")
	assert.Equal(t, "eth-1", op.ReceiverAccountID)
	assert.Equal(t, "eth-1-usdc", op.TokenID)
}
