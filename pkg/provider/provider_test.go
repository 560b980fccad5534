package provider_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/provider/mock"
)

func TestRegistry_OrderAndLookup(t *testing.T) {
	reg := provider.NewRegistry(mock.New("wyre"), mock.New("changelly"))
	reg.Register(mock.New("kraken"))
	reg.Register(mock.New("wyre"))

	var names []string
	for _, p := range reg.List() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"wyre", "changelly", "kraken"}, names)
	assert.Equal(t, []string{"changelly", "kraken", "wyre"}, reg.Names())

	p, err := reg.Get("changelly")
	require.NoError(t, err)
	assert.Equal(t, "changelly", p.Name())

	_, err = reg.Get("bitstamp")
	assert.Error(t, err)
}

type call struct {
	provider  string
	operation string
	err       error
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) ObserveProviderCall(provider, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{provider, operation, err})
}

func TestInstrument_ReportsEveryCall(t *testing.T) {
	boom := errors.New("down")
	rec := &recorder{}
	p := provider.Instrument(mock.New("changelly", mock.WithStatusError(boom)), rec)
	ctx := context.Background()

	_, _, err := p.Pairs(ctx)
	require.NoError(t, err)
	_, err = p.Statuses(ctx, []string{"a"})
	require.ErrorIs(t, err, boom)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, call{"changelly", "pairs", nil}, rec.calls[0])
	assert.Equal(t, "statuses", rec.calls[1].operation)
	assert.ErrorIs(t, rec.calls[1].err, boom)
}

func TestInstrument_NilObserver(t *testing.T) {
	p := mock.New("changelly")
	assert.Same(t, p, provider.Instrument(p, nil))
}
