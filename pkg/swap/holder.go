package swap

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"swap-aggregator/pkg/types"
)

// ProvidersState is the observable state of a ProvidersHolder
type ProvidersState struct {
	IsLoading bool
	Error     error
	Providers []types.AvailableProvider
}

type providersActionKind int

const (
	actionLoaded providersActionKind = iota
	actionFailed
)

type providersAction struct {
	kind      providersActionKind
	providers []types.AvailableProvider
	err       error
}

// reduce is the only way the holder state changes
func reduce(state ProvidersState, action providersAction) ProvidersState {
	switch action.kind {
	case actionLoaded:
		return ProvidersState{IsLoading: false, Providers: action.providers}
	case actionFailed:
		return ProvidersState{IsLoading: false, Error: action.err}
	default:
		return state
	}
}

// ProvidersHolder loads the available providers once and holds the result.
// Results arriving after Unmount are dropped.
type ProvidersHolder struct {
	fetcher ProvidersFetcher
	log     zerolog.Logger

	mountOnce sync.Once
	wg        sync.WaitGroup
	done      chan struct{}
	stopped   chan struct{}

	mu       sync.Mutex
	state    ProvidersState
	alive    bool
	cancel   context.CancelFunc
	onChange func(ProvidersState)
}

// NewProvidersHolder creates a holder in the loading state
func NewProvidersHolder(fetcher ProvidersFetcher, log zerolog.Logger) *ProvidersHolder {
	return &ProvidersHolder{
		fetcher: fetcher,
		log:     log.With().Str("component", "providers_holder").Logger(),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		state:   ProvidersState{IsLoading: true},
		alive:   true,
	}
}

// OnChange registers a listener called once, on the loading transition
func (h *ProvidersHolder) OnChange(fn func(ProvidersState)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Mount starts the single fetch. Later calls are no-ops.
func (h *ProvidersHolder) Mount(ctx context.Context) {
	h.mountOnce.Do(func() {
		h.mu.Lock()
		if !h.alive {
			h.mu.Unlock()
			return
		}
		fetchCtx, cancel := context.WithCancel(ctx)
		h.cancel = cancel
		h.mu.Unlock()

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			defer cancel()

			providers, err := h.fetcher.FetchAvailableProviders(fetchCtx)
			if err != nil {
				h.dispatch(providersAction{kind: actionFailed, err: err})
				return
			}
			h.dispatch(providersAction{kind: actionLoaded, providers: providers})
		}()
	})
}

func (h *ProvidersHolder) dispatch(action providersAction) {
	h.mu.Lock()
	if !h.alive {
		h.mu.Unlock()
		h.log.Debug().Msg("Holder unmounted, result dropped")
		return
	}
	h.state = reduce(h.state, action)
	snapshot := h.snapshot()
	listener := h.onChange
	close(h.done)
	h.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}

// Unmount invalidates the holder and cancels an in-flight fetch
func (h *ProvidersHolder) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive {
		return
	}
	h.alive = false
	if h.cancel != nil {
		h.cancel()
	}
	close(h.stopped)
}

// State returns a snapshot of the current state
func (h *ProvidersHolder) State() ProvidersState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot()
}

// Wait blocks until the providers are loaded or failed
func (h *ProvidersHolder) Wait(ctx context.Context) (ProvidersState, error) {
	select {
	case <-h.done:
		return h.State(), nil
	default:
	}

	select {
	case <-h.done:
		return h.State(), nil
	case <-h.stopped:
		return h.State(), ErrUnmounted
	case <-ctx.Done():
		return h.State(), ctx.Err()
	}
}

func (h *ProvidersHolder) snapshot() ProvidersState {
	s := h.state
	if s.Providers != nil {
		s.Providers = append([]types.AvailableProvider(nil), s.Providers...)
	}
	return s
}
