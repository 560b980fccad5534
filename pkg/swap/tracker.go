package swap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"swap-aggregator/pkg/metrics"
	"swap-aggregator/pkg/types"
)

// StatusTable maps lower-cased provider-native statuses to canonical ones
type StatusTable map[string]types.ValidSwapStatus

// Lookup maps a raw status; the second result is false for unmapped strings
func (t StatusTable) Lookup(raw string) (types.ValidSwapStatus, bool) {
	status, ok := t[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

// exchangeStatuses is the vocabulary of the centralized exchange-style providers
var exchangeStatuses = StatusTable{
	"new":        types.SwapStatusPending,
	"waiting":    types.SwapStatusPending,
	"confirming": types.SwapStatusPending,
	"exchanging": types.SwapStatusPending,
	"sending":    types.SwapStatusPending,
	"hold":       types.SwapStatusOnHold,
	"finished":   types.SwapStatusFinished,
	"refunded":   types.SwapStatusRefunded,
	"failed":     types.SwapStatusRefunded,
	"overdue":    types.SwapStatusExpired,
	"expired":    types.SwapStatusExpired,
}

var intentStatuses = StatusTable{
	"pending_deposit":    types.SwapStatusPending,
	"known_deposit_tx":   types.SwapStatusPending,
	"processing":         types.SwapStatusPending,
	"incomplete_deposit": types.SwapStatusOnHold,
	"success":            types.SwapStatusFinished,
	"refunded":           types.SwapStatusRefunded,
	"failed":             types.SwapStatusRefunded,
}

// DefaultStatusTables holds the built-in tables per provider. A provider without
// a table has no mapped statuses: everything it reports is ErrUnknownStatus.
func DefaultStatusTables() map[string]StatusTable {
	return map[string]StatusTable{
		"changelly":   clone(exchangeStatuses),
		"wyre":        clone(exchangeStatuses),
		"cic":         clone(exchangeStatuses),
		"nearintents": clone(intentStatuses),
	}
}

func clone(t StatusTable) StatusTable {
	out := make(StatusTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// ParseStatusOverrides parses "provider:raw=status" entries separated by commas
func ParseStatusOverrides(raw string) (map[string]StatusTable, error) {
	overrides := make(map[string]StatusTable)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		providerName, mapping, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("invalid status override '%s': expected provider:raw=status", entry)
		}
		rawStatus, status, ok := strings.Cut(mapping, "=")
		if !ok {
			return nil, fmt.Errorf("invalid status override '%s': expected provider:raw=status", entry)
		}

		valid, err := types.ParseSwapStatus(strings.TrimSpace(status))
		if err != nil {
			return nil, fmt.Errorf("invalid status override '%s': %w", entry, err)
		}

		providerName = strings.TrimSpace(providerName)
		if overrides[providerName] == nil {
			overrides[providerName] = make(StatusTable)
		}
		overrides[providerName][strings.ToLower(strings.TrimSpace(rawStatus))] = valid
	}
	return overrides, nil
}

// MergeStatusTables layers overrides on top of base without mutating either
func MergeStatusTables(base, overrides map[string]StatusTable) map[string]StatusTable {
	out := make(map[string]StatusTable, len(base))
	for name, t := range base {
		out[name] = clone(t)
	}
	for name, t := range overrides {
		if out[name] == nil {
			out[name] = make(StatusTable, len(t))
		}
		for raw, status := range t {
			out[name][raw] = status
		}
	}
	return out
}

// StatusTracker polls providers and maps their statuses to the canonical set
type StatusTracker struct {
	providers      ProviderSource
	tables         map[string]StatusTable
	maxConcurrency int
	metrics        *metrics.Metrics
	log            zerolog.Logger
}

// TrackerOption configures a StatusTracker
type TrackerOption func(*StatusTracker)

// WithStatusTables replaces the status tables
func WithStatusTables(tables map[string]StatusTable) TrackerOption {
	return func(t *StatusTracker) { t.tables = tables }
}

// WithTrackerConcurrency bounds the number of providers polled at once
func WithTrackerConcurrency(n int) TrackerOption {
	return func(t *StatusTracker) {
		if n > 0 {
			t.maxConcurrency = n
		}
	}
}

// WithTrackerMetrics records every mapped status
func WithTrackerMetrics(m *metrics.Metrics) TrackerOption {
	return func(t *StatusTracker) { t.metrics = m }
}

// NewStatusTracker creates a tracker using the default status tables
func NewStatusTracker(providers ProviderSource, log zerolog.Logger, opts ...TrackerOption) *StatusTracker {
	t := &StatusTracker{
		providers:      providers,
		tables:         DefaultStatusTables(),
		maxConcurrency: defaultMaxConcurrency,
		log:            log.With().Str("component", "status_tracker").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *StatusTracker) table(providerName string) StatusTable {
	return t.tables[providerName]
}

type providerPoll struct {
	raw map[string]string
	err error
}

// PollStatus returns one status per request, in request order. Each provider is called
// once with all of its swap ids; a failure only affects that provider's entries.
func (t *StatusTracker) PollStatus(ctx context.Context, requests []types.SwapStatusRequest) []types.SwapStatus {
	var order []string
	ids := make(map[string][]string)
	seen := make(map[types.SwapStatusRequest]bool)
	for _, req := range requests {
		if _, ok := ids[req.Provider]; !ok {
			order = append(order, req.Provider)
		}
		if !seen[req] {
			seen[req] = true
			ids[req.Provider] = append(ids[req.Provider], req.SwapID)
		}
	}

	var mu sync.Mutex
	polls := make(map[string]providerPoll, len(order))

	var g errgroup.Group
	g.SetLimit(t.maxConcurrency)
	for _, name := range order {
		name := name
		g.Go(func() error {
			raw, err := t.poll(ctx, name, ids[name])
			mu.Lock()
			polls[name] = providerPoll{raw: raw, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.SwapStatus, len(requests))
	for i, req := range requests {
		out[i] = t.resolve(req, polls[req.Provider])
		t.metrics.RecordSwapStatus(req.Provider, string(out[i].Status))
	}
	return out
}

func (t *StatusTracker) poll(ctx context.Context, name string, swapIDs []string) (map[string]string, error) {
	p, err := t.providers.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	raw, err := p.Statuses(ctx, swapIDs)
	if err != nil {
		t.log.Warn().Err(err).Str("provider", name).Int("swaps", len(swapIDs)).Msg("Status poll failed")
		return nil, fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, name, err)
	}
	return raw, nil
}

func (t *StatusTracker) resolve(req types.SwapStatusRequest, poll providerPoll) types.SwapStatus {
	status := types.SwapStatus{Provider: req.Provider, SwapID: req.SwapID}
	if poll.err != nil {
		status.Err = poll.err
		return status
	}

	raw, ok := poll.raw[req.SwapID]
	if !ok {
		status.Err = fmt.Errorf("%w: %s did not report swap %s", ErrUnknownStatus, req.Provider, req.SwapID)
		return status
	}
	mapped, ok := t.table(req.Provider).Lookup(raw)
	if !ok {
		status.Err = fmt.Errorf("%w: %s reported '%s' for swap %s", ErrUnknownStatus, req.Provider, raw, req.SwapID)
		return status
	}
	status.Status = mapped
	return status
}

// UpdateAccountSwapStatus polls every non-terminal swap recorded on the account and its
// sub-accounts. It returns an updated copy, or nil when no status changed.
func (t *StatusTracker) UpdateAccountSwapStatus(ctx context.Context, account types.Account) (*types.Account, error) {
	var requests []types.SwapStatusRequest
	collect := func(history []types.SwapOperation) {
		for _, op := range history {
			if !op.IsTerminal() {
				requests = append(requests, types.SwapStatusRequest{Provider: op.Provider, SwapID: op.SwapID})
			}
		}
	}
	collect(account.SwapHistory)
	for _, sub := range account.SubAccounts {
		collect(sub.SwapHistory)
	}
	if len(requests) == 0 {
		return nil, nil
	}

	statuses := t.PollStatus(ctx, requests)

	resolved := make(map[types.SwapStatusRequest]types.ValidSwapStatus, len(statuses))
	var failures []error
	for _, s := range statuses {
		if s.Err != nil {
			failures = append(failures, s.Err)
			t.log.Debug().Err(s.Err).Str("account", account.ID).Str("swap_id", s.SwapID).Msg("Swap status unresolved")
			continue
		}
		resolved[types.SwapStatusRequest{Provider: s.Provider, SwapID: s.SwapID}] = s.Status
	}
	if len(resolved) == 0 {
		return nil, errors.Join(failures...)
	}

	updated := account.Clone()
	changed := false
	apply := func(history []types.SwapOperation) {
		for i := range history {
			status, ok := resolved[types.SwapStatusRequest{Provider: history[i].Provider, SwapID: history[i].SwapID}]
			if ok && string(status) != history[i].Status {
				history[i].Status = string(status)
				changed = true
			}
		}
	}
	apply(updated.SwapHistory)
	for i := range updated.SubAccounts {
		apply(updated.SubAccounts[i].SwapHistory)
	}

	if !changed {
		return nil, nil
	}
	return &updated, nil
}
