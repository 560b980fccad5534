package swap

import (
	"sort"
	"strings"

	"swap-aggregator/pkg/types"
)

// DefaultWeights ranks providers; higher weights are listed first. Unlisted providers weigh 0.
var DefaultWeights = map[string]int{
	"changelly":   100,
	"nearintents": 80,
	"wyre":        60,
	"cic":         40,
	"kraken":      20,
	"bitfinex":    10,
	"bitstamp":    10,
}

// DisabledSource yields the raw comma-delimited list of disabled provider ids.
// It is consulted on every aggregation so configuration changes apply without restart.
type DisabledSource interface {
	DisabledProviders() string
}

// StaticDisabled is a fixed disabled list
type StaticDisabled string

// DisabledProviders returns the list as is
func (s StaticDisabled) DisabledProviders() string {
	return string(s)
}

// ParseDisabledList splits a comma-delimited list, trimming spaces and dropping empty entries
func ParseDisabledList(raw string) map[string]bool {
	disabled := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			disabled[id] = true
		}
	}
	return disabled
}

// FilterDisabled drops providers whose id exactly matches a disabled entry
func FilterDisabled(providers []types.AvailableProvider, rawDisabled string) []types.AvailableProvider {
	disabled := ParseDisabledList(rawDisabled)
	if len(disabled) == 0 {
		return providers
	}

	out := make([]types.AvailableProvider, 0, len(providers))
	for _, p := range providers {
		if !disabled[p.Provider] {
			out = append(out, p)
		}
	}
	return out
}

// SortByWeight orders providers by weight desc, then id asc. The input slice is sorted in place.
func SortByWeight(providers []types.AvailableProvider, weights map[string]int) {
	sort.SliceStable(providers, func(i, j int) bool {
		wi, wj := weights[providers[i].Provider], weights[providers[j].Provider]
		if wi != wj {
			return wi > wj
		}
		return providers[i].Provider < providers[j].Provider
	})
}
