package engine

import (
	"sort"

	"github.com/hstream-dev/hstream/pkg/component"
)

// FullPageKey is the sentinel enqueued when the page structure changed and the
// client must reload instead of refreshing individual components.
const FullPageKey = "_full_page"

// Decision is the outcome of one reconciliation, and also the payload the
// transport layer delivers to a polling client.
type Decision struct {
	// FullReload is set when the component key sets differ. No individual
	// keys are reported alongside a full reload.
	FullReload bool `json:"full_reload"`

	// RefreshKeys lists components whose attributes changed while the key set
	// stayed identical, in sorted order.
	RefreshKeys []string `json:"refresh_keys,omitempty"`
}

// None reports whether the decision requires no client update at all.
func (d Decision) None() bool {
	return !d.FullReload && len(d.RefreshKeys) == 0
}

// Reconcile compares two component-set snapshots and classifies the minimal
// required client update. Synthetic markup records are excluded on both
// sides: they are engine bookkeeping, not visitor-observable components.
//
// The key-set comparison is order-insensitive and exact: any added or removed
// key means the page layout changed, and per-attribute comparison is skipped
// entirely. With identical key sets, each record pair is compared on every
// attribute except CurrentValue.
func Reconcile(before, after *component.Set) Decision {
	beforeKeys := before.VisibleKeys()
	afterKeys := after.VisibleKeys()

	if !sameKeySet(beforeKeys, afterKeys) {
		return Decision{FullReload: true}
	}

	var changed []string
	for _, key := range afterKeys {
		prev, _ := before.Get(key)
		next, _ := after.Get(key)
		if !prev.EqualIgnoringValue(next) {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)
	return Decision{RefreshKeys: changed}
}

// sameKeySet reports whether a and b contain the same keys, ignoring order.
func sameKeySet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, k := range a {
		seen[k] = struct{}{}
	}
	for _, k := range b {
		if _, ok := seen[k]; !ok {
			return false
		}
	}
	return true
}
