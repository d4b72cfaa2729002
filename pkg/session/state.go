package session

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/hstream-dev/hstream/pkg/component"
)

// State is the per-visitor aggregate persisted between requests: the ordered
// component set produced by the last script run, the pending-refresh set, and
// the rerun flag set by value changes.
type State struct {
	// ID is the visitor's session identifier.
	ID string `json:"id"`

	// Components is the ordered key-to-record mapping from the last committed
	// script run.
	Components *component.Set `json:"components"`

	// PendingRefresh holds component keys (or the full-page sentinel) awaiting
	// delivery to the client.
	PendingRefresh RefreshSet `json:"pending_refresh,omitempty"`

	// RerunNeeded is set by a value change and cleared after the next script
	// run for this session.
	RerunNeeded bool `json:"rerun_needed,omitempty"`

	// CreatedAt is when the session state was first created.
	CreatedAt time.Time `json:"created_at"`

	// LastActive is when the session state was last written.
	LastActive time.Time `json:"last_active"`

	// Version is the serialization format version.
	Version int `json:"version"`
}

// FormatVersion is the current serialization format version.
// Increment on breaking changes to the persisted layout.
const FormatVersion = 1

// NewState returns empty session state for a visitor.
func NewState(id string) *State {
	now := time.Now().UTC()
	return &State{
		ID:             id,
		Components:     component.NewSet(),
		PendingRefresh: NewRefreshSet(),
		CreatedAt:      now,
		LastActive:     now,
	}
}

// Reset clears components and the pending-refresh set, as on a root visit.
// Identity and creation time are preserved.
func (s *State) Reset() {
	s.Components = component.NewSet()
	s.PendingRefresh = NewRefreshSet()
	s.RerunNeeded = false
}

// Serialize encodes state for persistence.
func Serialize(s *State) ([]byte, error) {
	s.Version = FormatVersion
	return json.Marshal(s)
}

// Deserialize decodes persisted state. Nil maps are normalized so callers can
// mutate the result without nil checks.
func Deserialize(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Components == nil {
		s.Components = component.NewSet()
	}
	if s.PendingRefresh == nil {
		s.PendingRefresh = NewRefreshSet()
	}
	return &s, nil
}

// RefreshSet is the per-session set of pending refresh signals. Enqueue is
// idempotent set union; the set survives across requests until drained by the
// transport layer.
type RefreshSet map[string]struct{}

// NewRefreshSet returns an empty refresh set.
func NewRefreshSet() RefreshSet {
	return make(RefreshSet)
}

// Add inserts key into the set. Adding a present key is a no-op.
func (rs RefreshSet) Add(key string) {
	rs[key] = struct{}{}
}

// Remove discards key from the set, if present.
func (rs RefreshSet) Remove(key string) {
	delete(rs, key)
}

// Clear empties the set.
func (rs RefreshSet) Clear() {
	for k := range rs {
		delete(rs, k)
	}
}

// Contains reports whether key is pending.
func (rs RefreshSet) Contains(key string) bool {
	_, ok := rs[key]
	return ok
}

// Keys returns the pending keys in sorted order. Repeated calls without an
// intervening Remove or Clear return identical slices.
func (rs RefreshSet) Keys() []string {
	keys := make([]string, 0, len(rs))
	for k := range rs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the set as a sorted array of keys.
func (rs RefreshSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.Keys())
}

// UnmarshalJSON rebuilds the set from an array of keys.
func (rs *RefreshSet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	set := make(RefreshSet, len(keys))
	for _, k := range keys {
		set.Add(k)
	}
	*rs = set
	return nil
}
