package component

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Kind determines how a component is rendered and refreshed on the client.
type Kind string

const (
	// KindDisplay is a plain output component (text, markdown, headings).
	KindDisplay Kind = "display"

	// KindInput is a component that accepts a visitor-supplied value.
	KindInput Kind = "input"

	// KindNav is a navigation component. Refreshes of Nav components carry a
	// retarget hint so the client swaps the navigation region instead of the
	// component's own container.
	KindNav Kind = "nav"

	// KindMarkup is raw markup emitted by the HTML builder. Markup records are
	// internal bookkeeping and are never visitor-addressable components.
	KindMarkup Kind = "markup"
)

// MarkupKeyPrefix marks synthetic records produced by the HTML builder.
// Records under this prefix are excluded from reconciliation.
const MarkupKeyPrefix = "_markup/"

// IsMarkupKey reports whether key names a synthetic markup record.
func IsMarkupKey(key string) bool {
	return strings.HasPrefix(key, MarkupKeyPrefix)
}

// Record is one declared unit of visitor-facing output, addressed by a stable
// key unique within a session's component set.
type Record struct {
	// Key is the stable identifier, assigned by the script author or derived
	// from the label and declaration order.
	Key string `json:"key"`

	// Kind determines render and refresh semantics.
	Kind Kind `json:"kind"`

	// Label is the rendered content for this component at this script run.
	Label string `json:"label"`

	// CurrentValue is the visitor-supplied input value, round-tripped from the
	// browser. It is excluded from change detection: the browser already
	// reflects its own input.
	CurrentValue string `json:"current_value,omitempty"`

	// Attrs is arbitrary script-defined metadata, compared verbatim during
	// reconciliation.
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Attrs != nil {
		clone.Attrs = make(map[string]string, len(r.Attrs))
		for k, v := range r.Attrs {
			clone.Attrs[k] = v
		}
	}
	return &clone
}

// EqualIgnoringValue reports whether two records are equal on every attribute
// except CurrentValue. Used by the diff: value-only changes must never trigger
// a refresh.
func (r *Record) EqualIgnoringValue(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Key != other.Key || r.Kind != other.Kind || r.Label != other.Label {
		return false
	}
	if len(r.Attrs) != len(other.Attrs) {
		return false
	}
	for k, v := range r.Attrs {
		ov, ok := other.Attrs[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Set is an insertion-ordered mapping of component key to record. Declaration
// order in the user script is significant: it is preserved across overwrites
// and round-trips through serialization.
type Set struct {
	order   []string
	records map[string]*Record
}

// NewSet returns an empty component set.
func NewSet() *Set {
	return &Set{records: make(map[string]*Record)}
}

// Put inserts or overwrites the record under its key. Overwriting keeps the
// key's original position in the declaration order.
func (s *Set) Put(rec *Record) {
	if rec == nil || rec.Key == "" {
		return
	}
	if _, exists := s.records[rec.Key]; !exists {
		s.order = append(s.order, rec.Key)
	}
	s.records[rec.Key] = rec
}

// Get returns the record for key, if present.
func (s *Set) Get(key string) (*Record, bool) {
	rec, ok := s.records[key]
	return rec, ok
}

// Len returns the number of records, including markup records.
func (s *Set) Len() int {
	return len(s.order)
}

// Keys returns all keys in declaration order.
func (s *Set) Keys() []string {
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// VisibleKeys returns declaration-ordered keys excluding synthetic markup
// records. These are the keys reconciliation operates on.
func (s *Set) VisibleKeys() []string {
	keys := make([]string, 0, len(s.order))
	for _, k := range s.order {
		if !IsMarkupKey(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Records returns all records in declaration order.
func (s *Set) Records() []*Record {
	recs := make([]*Record, 0, len(s.order))
	for _, k := range s.order {
		recs = append(recs, s.records[k])
	}
	return recs
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	clone := NewSet()
	for _, k := range s.order {
		clone.Put(s.records[k].Clone())
	}
	return clone
}

// MarshalJSON encodes the set as an ordered array of records.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Records())
}

// UnmarshalJSON rebuilds the set from an ordered array of records.
func (s *Set) UnmarshalJSON(data []byte) error {
	var recs []*Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return err
	}
	s.order = nil
	s.records = make(map[string]*Record, len(recs))
	for _, rec := range recs {
		s.Put(rec)
	}
	return nil
}

// DeriveKey produces a stable key for a component declared without one. The
// key is derived from the label where possible, with the declaration sequence
// as a tiebreaker, so repeated script runs assign identical keys.
func DeriveKey(label string, seq int) string {
	slug := slugify(label)
	if slug == "" {
		return fmt.Sprintf("c%03d", seq)
	}
	return slug
}

// slugify lowercases the label and collapses non-alphanumeric runs to single
// hyphens, truncated to keep keys readable in markup and headers.
func slugify(label string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(label) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
