package engine

import (
	"fmt"

	"github.com/hstream-dev/hstream/pkg/component"
)

// Script is the user-provided page script. It is re-executed by the engine on
// every triggering event and declares its output through the Ctx it receives.
// Scripts must not retain the Ctx beyond the call.
type Script func(*Ctx) error

// Ctx is the explicit execution context handed to the user script. It carries
// the session identity and collects component declarations into a scratch set
// that is committed only if the script completes without error.
type Ctx struct {
	sessionID string
	out       *component.Set
	seq       int
	markupSeq int
}

func newCtx(sessionID string, out *component.Set) *Ctx {
	return &Ctx{sessionID: sessionID, out: out}
}

// SessionID returns the visitor's session identifier.
func (c *Ctx) SessionID() string {
	return c.sessionID
}

// Declare registers a component record under key, overwriting any prior record
// with that key while keeping its position in declaration order. An empty key
// is derived deterministically from the label and declaration sequence, so
// repeated runs of the same script produce identical keys.
//
// A visitor-entered value already stored under the key survives the
// redeclaration: scripts describe output, visitors own input.
func (c *Ctx) Declare(key string, kind component.Kind, label string, attrs map[string]string) string {
	c.seq++
	if key == "" {
		key = component.DeriveKey(label, c.seq)
	}

	rec := &component.Record{
		Key:   key,
		Kind:  kind,
		Label: label,
		Attrs: attrs,
	}
	if prev, ok := c.out.Get(key); ok {
		rec.CurrentValue = prev.CurrentValue
	}
	c.out.Put(rec)
	return key
}

// Write declares a display component showing label.
func (c *Ctx) Write(key, label string) string {
	return c.Declare(key, component.KindDisplay, label, nil)
}

// Nav declares a navigation component. Refreshes of Nav components instruct
// the client to retarget the navigation region.
func (c *Ctx) Nav(key, label string) string {
	return c.Declare(key, component.KindNav, label, nil)
}

// TextInput declares an input component and returns the visitor's current
// value for it, or the empty string on first declaration.
func (c *Ctx) TextInput(key, label string) string {
	k := c.Declare(key, component.KindInput, label, nil)
	return c.Value(k)
}

// Value returns the visitor-supplied value for an already-declared component.
func (c *Ctx) Value(key string) string {
	if rec, ok := c.out.Get(key); ok {
		return rec.CurrentValue
	}
	return ""
}

// RawHTML emits a block of markup verbatim. Markup blocks are stored as
// synthetic records under internal keys and are invisible to reconciliation;
// a new form wrapper or divider must not force a full page reload.
func (c *Ctx) RawHTML(markup string) {
	c.markupSeq++
	c.out.Put(&component.Record{
		Key:   fmt.Sprintf("%s%03d", component.MarkupKeyPrefix, c.markupSeq),
		Kind:  component.KindMarkup,
		Label: markup,
	})
}
