package engine

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hstream-dev/hstream/pkg/component"
)

func TestCtxDeclare(t *testing.T) {
	t.Run("ExplicitKey", func(t *testing.T) {
		c := newCtx("s1", component.NewSet())
		key := c.Write("title", "Welcome")
		if key != "title" {
			t.Errorf("key = %q, want %q", key, "title")
		}
	})

	t.Run("DerivedKeyIsStable", func(t *testing.T) {
		c1 := newCtx("s1", component.NewSet())
		c2 := newCtx("s1", component.NewSet())
		k1 := c1.Write("", "Hello World")
		k2 := c2.Write("", "Hello World")
		if k1 != k2 {
			t.Errorf("derived keys differ across runs: %q vs %q", k1, k2)
		}
	})

	t.Run("ValueSurvivesRedeclaration", func(t *testing.T) {
		set := component.NewSet()
		set.Put(&component.Record{Key: "name", Kind: component.KindInput, Label: "Old label", CurrentValue: "Ada"})

		c := newCtx("s1", set)
		got := c.TextInput("name", "New label")
		if got != "Ada" {
			t.Errorf("TextInput returned %q, want preserved value %q", got, "Ada")
		}
		rec, _ := set.Get("name")
		if rec.Label != "New label" || rec.CurrentValue != "Ada" {
			t.Errorf("record = %+v, want new label with old value", rec)
		}
	})

	t.Run("ValueForUndeclaredKey", func(t *testing.T) {
		c := newCtx("s1", component.NewSet())
		if got := c.Value("missing"); got != "" {
			t.Errorf("Value(missing) = %q, want empty", got)
		}
	})
}

func TestCtxRawHTML(t *testing.T) {
	set := component.NewSet()
	c := newCtx("s1", set)
	c.Write("title", "Hi")
	c.RawHTML("<hr>")
	c.RawHTML("<p>two</p>")

	if got := set.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	// Markup records get internal keys, invisible to reconciliation.
	if got := set.VisibleKeys(); !reflect.DeepEqual(got, []string{"title"}) {
		t.Errorf("VisibleKeys() = %v, want [title]", got)
	}
	for _, rec := range set.Records() {
		if rec.Kind == component.KindMarkup && !strings.HasPrefix(rec.Key, component.MarkupKeyPrefix) {
			t.Errorf("markup record %q lacks internal prefix", rec.Key)
		}
	}
}
