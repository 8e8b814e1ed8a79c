package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type namedHandler string

func (h namedHandler) Type() string       { return string(h) }
func (h namedHandler) Run(*Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(namedHandler("b")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(namedHandler("a")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(namedHandler("a")); err == nil {
		t.Fatalf("duplicate registration must fail")
	}
	if err := r.Register(namedHandler("")); err == nil {
		t.Fatalf("empty type must fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("nil handler must fail")
	}
	if _, ok := r.Get("a"); !ok {
		t.Fatalf("Get(a) missing")
	}
	if diff := cmp.Diff([]string{"a", "b"}, r.Types()); diff != "" {
		t.Fatalf("Types (-want +got):\n%s", diff)
	}
}

func TestContextPayload(t *testing.T) {
	c := NewContext(nil, nil, nil, nil)
	c.payload = map[string]any{"species": " hvo ", "n": float64(7), "s": "12", "nil": nil}
	if got := c.PayloadString("species"); got != "hvo" {
		t.Fatalf("PayloadString: %q", got)
	}
	if got := c.PayloadString("nil"); got != "" {
		t.Fatalf("nil value: %q", got)
	}
	if c.PayloadInt("n", 0) != 7 || c.PayloadInt("s", 0) != 12 || c.PayloadInt("missing", 3) != 3 {
		t.Fatalf("PayloadInt mismatch")
	}
}
