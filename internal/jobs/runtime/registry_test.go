package runtime

import "testing"

type stubHandler struct{ typ string }

func (h *stubHandler) Type() string       { return h.typ }
func (h *stubHandler) Run(*Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&stubHandler{typ: "ingest_books"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := r.Get("ingest_books"); !ok {
		t.Fatal("registered handler not found")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Fatal("unknown type should not resolve")
	}

	if err := r.Register(&stubHandler{typ: "ingest_books"}); err == nil {
		t.Fatal("duplicate registration must fail")
	}
	if err := r.Register(&stubHandler{typ: ""}); err == nil {
		t.Fatal("empty type must fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("nil handler must fail")
	}
}
