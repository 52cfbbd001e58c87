package diag

import "testing"

func TestBagHasErrors(t *testing.T) {
	b := New()
	if b.HasErrors() {
		t.Fatalf("empty bag should have no errors")
	}
	b.Warnf("f.dec", 3, "unused variable %s", "x")
	if b.HasErrors() {
		t.Fatalf("warnings alone should not count as errors")
	}
	b.Errorf("f.dec", 5, "unknown name %q", "Foo")
	if !b.HasErrors() {
		t.Fatalf("expected HasErrors true after Errorf")
	}
	if len(b.All()) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(b.All()))
	}
}

func TestMerge(t *testing.T) {
	a := New()
	a.Errorf("a.dec", 1, "boom")
	b := New()
	b.Errorf("b.dec", 2, "also boom")
	a.Merge(b)
	if len(a.All()) != 2 {
		t.Fatalf("expected merged bag to have 2 items, got %d", len(a.All()))
	}
}
