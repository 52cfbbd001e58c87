package token

import "testing"

func TestVagueness(t *testing.T) {
	if Int.IsVague() {
		t.Errorf("Int should be concrete")
	}
	if !Number.IsVague() {
		t.Errorf("Number (Int|Float) should be vague")
	}
	if Number.Intersect(Int) != Int {
		t.Errorf("Number ∩ Int should be Int")
	}
	if Number.Intersect(String) != 0 {
		t.Errorf("Number ∩ String should be empty")
	}
}

func TestFromKeyword(t *testing.T) {
	cases := map[string]Type{
		"Integer":   Int,
		"Float":     Float,
		"String":    String,
		"Boolean":   Bool,
		"Execution": Execution,
	}
	for word, want := range cases {
		got, ok := FromKeyword(word)
		if !ok || got != want {
			t.Errorf("FromKeyword(%q) = %v,%v want %v,true", word, got, ok, want)
		}
	}
	if _, ok := FromKeyword("NotAType"); ok {
		t.Errorf("expected ok=false for unknown keyword")
	}
}

func TestValueString(t *testing.T) {
	if Int64(5).String() != "5" {
		t.Errorf("Int64(5).String() = %q", Int64(5).String())
	}
	if Boolean(true).String() != "true" {
		t.Errorf("Boolean(true).String() = %q", Boolean(true).String())
	}
}
