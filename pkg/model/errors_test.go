package model

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := NewError(KindScheduler, "submitting job", inner)
	if !errors.Is(e, inner) {
		t.Fatal("errors.Is should see through Error.Unwrap to the wrapped cause")
	}
	if e.Error() == "" {
		t.Fatal("Error() should not be empty")
	}
}

func TestUnsupportedSchemeNamesScheme(t *testing.T) {
	e := UnsupportedScheme("norm_outpath", "s3")
	if e.Kind != KindUnsupportedScheme {
		t.Fatalf("Kind = %v, want KindUnsupportedScheme", e.Kind)
	}
	if !contains(e.Msg, "s3") || !contains(e.Msg, "norm_outpath") {
		t.Fatalf("Msg = %q, want it to name both the hook and the scheme", e.Msg)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
