package backend

import "testing"

func TestNewKnownBackends(t *testing.T) {
	for _, name := range []string{"local", "", "dry", "ssh", "sge", "slurm", "winrm"} {
		b, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if b == nil {
			t.Fatalf("New(%q) returned a nil backend", name)
		}
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("made-up"); err == nil {
		t.Fatal("expected an error for an unknown scheduler name")
	}
}

func TestLocalName(t *testing.T) {
	l := NewLocal()
	if l.Name() != "local" {
		t.Fatalf("Name() = %q, want local", l.Name())
	}
}
