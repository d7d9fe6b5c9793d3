package plugin

import (
	"errors"
	"testing"
)

func newTestPlugin(name string, priority int, impls map[string]Impl) *Plugin {
	return &Plugin{Name: name, Priority: priority, Impls: impls}
}

func TestFreezeOrdersByPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(newTestPlugin("late", 10, nil))
	r.Register(newTestPlugin("early", -10, nil))
	r.Register(newTestPlugin("mid", 0, nil))
	snap := r.Freeze()
	names := []string{}
	for _, p := range snap.plugins {
		names = append(names, p.Name)
	}
	want := []string{"early", "mid", "late"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("Freeze order = %v, want %v", names, want)
		}
	}
}

func TestSelectBareNameNarrowsSet(t *testing.T) {
	r := NewRegistry()
	r.Register(newTestPlugin("a", 0, nil))
	r.Register(newTestPlugin("b", 0, nil))
	r.Register(newTestPlugin("c", 0, nil))
	if err := r.Select([]string{"a", "+c"}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	snap := r.Freeze()
	if len(snap.plugins) != 2 {
		t.Fatalf("enabled count = %d, want 2 (a, c)", len(snap.plugins))
	}
}

func TestSelectUnknownPluginErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(newTestPlugin("a", 0, nil))
	if err := r.Select([]string{"+nope"}); err == nil {
		t.Fatal("expected an error selecting an unregistered plugin")
	}
}

func TestBroadcastContinuesPastError(t *testing.T) {
	calledB := false
	r := NewRegistry()
	r.Register(newTestPlugin("a", 0, map[string]Impl{
		"hook": func(args ...any) (any, error) { return nil, errors.New("boom") },
	}))
	r.Register(newTestPlugin("b", 1, map[string]Impl{
		"hook": func(args ...any) (any, error) { calledB = true; return nil, nil },
	}))
	snap := r.Freeze()
	snap.Broadcast("hook")
	if !calledB {
		t.Fatal("Broadcast should continue calling later plugins after one errors")
	}
}

func TestVetoAllFirstNonNilWins(t *testing.T) {
	r := NewRegistry()
	r.Register(newTestPlugin("a", 0, map[string]Impl{
		"hook": func(args ...any) (any, error) { return nil, nil },
	}))
	r.Register(newTestPlugin("b", 1, map[string]Impl{
		"hook": func(args ...any) (any, error) { return false, nil },
	}))
	snap := r.Freeze()
	if snap.VetoAll("hook") {
		t.Fatal("VetoAll should return false once a plugin vetoes")
	}
}

func TestVetoAllDefaultsTrueWhenNoImpl(t *testing.T) {
	r := NewRegistry()
	snap := r.Freeze()
	if !snap.VetoAll("nonexistent-hook") {
		t.Fatal("VetoAll with no implementing plugin should permit (true)")
	}
}

func TestFirstValueReturnsUnsupportedSchemeError(t *testing.T) {
	r := NewRegistry()
	snap := r.Freeze()
	_, err := snap.FirstValue("norm_outpath", "s3")
	if err == nil {
		t.Fatal("expected an error when no plugin implements the hook for this scheme")
	}
}

func TestFirstValueSkipsErroringPlugin(t *testing.T) {
	r := NewRegistry()
	r.Register(newTestPlugin("bad", 0, map[string]Impl{
		"hook": func(args ...any) (any, error) { return nil, errors.New("boom") },
	}))
	r.Register(newTestPlugin("good", 1, map[string]Impl{
		"hook": func(args ...any) (any, error) { return "value", nil },
	}))
	snap := r.Freeze()
	v, err := snap.FirstValue("hook", "file")
	if err != nil {
		t.Fatalf("FirstValue: %v", err)
	}
	if v != "value" {
		t.Fatalf("FirstValue = %v, want %q", v, "value")
	}
}
