package job

import (
	"os"
	"path/filepath"
	"testing"

	"pipex/pkg/model"
	"pipex/pkg/plugin"
)

func testSnapshot() *plugin.Snapshot {
	r := plugin.NewRegistry()
	_, reg := plugin.NewCorePlugin()
	r.Register(reg)
	return r.Freeze()
}

// testSnapshotWithBroadcastSpy returns a snapshot whose sole plugin records
// the last broadcast hook name it saw into *seen.
func testSnapshotWithBroadcastSpy(seen *string) *plugin.Snapshot {
	r := plugin.NewRegistry()
	spy := &plugin.Plugin{Name: "spy", Impls: map[string]plugin.Impl{}}
	for _, hook := range []string{
		plugin.OnJobQueued, plugin.OnJobSubmitted, plugin.OnJobStarted,
		plugin.OnJobSucceeded, plugin.OnJobFailed, plugin.OnJobCached, plugin.OnJobKilled,
	} {
		hook := hook
		spy.Impls[hook] = func(args ...any) (any, error) { *seen = hook; return nil, nil }
	}
	r.Register(spy)
	return r.Freeze()
}

func TestNewLaysOutDirectory(t *testing.T) {
	workdir := t.TempDir()
	j, err := New("pipe1", "align", "sample1", 0, workdir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	wantDir := filepath.Join(workdir, "pipe1", "align", "0")
	if j.Dir != wantDir {
		t.Fatalf("Dir = %q, want %q", j.Dir, wantDir)
	}
	if _, err := os.Stat(filepath.Join(wantDir, "output")); err != nil {
		t.Fatalf("New should create the output subdir: %v", err)
	}
	if j.Status != model.StatusInit {
		t.Fatalf("Status = %v, want StatusInit", j.Status)
	}
}

func TestWriteScriptAndAppendStderr(t *testing.T) {
	workdir := t.TempDir()
	j, err := New("p", "proc", "t", 0, workdir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	j.Script = "echo hi\n"
	if err := j.writeScript(); err != nil {
		t.Fatalf("writeScript: %v", err)
	}
	b, err := os.ReadFile(j.scriptPath())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != j.Script {
		t.Fatalf("script contents = %q, want %q", b, j.Script)
	}
	j.appendStderr("missing output: foo")
	b, err = os.ReadFile(j.stderrPath())
	if err != nil {
		t.Fatalf("ReadFile(stderr): %v", err)
	}
	if string(b) != "missing output: foo\n" {
		t.Fatalf("stderr contents = %q", b)
	}
}

func TestSchemeDetection(t *testing.T) {
	cases := map[string]string{
		"/local/path":          "",
		"s3://bucket/key":      "s3",
		"relative/path.txt":    "",
		"https://example.com/": "https",
	}
	for uri, want := range cases {
		if got := scheme(uri); got != want {
			t.Fatalf("scheme(%q) = %q, want %q", uri, got, want)
		}
	}
}
