package job

import (
	"os"
	"path/filepath"
	"testing"

	"pipex/pkg/model"
)

func newFileJob(t *testing.T, workdir, inputPath string) *Job {
	t.Helper()
	j, err := New("pipe", "proc", "t0", 0, workdir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	j.Plugins = testSnapshot()
	j.Script = "cat " + inputPath
	j.InputKind = map[string]model.SlotType{"in": model.SlotFile}
	j.InputRow = map[string]any{"in": inputPath}
	outPath := filepath.Join(j.OutputDirPath(), "out.txt")
	j.OutputRow = map[string]any{"out": outPath}
	j.OutputDecl = []model.OutputSlot{{Name: "out", Type: model.SlotFile}}
	j.SchedulerName = "local"
	return j
}

func TestBuildSignatureNormalizesFileInput(t *testing.T) {
	workdir := t.TempDir()
	inPath := filepath.Join(workdir, "in.txt")
	if err := os.WriteFile(inPath, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	j := newFileJob(t, workdir, inPath)
	sig, err := j.buildSignature()
	if err != nil {
		t.Fatalf("buildSignature: %v", err)
	}
	fm, ok := sig.Input["in"].(*model.FileMtime)
	if !ok {
		t.Fatalf("Input[in] = %#v, want *model.FileMtime", sig.Input["in"])
	}
	if fm.Path != inPath {
		t.Fatalf("FileMtime.Path = %q, want %q", fm.Path, inPath)
	}
}

func TestWriteReadSignatureRoundTrip(t *testing.T) {
	workdir := t.TempDir()
	inPath := filepath.Join(workdir, "in.txt")
	os.WriteFile(inPath, []byte("x"), 0o644)
	j := newFileJob(t, workdir, inPath)
	sig, err := j.buildSignature()
	if err != nil {
		t.Fatalf("buildSignature: %v", err)
	}
	if err := j.writeSignature(sig); err != nil {
		t.Fatalf("writeSignature: %v", err)
	}
	got, ok := j.readSignature()
	if !ok {
		t.Fatal("readSignature: expected to find the signature just written")
	}
	if got.Script != sig.Script || got.Scheduler != sig.Scheduler {
		t.Fatalf("readSignature round-trip mismatch: got %+v, want %+v", got, sig)
	}
}

func TestCacheMissesWithoutPriorSignature(t *testing.T) {
	workdir := t.TempDir()
	inPath := filepath.Join(workdir, "in.txt")
	os.WriteFile(inPath, []byte("x"), 0o644)
	j := newFileJob(t, workdir, inPath)
	sig, err := j.buildSignature()
	if err != nil {
		t.Fatalf("buildSignature: %v", err)
	}
	hit, err := j.cacheHit(sig)
	if err != nil {
		t.Fatalf("cacheHit: %v", err)
	}
	if hit {
		t.Fatal("cacheHit should be false with no prior signature on disk")
	}
}

func TestCacheHitRequiresOutputsToExist(t *testing.T) {
	workdir := t.TempDir()
	inPath := filepath.Join(workdir, "in.txt")
	os.WriteFile(inPath, []byte("x"), 0o644)
	j := newFileJob(t, workdir, inPath)
	sig, err := j.buildSignature()
	if err != nil {
		t.Fatalf("buildSignature: %v", err)
	}
	if err := j.writeSignature(sig); err != nil {
		t.Fatalf("writeSignature: %v", err)
	}

	// Output file doesn't exist yet: same signature should still miss.
	hit, err := j.cacheHit(sig)
	if err != nil {
		t.Fatalf("cacheHit: %v", err)
	}
	if hit {
		t.Fatal("cacheHit should be false when the declared output is missing on disk")
	}

	outPath := j.OutputRow["out"].(string)
	if err := os.WriteFile(outPath, []byte("result"), 0o644); err != nil {
		t.Fatalf("WriteFile(out): %v", err)
	}
	hit, err = j.cacheHit(sig)
	if err != nil {
		t.Fatalf("cacheHit: %v", err)
	}
	if !hit {
		t.Fatal("cacheHit should be true once script/input/output all match and the output exists")
	}
}

func TestCacheMissesOnScriptChange(t *testing.T) {
	workdir := t.TempDir()
	inPath := filepath.Join(workdir, "in.txt")
	os.WriteFile(inPath, []byte("x"), 0o644)
	j := newFileJob(t, workdir, inPath)
	sig, err := j.buildSignature()
	if err != nil {
		t.Fatalf("buildSignature: %v", err)
	}
	j.writeSignature(sig)
	outPath := j.OutputRow["out"].(string)
	os.WriteFile(outPath, []byte("result"), 0o644)

	j.Script = "cat " + inPath + " # changed"
	sig2, err := j.buildSignature()
	if err != nil {
		t.Fatalf("buildSignature: %v", err)
	}
	hit, err := j.cacheHit(sig2)
	if err != nil {
		t.Fatalf("cacheHit: %v", err)
	}
	if hit {
		t.Fatal("cacheHit should be false once the script text changes")
	}
}

func TestVerifyOutputsReportsMissingSlot(t *testing.T) {
	workdir := t.TempDir()
	inPath := filepath.Join(workdir, "in.txt")
	os.WriteFile(inPath, []byte("x"), 0o644)
	j := newFileJob(t, workdir, inPath)
	missing, err := j.verifyOutputs()
	if err != nil {
		t.Fatalf("verifyOutputs: %v", err)
	}
	if missing != "out" {
		t.Fatalf("verifyOutputs missing = %q, want %q", missing, "out")
	}
	outPath := j.OutputRow["out"].(string)
	os.WriteFile(outPath, []byte("r"), 0o644)
	missing, err = j.verifyOutputs()
	if err != nil {
		t.Fatalf("verifyOutputs: %v", err)
	}
	if missing != "" {
		t.Fatalf("verifyOutputs missing = %q, want empty once the output exists", missing)
	}
}

func TestClearDeclaredOutputsRemovesFile(t *testing.T) {
	workdir := t.TempDir()
	inPath := filepath.Join(workdir, "in.txt")
	os.WriteFile(inPath, []byte("x"), 0o644)
	j := newFileJob(t, workdir, inPath)
	outPath := j.OutputRow["out"].(string)
	os.WriteFile(outPath, []byte("stale"), 0o644)
	if err := j.clearDeclaredOutputs(); err != nil {
		t.Fatalf("clearDeclaredOutputs: %v", err)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatal("clearDeclaredOutputs should have removed the stale output file")
	}
}
