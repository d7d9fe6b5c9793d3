package backend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSGEWrapEmitsDirectivesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	j := &JobView{
		Proc:       "align",
		Tag:        "sample1",
		Index:      0,
		Dir:        dir,
		ScriptPath: filepath.Join(dir, "job.script"),
		StdoutPath: filepath.Join(dir, "job.out"),
		StderrPath: filepath.Join(dir, "job.err"),
		RCPath:     filepath.Join(dir, "job.rc"),
		SchedulerOpts: map[string]any{
			"sge_pe":   "smp 4",
			"sge_l":    "h_vmem=8G",
			"other_ok": "ignored",
		},
	}
	b := NewSGE()
	path, err := b.Wrap(j)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	b2, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(b2)
	for _, want := range []string{
		"#$ -pe smp 4",
		"#$ -l h_vmem=8G",
		"#$ -N align_sample1.0",
		"#$ -cwd",
		"#$ -o " + j.StdoutPath,
		"#$ -e " + j.StderrPath,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("wrapper script missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "other_ok") {
		t.Fatalf("wrapper script should not emit a non-prefixed opt key:\n%s", out)
	}
}

func TestSGEWrapRespectsExplicitReservedKeys(t *testing.T) {
	dir := t.TempDir()
	j := &JobView{
		Proc:       "align",
		Tag:        "s1",
		Dir:        dir,
		ScriptPath: filepath.Join(dir, "job.script"),
		StdoutPath: filepath.Join(dir, "job.out"),
		StderrPath: filepath.Join(dir, "job.err"),
		RCPath:     filepath.Join(dir, "job.rc"),
		SchedulerOpts: map[string]any{
			"sge_N": "custom-name",
		},
	}
	b := NewSGE()
	path, err := b.Wrap(j)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	out, _ := os.ReadFile(path)
	if strings.Count(string(out), "#$ -N") != 1 {
		t.Fatalf("expected exactly one -N directive when sge_N is set explicitly:\n%s", out)
	}
}

func TestSlurmWrapUsesSBATCHMarker(t *testing.T) {
	dir := t.TempDir()
	j := &JobView{
		Proc:       "call",
		Tag:        "s2",
		Dir:        dir,
		ScriptPath: filepath.Join(dir, "job.script"),
		StdoutPath: filepath.Join(dir, "job.out"),
		StderrPath: filepath.Join(dir, "job.err"),
		RCPath:     filepath.Join(dir, "job.rc"),
		SchedulerOpts: map[string]any{
			"slurm_mem": "4G",
		},
	}
	b := NewSlurm()
	path, err := b.Wrap(j)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	out, _ := os.ReadFile(path)
	if !strings.Contains(string(out), "#SBATCH -mem 4G") {
		t.Fatalf("wrapper script missing slurm directive:\n%s", out)
	}
	if !strings.Contains(string(out), "trap 'echo $? > "+j.RCPath+"' EXIT") {
		t.Fatalf("wrapper script missing the rc trap:\n%s", out)
	}
}
