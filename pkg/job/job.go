// Package job implements the per-job state machine and cache engine
// (spec §4.4/§4.5): given a rendered script and I/O row, it decides
// whether to reuse a cached result, submits to a back-end, tracks status
// through to a terminal state, and retries on failure.
package job

import (
	"fmt"
	"os"
	"path/filepath"

	"pipex/pkg/backend"
	"pipex/pkg/model"
	"pipex/pkg/plugin"
)

// Job is one invocation of a process on one input row.
type Job struct {
	Pipeline string
	Proc     string
	Tag      string
	Index    int

	Dir string // workdir/<pipeline>/<proc>/<i>/

	InputRow   map[string]any
	OutputRow  map[string]any
	InputKind  map[string]model.SlotType // slot name -> type, for signature/cache normalization
	OutputDecl []model.OutputSlot

	Script string // rendered body

	Cache         model.CacheMode
	ErrorStrategy model.ErrorStrategy
	NumRetries    int
	Dirsig        int

	SchedulerName string
	SchedulerOpts map[string]any
	PreScript     string
	PostScript    string
	Lang          string

	Status     model.Status
	TrialCount int

	Backend  backend.Backend
	Plugins  *plugin.Snapshot
}

// New lays out the job's directory and returns an initialized Job in
// StatusInit.
func New(pipeline, proc, tag string, index int, workdir string) (*Job, error) {
	dir := filepath.Join(workdir, pipeline, proc, fmt.Sprint(index))
	if err := os.MkdirAll(filepath.Join(dir, "output"), 0o755); err != nil {
		return nil, err
	}
	return &Job{
		Pipeline: pipeline,
		Proc:     proc,
		Tag:      tag,
		Index:    index,
		Dir:      dir,
		Status:   model.StatusInit,
	}, nil
}

func (j *Job) scriptPath() string { return filepath.Join(j.Dir, "job.script") }
func (j *Job) stdoutPath() string { return filepath.Join(j.Dir, "job.stdout") }
func (j *Job) stderrPath() string { return filepath.Join(j.Dir, "job.stderr") }
func (j *Job) rcPath() string     { return filepath.Join(j.Dir, "job.rc") }
func (j *Job) sigPath() string    { return filepath.Join(j.Dir, "job.signature.json") }
func (j *Job) outputDir() string  { return filepath.Join(j.Dir, "output") }

// OutputDirPath exposes the job's output directory to package process,
// which needs it to normalize each declared output's rendered path.
func (j *Job) OutputDirPath() string { return j.outputDir() }

func (j *Job) view() *backend.JobView {
	return &backend.JobView{
		Pipeline:      j.Pipeline,
		Proc:          j.Proc,
		Tag:           j.Tag,
		Index:         j.Index,
		Dir:           j.Dir,
		ScriptPath:    j.scriptPath(),
		StdoutPath:    j.stdoutPath(),
		StderrPath:    j.stderrPath(),
		RCPath:        j.rcPath(),
		Lang:          j.Lang,
		SchedulerOpts: j.SchedulerOpts,
		PreScript:     j.PreScript,
		PostScript:    j.PostScript,
	}
}

// writeScript persists the rendered script body to job.script.
func (j *Job) writeScript() error {
	return os.WriteFile(j.scriptPath(), []byte(j.Script), 0o644)
}

// appendStderr appends a diagnostic line to job.stderr (spec §4.5: "stderr
// file is appended with a diagnostic describing which output was
// missing").
func (j *Job) appendStderr(line string) {
	f, err := os.OpenFile(j.stderrPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}

func (j *Job) broadcast(hook string) {
	j.Plugins.Broadcast(hook, j.Proc, j)
}
