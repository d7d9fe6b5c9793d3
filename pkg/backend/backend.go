// Package backend implements the scheduler back-ends (spec §4.3): an
// abstract Wrap/Submit/Poll/Kill interface over opaque jobs, with
// concrete local, ssh, sge, slurm, dry and winrm implementations. Only
// the abstract interface and the local/dry back-ends are load-bearing
// for spec.md's testable properties; ssh/sge/slurm/winrm implement the
// real wire protocols but their transports are external collaborators
// per spec §1 — this package only specifies their wrapper/directive
// construction precisely (spec §6, scenario S5) and talks to the real
// transport through widely-used libraries rather than hand-rolled wire
// code.
package backend

import "fmt"

// PollStatus is the non-blocking status a back-end reports for a
// submitted job (spec §4.3).
type PollStatus string

const (
	PollQueued    PollStatus = "queued"
	PollRunning   PollStatus = "running"
	PollSucceeded PollStatus = "succeeded"
	PollFailed    PollStatus = "failed"
	PollUnknown   PollStatus = "unknown"
)

// Handle is an opaque back-end job id (a PID, a qsub/sbatch job number, an
// ssh/winrm session token).
type Handle string

// JobView is the read-only slice of job state a back-end needs. It never
// exposes the job's state machine — back-ends only see files and paths.
type JobView struct {
	Pipeline string
	Proc     string
	Tag      string
	Index    int

	Dir        string // workdir/<pipeline>/<proc>/<i>/
	ScriptPath string // job.script
	StdoutPath string
	StderrPath string
	RCPath     string

	Lang          string
	SchedulerOpts map[string]any

	// PreScript/PostScript are user-supplied fragments prepended/appended
	// to the wrapper (spec §8 property 8: directive determinism holds
	// "modulo user-provided pre/post_script").
	PreScript  string
	PostScript string
}

// WrapperPath returns the back-end-specific wrapper script path for name.
func (j *JobView) WrapperPath(backendName string) string {
	return j.Dir + "/job.wrapped." + backendName
}

// Backend is the abstract execution regime a process submits jobs to.
type Backend interface {
	Name() string
	// Wrap produces a back-end-specific wrapper script on disk that runs
	// job.script, traps signals to write job.rc, and for cluster
	// back-ends emits the correct directive header. Returns the wrapper
	// path.
	Wrap(j *JobView) (string, error)
	// Submit launches or enqueues the wrapped job and returns a handle.
	Submit(j *JobView) (Handle, error)
	// Poll is a non-blocking status probe.
	Poll(j *JobView, h Handle) (PollStatus, error)
	// Kill makes a best-effort attempt to terminate the job.
	Kill(j *JobView, h Handle) error
}

// New constructs the named back-end. Unknown names are a ConfigError at
// the driver layer; New itself just reports "unknown back-end".
func New(name string) (Backend, error) {
	switch name {
	case "local", "":
		return NewLocal(), nil
	case "dry":
		return NewDry(), nil
	case "ssh":
		return NewSSH(), nil
	case "sge":
		return NewSGE(), nil
	case "slurm":
		return NewSlurm(), nil
	case "winrm":
		return NewWinRM(), nil
	default:
		return nil, fmt.Errorf("backend: unknown scheduler %q", name)
	}
}
