package backend

import "os"

// Dry emits the wrapper script but never runs it, synthesizing success
// immediately — used to validate pipeline wiring without touching real
// compute.
type Dry struct{}

func NewDry() *Dry { return &Dry{} }

func (d *Dry) Name() string { return "dry" }

func (d *Dry) Wrap(j *JobView) (string, error) {
	path := j.WrapperPath("dry")
	script := "#!/bin/sh\n# dry-run: not executed\n" + wrapperScript(j, "")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func (d *Dry) Submit(j *JobView) (Handle, error) {
	if err := os.WriteFile(j.RCPath, []byte("0"), 0o644); err != nil {
		return "", err
	}
	os.WriteFile(j.StdoutPath, nil, 0o644)
	os.WriteFile(j.StderrPath, nil, 0o644)
	return "dry", nil
}

func (d *Dry) Poll(j *JobView, h Handle) (PollStatus, error) {
	return PollSucceeded, nil
}

func (d *Dry) Kill(j *JobView, h Handle) error { return nil }
