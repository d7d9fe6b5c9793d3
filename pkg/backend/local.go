package backend

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// Local runs jobs by fork/exec on the engine's own host, capturing rc
// directly from the child process's exit status (no wrapper-script trap
// needed, unlike the cluster back-ends). Grounded on the teacher's
// os/exec + captured-buffer idiom (scheduler.performBatchFping,
// worker.Pool.executePlugin), generalized from a batch external-command
// call to a long-lived per-job child process.
type Local struct {
	mu    sync.Mutex
	procs map[Handle]*exec.Cmd
}

func NewLocal() *Local { return &Local{procs: map[Handle]*exec.Cmd{}} }

func (l *Local) Name() string { return "local" }

func (l *Local) Wrap(j *JobView) (string, error) {
	path := j.WrapperPath("local")
	script := wrapperScript(j, "#!/bin/sh\nset -e\n")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func (l *Local) Submit(j *JobView) (Handle, error) {
	outF, err := os.Create(j.StdoutPath)
	if err != nil {
		return "", err
	}
	errF, err := os.Create(j.StderrPath)
	if err != nil {
		outF.Close()
		return "", err
	}
	interpreter := j.Lang
	if interpreter == "" {
		interpreter = "/bin/sh"
	}
	cmd := exec.Command(interpreter, j.WrapperPath("local"))
	cmd.Stdout = outF
	cmd.Stderr = errF
	cmd.Dir = j.Dir
	if err := cmd.Start(); err != nil {
		outF.Close()
		errF.Close()
		return "", err
	}
	h := Handle(strconv.Itoa(cmd.Process.Pid))
	l.mu.Lock()
	l.procs[h] = cmd
	l.mu.Unlock()
	go func() {
		err := cmd.Wait()
		outF.Close()
		errF.Close()
		rc := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				rc = exitErr.ExitCode()
			} else {
				rc = -1
			}
		}
		os.WriteFile(j.RCPath, []byte(strconv.Itoa(rc)), 0o644)
	}()
	return h, nil
}

func (l *Local) Poll(j *JobView, h Handle) (PollStatus, error) {
	if rc, ok := readRC(j.RCPath); ok {
		l.mu.Lock()
		delete(l.procs, h)
		l.mu.Unlock()
		if rc == 0 {
			return PollSucceeded, nil
		}
		return PollFailed, nil
	}
	l.mu.Lock()
	_, running := l.procs[h]
	l.mu.Unlock()
	if running {
		return PollRunning, nil
	}
	return PollUnknown, nil
}

func (l *Local) Kill(j *JobView, h Handle) error {
	l.mu.Lock()
	cmd, ok := l.procs[h]
	l.mu.Unlock()
	if !ok || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func readRC(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	rc, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, false
	}
	return rc, true
}

// wrapperScript builds the common body: header, optional pre-script,
// the job script itself, optional post-script. Cluster back-ends write
// their directive lines (see directiveLines) before it.
func wrapperScript(j *JobView, shebang string) string {
	s := shebang
	if j.PreScript != "" {
		s += j.PreScript + "\n"
	}
	interpreter := j.Lang
	if interpreter == "" {
		interpreter = "/bin/sh"
	}
	s += fmt.Sprintf("%s %q\n", interpreter, j.ScriptPath)
	if j.PostScript != "" {
		s += j.PostScript + "\n"
	}
	return s
}
