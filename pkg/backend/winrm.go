package backend

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/masterzen/winrm"
)

// WinRM runs jobs on Windows hosts that only expose WinRM rather than
// SSH, using the NTLM transport for domain auth. Adapted in-process from
// the teacher's winrm plugin binary (which read tasks from stdin and
// wrote results to stdout); here the same winrm.Client call is driven
// directly by the engine instead of through a forked helper process.
//
// Connection parameters come from JobView.SchedulerOpts: winrm_host,
// winrm_port (default 5985), winrm_user, winrm_domain, winrm_password.
type WinRM struct {
	mu      sync.Mutex
	results map[Handle]*winrmResult
}

type winrmResult struct {
	done bool
	rc   int
}

func NewWinRM() *WinRM { return &WinRM{results: map[Handle]*winrmResult{}} }

func (w *WinRM) Name() string { return "winrm" }

func (w *WinRM) Wrap(j *JobView) (string, error) {
	// WinRM has no shared filesystem to write a wrapper to on the remote
	// side; the "wrapper" is the literal command line run over the
	// session, built at Submit time. Locally we still record what would
	// have run, for debugging and for directive-determinism tests.
	path := j.WrapperPath("winrm")
	body := fmt.Sprintf("REM winrm wrapper for %s/%s.%d\n%s\n", j.Proc, j.Tag, j.Index, j.ScriptPath)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (w *WinRM) client(opts map[string]any) (*winrm.Client, error) {
	host, _ := opts["winrm_host"].(string)
	if host == "" {
		return nil, fmt.Errorf("backend: winrm_host is required")
	}
	port := 5985
	if p, ok := opts["winrm_port"].(int); ok && p != 0 {
		port = p
	}
	user, _ := opts["winrm_user"].(string)
	password, _ := opts["winrm_password"].(string)
	domain, _ := opts["winrm_domain"].(string)

	endpoint := winrm.NewEndpoint(host, port, false, true, nil, nil, nil, 60*time.Second)
	if domain != "" {
		params := winrm.DefaultParameters
		params.TransportDecorator = func() winrm.Transporter { return &winrm.ClientNTLM{} }
		return winrm.NewClientWithParameters(endpoint, domain+`\`+user, password, params)
	}
	return winrm.NewClient(endpoint, user, password)
}

func (w *WinRM) Submit(j *JobView) (Handle, error) {
	client, err := w.client(j.SchedulerOpts)
	if err != nil {
		return "", err
	}
	h := Handle(fmt.Sprintf("winrm-%s-%d", j.Proc, j.Index))
	w.mu.Lock()
	w.results[h] = &winrmResult{}
	w.mu.Unlock()

	go func() {
		stdout, stderr, exitCode, err := client.RunWithString(j.ScriptPath, "")
		if err != nil {
			exitCode = -1
			stderr = err.Error()
		}
		os.WriteFile(j.StdoutPath, []byte(stdout), 0o644)
		os.WriteFile(j.StderrPath, []byte(stderr), 0o644)
		os.WriteFile(j.RCPath, []byte(strconv.Itoa(exitCode)), 0o644)
		w.mu.Lock()
		w.results[h] = &winrmResult{done: true, rc: exitCode}
		w.mu.Unlock()
	}()
	return h, nil
}

func (w *WinRM) Poll(j *JobView, h Handle) (PollStatus, error) {
	w.mu.Lock()
	r, ok := w.results[h]
	w.mu.Unlock()
	if !ok || !r.done {
		return PollRunning, nil
	}
	if r.rc == 0 {
		return PollSucceeded, nil
	}
	return PollFailed, nil
}

func (w *WinRM) Kill(j *JobView, h Handle) error {
	// The masterzen/winrm client has no running-command handle to cancel
	// mid-flight over HTTP; best-effort is to mark it failed locally so
	// the engine stops waiting on it.
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.results[h]; ok && !r.done {
		r.done = true
		r.rc = -1
	}
	return nil
}
