package backend

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"regexp"
)

// clusterConfig parameterizes the shared SGE/SLURM wrap/submit/poll/kill
// logic: only the directive marker, option-key prefix, submit/kill
// commands and the regex to pull a job id out of the submit command's
// stdout differ between the two schedulers.
type clusterConfig struct {
	name        string
	marker      string // "#$" or "#SBATCH"
	prefix      string // "sge_" or "slurm_"
	submitCmd   string // "qsub" or "sbatch"
	killCmd     string // "qdel" or "scancel"
	submitIDRe  *regexp.Regexp
	reservedKey func(kind string) string // "N" -> name key, "o" -> stdout key, "e" -> stderr key, "cwd" -> cwd key
}

// cluster drives a job through a queueing scheduler: the wrapper script
// itself traps completion into job.rc on the shared filesystem (spec
// §4.3: "rc observed through a shared filesystem"), so poll only needs to
// check whether that file has appeared yet, same as the local back-end;
// submit/kill shell out to the scheduler's CLI.
type cluster struct{ cfg clusterConfig }

func (c *cluster) Name() string { return c.cfg.name }

func (c *cluster) Wrap(j *JobView) (string, error) {
	path := j.WrapperPath(c.cfg.name)
	var buf bytes.Buffer
	buf.WriteString("#!/bin/sh\n")

	opts := j.SchedulerOpts
	flag := func(suffix string) string { return "-" + suffix }
	for _, line := range directiveLines(opts, c.cfg.prefix, c.cfg.marker, flag) {
		buf.WriteString(line + "\n")
	}
	if !hasKey(opts, c.cfg.reservedKey("N")) {
		buf.WriteString(fmt.Sprintf("%s -N %s_%s.%d\n", c.cfg.marker, j.Proc, j.Tag, j.Index))
	}
	if !hasKey(opts, c.cfg.reservedKey("cwd")) {
		buf.WriteString(fmt.Sprintf("%s -cwd\n", c.cfg.marker))
	}
	if !hasKey(opts, c.cfg.reservedKey("o")) {
		buf.WriteString(fmt.Sprintf("%s -o %s\n", c.cfg.marker, j.StdoutPath))
	}
	if !hasKey(opts, c.cfg.reservedKey("e")) {
		buf.WriteString(fmt.Sprintf("%s -e %s\n", c.cfg.marker, j.StderrPath))
	}

	buf.WriteString("trap 'echo $? > " + j.RCPath + "' EXIT\n")
	buf.WriteString(wrapperScript(j, ""))

	if err := os.WriteFile(path, buf.Bytes(), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func (c *cluster) Submit(j *JobView) (Handle, error) {
	cmd := exec.Command(c.cfg.submitCmd, j.WrapperPath(c.cfg.name))
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("backend: %s submit failed: %w", c.cfg.name, err)
	}
	m := c.cfg.submitIDRe.FindStringSubmatch(out.String())
	if len(m) < 2 {
		return "", fmt.Errorf("backend: %s submit: could not parse job id from %q", c.cfg.name, out.String())
	}
	return Handle(m[1]), nil
}

func (c *cluster) Poll(j *JobView, h Handle) (PollStatus, error) {
	if rc, ok := readRC(j.RCPath); ok {
		if rc == 0 {
			return PollSucceeded, nil
		}
		return PollFailed, nil
	}
	return PollRunning, nil
}

func (c *cluster) Kill(j *JobView, h Handle) error {
	return exec.Command(c.cfg.killCmd, string(h)).Run()
}

func sgeReservedKey(kind string) string { return "sge_" + kind }
func slurmReservedKey(kind string) string {
	switch kind {
	case "N":
		return "slurm_job_name"
	case "o":
		return "slurm_output"
	case "e":
		return "slurm_error"
	case "cwd":
		return "slurm_chdir"
	}
	return "slurm_" + kind
}

// NewSGE returns the SGE (qsub/#$) back-end.
func NewSGE() Backend {
	return &cluster{cfg: clusterConfig{
		name:        "sge",
		marker:      "#$",
		prefix:      "sge_",
		submitCmd:   "qsub",
		killCmd:     "qdel",
		submitIDRe:  regexp.MustCompile(`[Jj]ob[- ](\d+)`),
		reservedKey: sgeReservedKey,
	}}
}

// NewSlurm returns the SLURM (sbatch/#SBATCH) back-end.
func NewSlurm() Backend {
	return &cluster{cfg: clusterConfig{
		name:        "slurm",
		marker:      "#SBATCH",
		prefix:      "slurm_",
		submitCmd:   "sbatch",
		killCmd:     "scancel",
		submitIDRe:  regexp.MustCompile(`job (\d+)`),
		reservedKey: slurmReservedKey,
	}}
}
