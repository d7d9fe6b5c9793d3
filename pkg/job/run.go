package job

import (
	"context"
	"fmt"

	"pipex/pkg/backend"
	"pipex/pkg/model"
	"pipex/pkg/plugin"
)

// Run drives the job from INIT through the cache check and, on a miss,
// through submit/poll/verify to a terminal FINISHED status (spec §4.4
// cache engine feeding §4.5's state machine); a killed job stays KILLED.
// It returns the job's final success tri-state for the owning process to
// fold into on_proc_done.
func (j *Job) Run(ctx context.Context) (model.ProcSuccess, error) {
	j.broadcast(plugin.OnJobInit)

	if j.Cache != model.CacheForce && j.Cache != model.CacheFalse {
		sig, err := j.buildSignature()
		if err == nil {
			hit, herr := j.cacheHit(sig)
			if herr == nil && hit {
				j.transition(model.StatusCached)
				j.transition(model.StatusFinished)
				return model.ProcCached, nil
			}
		}
	}

	if err := j.clearDeclaredOutputs(); err != nil {
		return model.ProcFailed, err
	}

	var lastErr error
	for {
		j.TrialCount++
		status, err := j.runOnce(ctx)
		lastErr = err
		if status == model.StatusKilled {
			j.transition(model.StatusKilled)
			return model.ProcFailed, err
		}
		if status == model.StatusFailed && j.shouldRetry() {
			j.transition(model.StatusFailed)
			j.transition(model.StatusRetrying)
			continue
		}
		j.transition(status)
		j.transition(model.StatusFinished)
		if status == model.StatusSucceeded {
			sig, sigErr := j.buildSignature()
			if sigErr == nil {
				j.writeSignature(sig)
			}
			return model.ProcSucceeded, nil
		}
		return model.ProcFailed, lastErr
	}
}

// runOnce performs exactly one submit/poll/verify cycle and returns the
// terminal status it reached (SUCCEEDED, FAILED, or KILLED).
func (j *Job) runOnce(ctx context.Context) (model.Status, error) {
	j.transition(model.StatusQueued)

	if permit := j.Plugins.VetoAll(plugin.OnJobSubmitting, j.Proc, j); !permit {
		return model.StatusFailed, fmt.Errorf("job: submission vetoed for %s/%s.%d", j.Proc, j.Tag, j.Index)
	}

	j.transition(model.StatusSubmitting)
	if err := j.writeScript(); err != nil {
		return model.StatusFailed, err
	}
	if _, err := j.Backend.Wrap(j.view()); err != nil {
		return model.StatusFailed, err
	}
	handle, err := j.Backend.Submit(j.view())
	if err != nil {
		return model.StatusFailed, err
	}
	j.transition(model.StatusSubmitted)
	j.transition(model.StatusRunning)

	result, err := j.pollUntilDone(ctx, j.Backend, handle)
	if err != nil {
		if ctx.Err() != nil {
			if !j.Plugins.VetoAll(plugin.OnJobKilling, j.Proc, j) {
				return model.StatusFailed, err
			}
			j.Backend.Kill(j.view(), handle)
			return model.StatusKilled, err
		}
		return model.StatusFailed, err
	}

	if result == backend.PollFailed {
		return model.StatusFailed, fmt.Errorf("job: %s/%s.%d exited with a non-zero status", j.Proc, j.Tag, j.Index)
	}

	missing, err := j.verifyOutputs()
	if err != nil {
		return model.StatusFailed, err
	}
	if missing != "" {
		j.appendStderr(fmt.Sprintf("Output file '%s' is not generated.", missing))
		return model.StatusFailed, fmt.Errorf("job: %s/%s.%d did not produce output %q", j.Proc, j.Tag, j.Index, missing)
	}

	return model.StatusSucceeded, nil
}
