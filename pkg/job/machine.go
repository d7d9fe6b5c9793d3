package job

import (
	"pipex/pkg/model"
	"pipex/pkg/plugin"
)

// transition moves the job to status and broadcasts the matching
// lifecycle hook (spec §4.5's state diagram: INIT -> QUEUED ->
// SUBMITTING -> SUBMITTED -> RUNNING -> {SUCCEEDED|FAILED} -> FINISHED,
// with CACHED/RETRYING/KILLED as side states). KILLED is terminal and is
// never followed by a retry, regardless of error_strategy.
func (j *Job) transition(status model.Status) {
	j.Status = status
	if hook, ok := transitionHook[status]; ok {
		j.broadcast(hook)
	}
}

var transitionHook = map[model.Status]string{
	model.StatusQueued:    plugin.OnJobQueued,
	model.StatusSubmitted: plugin.OnJobSubmitted,
	model.StatusRunning:   plugin.OnJobStarted,
	model.StatusSucceeded: plugin.OnJobSucceeded,
	model.StatusFailed:    plugin.OnJobFailed,
	model.StatusCached:    plugin.OnJobCached,
	model.StatusKilled:    plugin.OnJobKilled,
}

// shouldRetry decides, from error_strategy and the retry budget, whether
// a FAILED job should go back to QUEUED instead of FINISHED (spec §4.5:
// error_strategy="retry" reruns up to num_retries times; "ignore" and
// "halt" both finish the job, the difference is only whether the owning
// process keeps scheduling siblings).
func (j *Job) shouldRetry() bool {
	if j.ErrorStrategy != model.ErrorRetry {
		return false
	}
	return j.TrialCount <= j.NumRetries
}
