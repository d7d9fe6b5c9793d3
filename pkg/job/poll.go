package job

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"pipex/pkg/backend"
	"pipex/pkg/plugin"
)

// pollInterval is the fallback cadence between polls when no
// filesystem event wakes the loop earlier. Grounded on the ticker+select
// polling loop pattern used by the scheduler's monitor loop.
const pollInterval = 5 * time.Second

// pollUntilDone waits for a submitted job to leave the running state.
// Whatever the back-end, it watches the job directory with fsnotify so a
// change there (job.rc appearing) wakes the loop immediately instead of
// on the next tick; the ticker stays as a fallback for when the watcher
// could not be started and as a safety net against missed fs events.
func (j *Job) pollUntilDone(ctx context.Context, b backend.Backend, h backend.Handle) (backend.PollStatus, error) {
	view := j.view()

	wake := make(chan struct{}, 1)
	if w, err := fsnotify.NewWatcher(); err == nil {
		defer w.Close()
		if err := w.Add(j.Dir); err == nil {
			go func() {
				for {
					select {
					case _, ok := <-w.Events:
						if !ok {
							return
						}
						select {
						case wake <- struct{}{}:
						default:
						}
					case <-w.Errors:
						return
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	j.broadcast(plugin.OnJobPolling)
	for {
		status, err := b.Poll(view, h)
		if err != nil {
			return backend.PollUnknown, err
		}
		if status == backend.PollSucceeded || status == backend.PollFailed {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return backend.PollUnknown, ctx.Err()
		case <-wake:
		case <-ticker.C:
		}
	}
}
