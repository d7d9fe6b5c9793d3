package job

import (
	"testing"

	"pipex/pkg/model"
)

func TestShouldRetryOnlyWhenStrategyIsRetry(t *testing.T) {
	j := &Job{ErrorStrategy: model.ErrorHalt, TrialCount: 1, NumRetries: 5}
	if j.shouldRetry() {
		t.Fatal("a halt strategy should never retry")
	}
	j.ErrorStrategy = model.ErrorIgnore
	if j.shouldRetry() {
		t.Fatal("an ignore strategy should never retry")
	}
}

func TestShouldRetryRespectsBudget(t *testing.T) {
	j := &Job{ErrorStrategy: model.ErrorRetry, NumRetries: 2}
	j.TrialCount = 1
	if !j.shouldRetry() {
		t.Fatal("trial 1 of a 2-retry budget should still retry")
	}
	j.TrialCount = 2
	if !j.shouldRetry() {
		t.Fatal("trial 2 of a 2-retry budget should still retry")
	}
	j.TrialCount = 3
	if j.shouldRetry() {
		t.Fatal("trial 3 of a 2-retry budget should not retry")
	}
}

func TestTransitionBroadcastsMatchingHook(t *testing.T) {
	var seenHook string
	snap := testSnapshotWithBroadcastSpy(&seenHook)
	j := &Job{Plugins: snap, Proc: "p"}
	j.transition(model.StatusQueued)
	if seenHook != "on_job_queued" {
		t.Fatalf("transition(StatusQueued) broadcast %q, want on_job_queued", seenHook)
	}
}

func TestTransitionToInitBroadcastsNothing(t *testing.T) {
	var seenHook string
	snap := testSnapshotWithBroadcastSpy(&seenHook)
	j := &Job{Plugins: snap, Proc: "p"}
	j.transition(model.StatusInit)
	if seenHook != "" {
		t.Fatalf("transition(StatusInit) should not broadcast any hook, got %q", seenHook)
	}
}
