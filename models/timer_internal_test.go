package models

import (
	"testing"
	"time"
)

func TestFoldElapsed(t *testing.T) {
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	// No open interval: total passes through.
	if got := foldElapsed(120, nil, now); got != 120 {
		t.Fatalf("nil start: got %d, want 120", got)
	}

	started := now.Add(-90 * time.Second)
	if got := foldElapsed(120, &started, now); got != 210 {
		t.Fatalf("open interval: got %d, want 210", got)
	}

	// Clock skew never shrinks the total.
	future := now.Add(30 * time.Second)
	if got := foldElapsed(120, &future, now); got != 120 {
		t.Fatalf("negative interval: got %d, want 120", got)
	}

	if got := foldElapsed(0, &started, now); got != 90 {
		t.Fatalf("zero accumulated: got %d, want 90", got)
	}
}

func TestElapsedSecondsIncludesOpenInterval(t *testing.T) {
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	started := now.Add(-45 * time.Second)

	running := Task{AccumulatedSecs: 60, StartedAt: &started, State: TaskStateRunning}
	if got := running.ElapsedSeconds(now); got != 105 {
		t.Fatalf("running: got %d, want 105", got)
	}

	paused := Task{AccumulatedSecs: 60, State: TaskStatePending}
	if got := paused.ElapsedSeconds(now); got != 60 {
		t.Fatalf("paused: got %d, want 60", got)
	}
}

func TestTaskTransitionGuard(t *testing.T) {
	cases := []struct {
		from, to TaskState
		ok       bool
	}{
		{TaskStatePending, TaskStateRunning, true},
		{TaskStatePending, TaskStateDone, true},
		{TaskStateRunning, TaskStatePending, true},
		{TaskStateRunning, TaskStateDone, true},
		{TaskStateDone, TaskStatePending, false},
		{TaskStateDone, TaskStateRunning, false},
		{TaskStatePending, TaskStatePending, true},
		{TaskStateDone, TaskStateDone, true},
	}
	for _, c := range cases {
		if got := canTransitionTask(c.from, c.to); got != c.ok {
			t.Errorf("canTransitionTask(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestIncidentAdvanceGuard(t *testing.T) {
	cases := []struct {
		from, to IncidentState
		ok       bool
	}{
		{IncidentStatePending, IncidentStateInReview, true},
		{IncidentStateInReview, IncidentStateResolved, true},
		{IncidentStatePending, IncidentStateResolved, false},
		{IncidentStateResolved, IncidentStateInReview, false},
		{IncidentStateInReview, IncidentStatePending, false},
		{IncidentStatePending, IncidentStatePending, false},
	}
	for _, c := range cases {
		if got := canAdvanceIncident(c.from, c.to); got != c.ok {
			t.Errorf("canAdvanceIncident(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}
