package scheduler

import (
	"testing"
	"time"
)

func TestScheduler_PeriodicTaskRunsAndRepeats(t *testing.T) {
	s := New()
	now := time.Now()
	count := 0
	s.AddTask(now, time.Second, Forever, func() { count++ })

	s.Execute(now) // not yet due
	if count != 0 {
		t.Fatalf("task fired before its interval elapsed: count=%d", count)
	}

	s.Execute(now.Add(time.Second))
	if count != 1 {
		t.Fatalf("expected 1 run, got %d", count)
	}

	s.Execute(now.Add(2 * time.Second))
	if count != 2 {
		t.Fatalf("expected 2 runs, got %d", count)
	}
}

func TestScheduler_FiniteIterationsSelfRemoves(t *testing.T) {
	s := New()
	now := time.Now()
	count := 0
	s.AddTask(now, time.Millisecond, 2, func() { count++ })

	s.Execute(now.Add(10 * time.Millisecond))
	s.Execute(now.Add(20 * time.Millisecond))
	s.Execute(now.Add(30 * time.Millisecond))

	if count != 2 {
		t.Fatalf("expected exactly 2 runs for a 2-iteration task, got %d", count)
	}
	if s.Len() != 0 {
		t.Fatalf("expected exhausted task to be removed, Len=%d", s.Len())
	}
}

func TestScheduler_OneShot(t *testing.T) {
	s := New()
	now := time.Now()
	fired := 0
	s.AddOneShot(now, 5*time.Millisecond, func() { fired++ })

	s.Execute(now.Add(10 * time.Millisecond))
	s.Execute(now.Add(20 * time.Millisecond))

	if fired != 1 {
		t.Fatalf("expected one-shot task to fire exactly once, got %d", fired)
	}
}

func TestScheduler_DisabledTaskDoesNotRun(t *testing.T) {
	s := New()
	now := time.Now()
	ran := false
	handle := s.AddTask(now, time.Millisecond, Forever, func() { ran = true })

	task, ok := s.Task(handle)
	if !ok {
		t.Fatalf("expected to find registered task")
	}
	task.SetEnabled(false)

	s.Execute(now.Add(time.Second))
	if ran {
		t.Fatalf("disabled task must not run")
	}
}

func TestScheduler_CallbackCanRegisterAnotherTaskWithoutCorruptingCurrentScan(t *testing.T) {
	s := New()
	now := time.Now()
	inner := 0
	s.AddTask(now, time.Millisecond, 1, func() {
		s.AddTask(now, time.Millisecond, 1, func() { inner++ })
	})

	s.Execute(now.Add(time.Second)) // runs the outer task, registers the inner one
	if inner != 0 {
		t.Fatalf("a task added mid-Execute must not run within the same tick")
	}
	s.Execute(now.Add(2 * time.Second))
	if inner != 1 {
		t.Fatalf("expected the newly added task to run on the next tick, inner=%d", inner)
	}
}

func TestScheduler_RemoveTask(t *testing.T) {
	s := New()
	now := time.Now()
	ran := false
	handle := s.AddTask(now, time.Millisecond, Forever, func() { ran = true })
	s.RemoveTask(handle)

	s.Execute(now.Add(time.Second))
	if ran {
		t.Fatalf("removed task must not run")
	}
	if s.Len() != 0 {
		t.Fatalf("expected Len 0 after removal, got %d", s.Len())
	}
}
