// Package scheduler implements the Scheduler Facade (§4.I): a cooperative,
// single-threaded task scheduler driven by one tick per event-loop
// iteration. It holds no goroutines and no mutex — callers own the single
// thread that calls Execute.
package scheduler

import "time"

// Forever marks a task with no iteration bound.
const Forever int64 = -1

// TaskHandle identifies a registered task for later lookup or removal.
type TaskHandle uint64

// Task is one scheduled unit of cooperative work.
type Task struct {
	handle   TaskHandle
	interval time.Duration
	iterations int64 // remaining; Forever never decrements
	callback func()
	enabled  bool
	nextDue  time.Time
}

// Enabled reports whether the task currently runs when due.
func (t *Task) Enabled() bool { return t.enabled }

// SetEnabled toggles whether the task runs when due, without losing its
// schedule or remaining iteration count.
func (t *Task) SetEnabled(on bool) { t.enabled = on }

// Handle returns the task's identifying handle.
func (t *Task) Handle() TaskHandle { return t.handle }

// Scheduler is a plain value type holding the set of registered tasks. It is
// not safe for concurrent use — by design, per §5, it is only ever driven
// from the single event-loop thread.
type Scheduler struct {
	tasks   []*Task
	nextId  TaskHandle
	running bool
}

// New builds an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// AddTask registers a periodic (or finite-iteration) task. iterations ==
// Forever runs indefinitely; iterations == 0 behaves like a single no-op
// registration that never fires. The first run is due after one interval
// has elapsed from now, not immediately.
func (s *Scheduler) AddTask(now time.Time, interval time.Duration, iterations int64, fn func()) TaskHandle {
	s.nextId++
	t := &Task{
		handle:     s.nextId,
		interval:   interval,
		iterations: iterations,
		callback:   fn,
		enabled:    true,
		nextDue:    now.Add(interval),
	}
	s.tasks = append(s.tasks, t)
	return t.handle
}

// AddOneShot registers a task that fires exactly once after delay.
func (s *Scheduler) AddOneShot(now time.Time, delay time.Duration, fn func()) TaskHandle {
	return s.AddTask(now, delay, 1, fn)
}

// RemoveTask deletes a registered task from the task list at once. Execute
// works from a snapshot of the due tasks taken before any callback runs, so
// a removal made mid-callback never corrupts the in-flight scan — though
// per contract a callback must not delete itself before returning.
func (s *Scheduler) RemoveTask(handle TaskHandle) {
	for i, t := range s.tasks {
		if t.handle == handle {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

// Task returns the registered task for handle, if any, so a caller can
// toggle Enabled without removing it.
func (s *Scheduler) Task(handle TaskHandle) (*Task, bool) {
	for _, t := range s.tasks {
		if t.handle == handle {
			return t, true
		}
	}
	return nil, false
}

// Len reports how many tasks are currently registered.
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Execute runs every due, enabled task exactly once, without preemption. A
// task is due when now is at or past its nextDue. Tasks added or removed by
// a callback during this call take effect on the next Execute, never the
// current one — the due set is captured before any callback runs.
func (s *Scheduler) Execute(now time.Time) {
	if s.running {
		return
	}
	s.running = true
	defer func() { s.running = false }()

	due := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.enabled && t.iterations != 0 && !now.Before(t.nextDue) {
			due = append(due, t)
		}
	}

	for _, t := range due {
		if t.iterations == 0 {
			continue
		}
		t.callback()
		if t.iterations != Forever {
			t.iterations--
		}
		if t.iterations == 0 {
			s.RemoveTask(t.handle)
			continue
		}
		t.nextDue = t.nextDue.Add(t.interval)
		if t.nextDue.Before(now) {
			t.nextDue = now.Add(t.interval)
		}
	}
}
