package task

import (
	"errors"

	"github.com/robotalks/embd.go/pkg/l0/registry"
)

var (
	// ErrQueueFull indicates the run queue has no free slot.
	ErrQueueFull = registry.ErrFull
	// ErrNotScheduled indicates the task is not in the run queue.
	ErrNotScheduled = registry.ErrNotFound
	// ErrForeignTask indicates the task is owned by another scheduler.
	ErrForeignTask = errors.New("task scheduled elsewhere")
)

// EventKind tells what happened in the scheduler.
type EventKind int

// Event kinds
const (
	EventAdded EventKind = iota
	EventRemoved
	EventStepped
	EventDrained
)

// Event is reported to an Observer.
type Event struct {
	Kind   EventKind
	Task   *Task
	Status Status
	Code   ExitCode
}

// Observer watches scheduler events.
type Observer interface {
	Observe(Event)
}

// ObserveFunc is the func form of Observer.
type ObserveFunc func(Event)

// Observe implements Observer.
func (f ObserveFunc) Observe(ev Event) {
	f(ev)
}

// Scheduler runs tasks round-robin in registration order.
//
// Removing a task, including a task removing itself, never makes the
// scheduler skip or revisit another task: the cursor is moved back when
// an entry before it disappears, and wraps to the first entry when it
// runs past the last.
type Scheduler struct {
	Observer Observer

	queue    registry.Registry[*Task, Func]
	cursor   int
	exitCode ExitCode
	cycles   uint64
	waits    int
}

// NewScheduler creates a Scheduler able to hold capacity tasks.
func NewScheduler(capacity int) *Scheduler {
	s := &Scheduler{}
	s.Init(capacity)
	return s
}

// Init (re)initializes the scheduler with an empty run queue.
func (s *Scheduler) Init(capacity int) {
	s.queue.Init(capacity)
	s.cursor, s.exitCode, s.cycles, s.waits = 0, ExitOK, 0, 0
}

// Len returns the number of scheduled tasks.
func (s *Scheduler) Len() int {
	return s.queue.Len()
}

// Free returns the number of tasks that can still be added.
func (s *Scheduler) Free() int {
	return s.queue.Free()
}

// ExitCode returns the code Run reports when the queue drains.
func (s *Scheduler) ExitCode() ExitCode {
	return s.exitCode
}

// Cycles returns how many times the cursor wrapped around the queue.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles
}

// Tasks returns the scheduled tasks in run order.
func (s *Scheduler) Tasks() []*Task {
	tasks := make([]*Task, s.queue.Len())
	for i := range tasks {
		tasks[i], _ = s.queue.At(i)
	}
	return tasks
}

// Add schedules t with fn. Adding a task already scheduled here replaces
// its function and keeps its position, unless the queue is full: capacity
// is checked first, so a full queue rejects even a re-add with
// ErrQueueFull and the old function stays.
func (s *Scheduler) Add(t *Task, fn Func) error {
	if t.sched != nil && t.sched != s {
		return ErrForeignTask
	}
	if err := s.queue.Add(t, fn); err != nil {
		return err
	}
	t.sched = s
	s.waits = 0
	s.notify(Event{Kind: EventAdded, Task: t})
	return nil
}

// Remove unschedules t.
func (s *Scheduler) Remove(t *Task) error {
	index := s.queue.IndexOf(t)
	if index < 0 {
		return ErrNotScheduled
	}
	s.queue.RemoveAt(index)
	if index < s.cursor {
		s.cursor--
	}
	t.sched = nil
	s.waits = 0
	s.notify(Event{Kind: EventRemoved, Task: t})
	return nil
}

// RemoveAll unschedules every task and sets the code returned by Run.
func (s *Scheduler) RemoveAll(code ExitCode) {
	for i := 0; i < s.queue.Len(); i++ {
		t, _ := s.queue.At(i)
		t.sched = nil
	}
	s.queue.RemoveAll()
	s.cursor, s.waits = 0, 0
	s.exitCode = code
	s.notify(Event{Kind: EventDrained, Code: code})
}

// Step invokes the task whose turn it is. It reports whether any task is
// left to run.
func (s *Scheduler) Step() bool {
	n := s.queue.Len()
	if n == 0 {
		return false
	}
	if s.cursor >= n {
		s.cursor = 0
		s.cycles++
	}
	t, fn := s.queue.At(s.cursor)
	s.cursor++
	status := fn(t)
	t.status = status
	if status == Waiting {
		s.waits++
	} else {
		s.waits = 0
	}
	s.notify(Event{Kind: EventStepped, Task: t, Status: status, Code: t.exitCode})
	return s.queue.Len() > 0
}

// Run steps tasks until the run queue is empty and returns the exit code
// set by the last RemoveAll, ExitOK if none.
func (s *Scheduler) Run() ExitCode {
	for s.Step() {
	}
	return s.exitCode
}

// Idle reports whether every task was found waiting during the last full
// pass over the queue. Nothing a task can do changes that; only outside
// events (interrupt handlers) can.
func (s *Scheduler) Idle() bool {
	n := s.queue.Len()
	return n > 0 && s.waits >= n
}

// Wake clears the idle state after outside events.
func (s *Scheduler) Wake() {
	s.waits = 0
}

func (s *Scheduler) notify(ev Event) {
	if o := s.Observer; o != nil {
		o.Observe(ev)
	}
}
