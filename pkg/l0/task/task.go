package task

import "fmt"

// PC identifies a resume point inside a task function.
type PC int

// Start is the resume point of a task which has not started or has
// been reset.
const Start PC = 0

// Status is the outcome of one invocation of a task function.
type Status byte

// Statuses
const (
	// Ran means the task reached its end; it restarts from Start.
	Ran Status = iota
	// Yielded means the task suspended and resumes past the yield point.
	Yielded
	// YieldedToStart means the task gave up its progress; it restarts from Start.
	YieldedToStart
	// Waiting means the task is blocked on a condition which is re-evaluated
	// on the next invocation.
	Waiting
	// Exited means the task removed itself from the scheduler.
	Exited
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Ran:
		return "ran"
	case Yielded:
		return "yielded"
	case YieldedToStart:
		return "switched-out"
	case Waiting:
		return "waiting"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("status(%d)", byte(s))
	}
}

// ExitCode is an application defined exit code of a task or a scheduler.
type ExitCode byte

// Reserved exit codes.
const (
	ExitOK    ExitCode = 0
	ExitError ExitCode = 0xff
)

// Err converts a non-OK code into an error.
func (c ExitCode) Err() error {
	if c == ExitOK {
		return nil
	}
	return &CodeError{Code: c}
}

// CodeError reports a non-OK exit code.
type CodeError struct {
	Code ExitCode
}

// Error implements error.
func (e *CodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// Func is a task function.
type Func func(t *Task) Status

// Task holds the continuation of a task function.
// The zero value is ready to use.
type Task struct {
	name     string
	pc       PC
	status   Status
	exitCode ExitCode
	sched    *Scheduler
}

// New creates a named Task.
func New(name string) *Task {
	t := &Task{}
	t.Init(name)
	return t
}

// Init resets the task to Start. It must not be called on a scheduled task.
func (t *Task) Init(name string) {
	t.name = name
	t.pc, t.status, t.exitCode = Start, Ran, ExitOK
}

// Name implements Named.
func (t *Task) Name() string {
	return t.name
}

// PC returns the current resume point.
func (t *Task) PC() PC {
	return t.pc
}

// Status returns the status of the last invocation.
func (t *Task) Status() Status {
	return t.status
}

// ExitCode returns the code passed to Exit.
func (t *Task) ExitCode() ExitCode {
	return t.exitCode
}

// Scheduler returns the scheduler running the task, nil if not scheduled.
func (t *Task) Scheduler() *Scheduler {
	return t.sched
}

// Begin returns the resume point to dispatch on.
func (t *Task) Begin() PC {
	return t.pc
}

// End finishes a pass through the task function.
func (t *Task) End() Status {
	t.pc = Start
	return Ran
}

// Yield suspends the task; the next invocation dispatches to next.
func (t *Task) Yield(next PC) Status {
	t.pc = next
	return Yielded
}

// WaitWhile parks the task at point at while cond holds. When it returns
// true the caller must return Waiting. The caller places the check right
// after the case for at, so the same condition is evaluated again on every
// invocation until it clears, without re-running earlier statements.
func (t *Task) WaitWhile(at PC, cond bool) bool {
	t.pc = at
	return cond
}

// WaitUntil is WaitWhile with the condition negated.
func (t *Task) WaitUntil(at PC, cond bool) bool {
	return t.WaitWhile(at, !cond)
}

// SwitchOut drops the progress of the task; it restarts from Start.
func (t *Task) SwitchOut() Status {
	t.pc = Start
	return YieldedToStart
}

// Exit removes the task from its scheduler and records code.
// The task is not invoked again.
func (t *Task) Exit(code ExitCode) Status {
	t.exitCode = code
	t.pc = Start
	if s := t.sched; s != nil {
		s.Remove(t)
	}
	return Exited
}

// Mold is a Task with typed state surviving suspension points.
type Mold[S any] struct {
	Task
	State S
}

// Init resets the task and its state.
func (m *Mold[S]) Init(name string) {
	m.Task.Init(name)
	var zero S
	m.State = zero
}

// SwitchOut drops the progress and the state of the task.
func (m *Mold[S]) SwitchOut() Status {
	var zero S
	m.State = zero
	return m.Task.SwitchOut()
}
