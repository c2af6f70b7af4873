package framework

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/embd.go/pkg/l0/task"
)

// Defaults of a Loop.
const (
	DefaultInterval = 10 * time.Millisecond
	DefaultSlice    = 64
)

// Loop drives a Scheduler on one goroutine. Interrupt handlers and
// pollers run between slices of scheduling steps; when every task is
// waiting the loop parks until an interrupt arrives or Interval elapses.
type Loop struct {
	Scheduler *task.Scheduler
	Interval  time.Duration
	Slice     int

	pollers []Poller
	runners []Runnable

	pending interruptList
	lock    sync.Mutex
	stats   LoopStats

	wakeUpCh chan struct{}
}

// LoopStats counts loop activity.
type LoopStats struct {
	Steps      uint64
	Interrupts uint64
	Parks      uint64
}

type interruptList struct {
	head *interruptItem
	tail *interruptItem
}

type interruptItem struct {
	fn   func()
	next *interruptItem
}

func (l *interruptList) append(item *interruptItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
}

func (l *interruptList) splice(src *interruptList) {
	l.head, l.tail = src.head, src.tail
	src.head, src.tail = nil, nil
}

type loopCtxKeyType struct{}

var loopCtxKey loopCtxKeyType

// LoopFrom gets the Loop from a context passed to loop runners.
func LoopFrom(ctx context.Context) *Loop {
	l, _ := ctx.Value(loopCtxKey).(*Loop)
	return l
}

// NewLoop creates a Loop. A scheduler without observer gets a logging one.
func NewLoop(s *task.Scheduler) *Loop {
	if s.Observer == nil {
		s.Observer = LogObserver("sched")
	}
	return &Loop{
		Scheduler: s,
		Interval:  DefaultInterval,
		Slice:     DefaultSlice,
		wakeUpCh:  make(chan struct{}, 1),
	}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddPoller registers pollers.
func (l *Loop) AddPoller(pollers ...Poller) *Loop {
	l.pollers = append(l.pollers, pollers...)
	return l
}

// AddRunnable adds Runnable implementions, started with the loop and
// stopped when it returns.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Interrupt implements Interrupter. It is safe to call from any goroutine.
func (l *Loop) Interrupt(fn func()) {
	l.lock.Lock()
	l.pending.append(&interruptItem{fn: fn})
	l.lock.Unlock()
	l.TriggerNext()
}

// TriggerNext unparks the loop.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Stats returns the activity counters. Call it from the loop goroutine,
// e.g. in an interrupt handler.
func (l *Loop) Stats() LoopStats {
	return l.stats
}

// Run implements Runnable. It returns when the run queue drains, with the
// exit code converted by ExitCode.Err, when ctx is done, or when one of
// the Runnables fails. In the last two cases all tasks are removed with
// task.ExitError.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, l)).FailFast().Go(l.runners...)
	err := l.run(ctx, runner.Failed())
	runner.Stop()
	if runErr := runner.Wait(); runErr != nil {
		if err == errRunnerFailed {
			return runErr
		}
		glog.Errorf("loop runner error: %v", runErr)
	}
	return err
}

var errRunnerFailed = errors.New("runner failed")

func (l *Loop) run(ctx context.Context, failed <-chan struct{}) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sched := l.Scheduler
	for {
		l.service()
		if !l.runSlice() {
			code := sched.ExitCode()
			glog.V(1).Infof("run queue drained, exit code %d", code)
			return code.Err()
		}
		if !sched.Idle() {
			select {
			case <-ctx.Done():
				return l.stop(ctx.Err())
			case <-failed:
				return l.fail(ctx)
			default:
				continue
			}
		}
		l.stats.Parks++
		select {
		case <-ctx.Done():
			return l.stop(ctx.Err())
		case <-failed:
			return l.fail(ctx)
		case <-ticker.C:
			sched.Wake()
		case <-l.wakeUpCh:
		}
	}
}

// service runs pending interrupt handlers and pollers.
func (l *Loop) service() {
	var items interruptList
	l.lock.Lock()
	items.splice(&l.pending)
	l.lock.Unlock()
	changed := items.head != nil
	for item := items.head; item != nil; item = item.next {
		l.stats.Interrupts++
		item.fn()
	}
	for _, p := range l.pollers {
		if p.Poll() {
			changed = true
		}
	}
	if changed {
		l.Scheduler.Wake()
	}
}

// runSlice steps the scheduler until the slice is used up or every task
// waits. It reports whether any task is left.
func (l *Loop) runSlice() bool {
	slice := l.Slice
	if slice <= 0 {
		slice = DefaultSlice
	}
	sched := l.Scheduler
	for n := 0; n < slice && !sched.Idle(); n++ {
		l.stats.Steps++
		if !sched.Step() {
			return false
		}
	}
	return sched.Len() > 0
}

// fail stops the loop after a Runnable failed. A failure caused by the
// cancellation, e.g. a peer closing its end, still reports ctx.Err().
func (l *Loop) fail(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return l.stop(err)
	}
	return l.stop(errRunnerFailed)
}

func (l *Loop) stop(err error) error {
	glog.Infof("loop stopped: %v", err)
	l.Scheduler.RemoveAll(task.ExitError)
	return err
}
