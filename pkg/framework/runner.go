package framework

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// ErrForcedExit is returned by Wait after a second stop request.
var ErrForcedExit = errors.New("forced exit")

// Runner supervises Runnables sharing one context and collects their
// errors. Cancellation is not an error.
type Runner struct {
	Context context.Context
	Runners []Runnable

	cancel   context.CancelFunc
	failFast bool
	results  chan *RunnerError
	failed   chan struct{}
	failOnce sync.Once
	exitCh   chan struct{}
	waitOnce sync.Once
	err      error
}

// NewRunner creates a runner with a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner whose Runnables get a context derived
// from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		Context: ctx,
		cancel:  cancel,
		results: make(chan *RunnerError),
		failed:  make(chan struct{}),
		exitCh:  make(chan struct{}),
	}
}

// FailFast makes the first failure stop the other Runnables.
func (r *Runner) FailFast() *Runner {
	r.failFast = true
	return r
}

// HandleSignals stops the Runnables on CtrlC or SIGTERM. A second signal
// makes Wait return ErrForcedExit without waiting.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.Stop()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Go spawns Runnables.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := RunnableName(runner, len(r.Runners))
		r.Runners = append(r.Runners, runner)
		go r.run(runner, name)
	}
	return r
}

// Stop cancels the context of the Runnables.
func (r *Runner) Stop() {
	r.cancel()
}

// Failed is closed when a Runnable fails.
func (r *Runner) Failed() <-chan struct{} {
	return r.failed
}

// Wait waits until all Runnables stop and aggregates their errors.
// Calling it again returns the same result.
func (r *Runner) Wait() error {
	r.waitOnce.Do(func() {
		r.err = r.wait()
		r.cancel()
	})
	return r.err
}

// RunnableName names a runner by Named, or by its index.
func RunnableName(runner Runnable, index int) string {
	if named, ok := runner.(Named); ok {
		return named.Name()
	}
	return strconv.Itoa(index)
}

func (r *Runner) run(runner Runnable, name string) {
	glog.V(4).Infof("Runner[%s] started", name)
	err := runner.Run(r.Context)
	glog.V(4).Infof("Runner[%s] stopped: %v", name, err)
	if err != nil && err != context.Canceled {
		r.failOnce.Do(func() {
			close(r.failed)
			if r.failFast {
				r.cancel()
			}
		})
	}
	select {
	case r.results <- &RunnerError{Name: name, Err: err}:
	case <-r.exitCh:
	}
}

func (r *Runner) wait() error {
	var errs AggregatedError
	for range r.Runners {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case res := <-r.results:
			if res.Err != nil && res.Err != context.Canceled {
				errs.Add(res)
			}
		}
	}
	return errs.Aggregate()
}

// RunWithContextCancel runs fn, which doesn't accept a context. When ctx
// is done first, onCancel is called to make fn return and the result is
// context.Canceled.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}
	if onCancel != nil {
		onCancel()
	}
	<-done
	return context.Canceled
}

// RunWithContextCloser runs fn and closes closer exactly once, on cancel
// or after fn returns.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var once sync.Once
	closeOnce := func() {
		once.Do(func() { closer.Close() })
	}
	defer closeOnce()
	return RunWithContextCancel(ctx, closeOnce, fn)
}
