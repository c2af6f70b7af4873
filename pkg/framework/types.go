package framework

import "context"

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Poller is invoked by the loop between task slices, on the goroutine
// running the tasks. It reports whether it changed anything tasks may be
// waiting on.
type Poller interface {
	Poll() bool
}

// PollFunc is the func form of Poller.
type PollFunc func() bool

// Poll implements Poller.
func (f PollFunc) Poll() bool {
	return f()
}

// Interrupter accepts handlers to be run between task slices.
type Interrupter interface {
	// Interrupt enqueues fn. Handlers run in order on the loop goroutine
	// and may only use non-suspending stream operations.
	Interrupt(fn func())
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
