package apps

import (
	"encoding/binary"
	"strconv"

	"github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/task"
)

// Counter is a value incremented by worker tasks. Each increment is a
// read, a yield and a write back, so the workers take a semaphore around
// it.
type Counter struct {
	Sem task.Semaphore

	value    uint32
	requests uint32
	workers  []*CounterWorker
}

// CounterWorker is a task serving increment requests of a Counter.
type CounterWorker struct {
	task.Task

	counter *Counter
	local   uint32
	done    uint32
}

const (
	counterAcquire task.PC = iota + 1
	counterCommit
)

// NewCounter creates a Counter with n workers.
func NewCounter(name string, n int) *Counter {
	c := &Counter{Sem: 1}
	for i := 0; i < n; i++ {
		w := &CounterWorker{counter: c}
		w.Init(name + "." + strconv.Itoa(i))
		c.workers = append(c.workers, w)
	}
	return c
}

// Value returns the counter.
func (c *Counter) Value() uint32 {
	return c.value
}

// Pending returns the number of increments requested but not done.
func (c *Counter) Pending() uint32 {
	return c.requests
}

// Request asks the workers for n increments.
func (c *Counter) Request(n uint32) {
	c.requests += n
}

// Workers returns the worker tasks.
func (c *Counter) Workers() []*CounterWorker {
	return c.workers
}

// AddTo schedules the workers.
func (c *Counter) AddTo(s *task.Scheduler) error {
	for _, w := range c.workers {
		if err := s.Add(&w.Task, w.Run); err != nil {
			return err
		}
	}
	return nil
}

// Command handles CmdCounter: the optional data (u8) requests more
// increments; the reply carries the value (u32) and pending requests (u32).
func (c *Counter) Command(req *comm.Packet) ([]byte, error) {
	switch len(req.Data) {
	case 0:
	case 1:
		c.Request(uint32(req.Data[0]))
	default:
		return nil, ErrBadRequest
	}
	data := binary.LittleEndian.AppendUint32(make([]byte, 0, 8), c.value)
	return binary.LittleEndian.AppendUint32(data, c.requests), nil
}

// Done returns the number of increments done by this worker.
func (w *CounterWorker) Done() uint32 {
	return w.done
}

// Run is the task function.
func (w *CounterWorker) Run(t *task.Task) task.Status {
	c := w.counter
	switch t.Begin() {
	case task.Start:
		if t.WaitWhile(task.Start, c.requests == 0) {
			return task.Waiting
		}
		fallthrough
	case counterAcquire:
		if c.Sem.Wait(t, counterAcquire) {
			return task.Waiting
		}
		if c.requests == 0 {
			c.Sem.Signal()
			return t.End()
		}
		c.requests--
		w.local = c.value
		return t.Yield(counterCommit)
	case counterCommit:
		c.value = w.local + 1
		w.done++
		c.Sem.Signal()
	}
	return t.End()
}
