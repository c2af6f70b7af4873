// Package host talks to the link of a board from a host process.
package host

import (
	"context"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/embd.go/pkg/framework"
	l0comm "github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l0/task"
	"github.com/robotalks/embd.go/pkg/l1/comm"
)

// Defaults of a Session.
const (
	DefaultStreamCap  = 1024
	DefaultMaxPending = 16
)

// EventHandler receives events from the board, on the loop goroutine.
type EventHandler func(code byte, data []byte)

// Session runs a host side link over a packet transport and exposes
// commands to other goroutines.
type Session struct {
	Loop   *fx.Loop
	Port   *comm.Port
	Link   *l0comm.Link
	Client *l0comm.Client

	lock     sync.Mutex
	state    l0comm.SyncState
	changeCh chan struct{}
	onEvent  EventHandler
}

// NewSession creates a Session over rw.
func NewSession(name string, rw comm.PacketReadWriter) *Session {
	rx, tx := stream.MustNew(DefaultStreamCap), stream.MustNew(DefaultStreamCap)
	s := &Session{changeCh: make(chan struct{})}
	s.Link = l0comm.NewLink(name, rx, tx)
	s.Client = l0comm.NewClient(s.Link, DefaultMaxPending)
	s.Client.Notifier = l0comm.StateChangedFunc(s.stateChanged)
	s.Client.Events = l0comm.HandlePacketFunc(s.handleEvent)
	sched := task.NewScheduler(1)
	if err := s.Link.AddTo(sched); err != nil {
		panic(err)
	}
	s.Loop = fx.NewLoop(sched)
	s.Port = comm.NewPort(name+".port", rw, rx, tx)
	s.Loop.Add(s.Port)
	return s
}

// OnEvent sets the event handler. Call it before Run.
func (s *Session) OnEvent(h EventHandler) *Session {
	s.onEvent = h
	return s
}

// Run implements Runnable.
func (s *Session) Run(ctx context.Context) error {
	return s.Loop.Run(ctx)
}

// Ready tells if the link is synchronized.
func (s *Session) Ready() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state.IsReady()
}

// WaitReady blocks until the link is synchronized.
func (s *Session) WaitReady(ctx context.Context) error {
	for {
		s.lock.Lock()
		ready, changeCh := s.state.IsReady(), s.changeCh
		s.lock.Unlock()
		if ready {
			return nil
		}
		select {
		case <-changeCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Do sends a command and waits for its result.
func (s *Session) Do(ctx context.Context, code byte, data ...byte) (l0comm.Result, error) {
	if len(data) > l0comm.MaxDataLen {
		return l0comm.Result{}, l0comm.ErrPacketTooLarge
	}
	pkt := &l0comm.Packet{Code: code, Data: data}
	resCh := make(chan l0comm.Result, 1)
	s.Loop.Interrupt(func() {
		if err := s.Client.TryDo(pkt, func(r l0comm.Result) { resCh <- r }); err != nil {
			resCh <- l0comm.Result{Err: err}
		}
	})
	select {
	case r := <-resCh:
		return r, r.Err
	case <-ctx.Done():
		return l0comm.Result{}, ctx.Err()
	}
}

// Stats collects link and port counters on the loop goroutine.
func (s *Session) Stats(ctx context.Context) (l0comm.LinkStats, comm.PortStats, error) {
	type stats struct {
		link l0comm.LinkStats
		port comm.PortStats
	}
	resCh := make(chan stats, 1)
	s.Loop.Interrupt(func() {
		resCh <- stats{link: s.Link.Stats(), port: s.Port.Stats()}
	})
	select {
	case r := <-resCh:
		return r.link, r.port, nil
	case <-ctx.Done():
		return l0comm.LinkStats{}, comm.PortStats{}, ctx.Err()
	}
}

func (s *Session) stateChanged(state l0comm.SyncState) {
	glog.V(1).Infof("%s: link %s", s.Link.Name(), state)
	s.lock.Lock()
	s.state = state
	close(s.changeCh)
	s.changeCh = make(chan struct{})
	s.lock.Unlock()
}

func (s *Session) handleEvent(pkt *l0comm.Packet) {
	if h := s.onEvent; h != nil {
		h(pkt.Code, append([]byte(nil), pkt.Data...))
	}
}
