package comm

import (
	"time"

	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l0/task"
)

// PacketHandler is called when a packet is received. The packet is only
// valid during the call.
type PacketHandler interface {
	HandlePacket(*Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(*Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(pkt *Packet) {
	f(pkt)
}

// StateNotifier is called when link state changed.
type StateNotifier interface {
	StateChanged(SyncState)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(SyncState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(state SyncState) {
	f(state)
}

// Defaults of a Link.
const (
	DefaultTimeout = 100 * time.Millisecond
	DefaultBurst   = 16
)

// LinkStats counts link activity.
type LinkStats struct {
	Sent     uint64
	Received uint64
	Resyncs  uint64
	Dropped  uint64
}

// Link is a task decoding packets from RX and encoding packets into TX.
//
// Received packets go to Handler and, framed, into Inbox when set; a
// full Inbox drops the packet.
type Link struct {
	task.Task

	RX       *stream.Stream
	TX       *stream.Stream
	Inbox    *stream.Stream
	Handler  PacketHandler
	Notifier StateNotifier
	Timeout  time.Duration
	Burst    int
	Clock    func() time.Time

	seq      PacketSeq
	state    SyncState
	sync     byte
	timer    bool
	deadline time.Time
	stats    LinkStats
	parser   Parser
}

const (
	linkSync task.PC = iota + 1
	linkRecv
)

// NewLink creates a Link.
func NewLink(name string, rx, tx *stream.Stream) *Link {
	l := &Link{
		RX:      rx,
		TX:      tx,
		Timeout: DefaultTimeout,
		Burst:   DefaultBurst,
		Clock:   time.Now,
		seq:     NewPacketSeq(),
	}
	l.Init(name)
	return l
}

// AddTo schedules the link.
func (l *Link) AddTo(s *task.Scheduler) error {
	return s.Add(&l.Task, l.Run)
}

// State gets the state.
func (l *Link) State() SyncState {
	return l.state
}

// Ready tells if packets can be sent.
func (l *Link) Ready() bool {
	return l.state.IsReady() && l.sync == 0
}

// Stats returns the activity counters.
func (l *Link) Stats() LinkStats {
	return l.stats
}

// TrySend sends a packet without suspending, assigning its sequence.
func (l *Link) TrySend(pkt *Packet) error {
	if len(pkt.Data) > MaxDataLen {
		return ErrPacketTooLarge
	}
	if !l.Ready() {
		return ErrNotReady
	}
	pkt.Seq = l.seq
	if !pkt.TryWriteTo(l.TX) {
		return ErrTxFull
	}
	l.seq = l.seq.Next()
	l.stats.Sent++
	return nil
}

// Send waits until the link is ready and TX has room, then sends pkt.
// When it returns true the caller must return task.Waiting.
// It panics if the payload exceeds MaxDataLen.
func (l *Link) Send(t *task.Task, at task.PC, pkt *Packet) bool {
	if len(pkt.Data) > MaxDataLen {
		panic(ErrPacketTooLarge)
	}
	if t.WaitWhile(at, !l.Ready() || pkt.EncodedLen() > l.TX.Free()) {
		return true
	}
	l.TrySend(pkt)
	return false
}

// Run is the task function.
func (l *Link) Run(t *task.Task) task.Status {
	switch t.Begin() {
	case task.Start:
		l.apply(l.parser.Reset())
		return t.Yield(linkSync)
	case linkSync:
		if l.sync != 0 {
			msg := [2]byte{l.sync, byte(l.seq)}
			if l.TX.Write(t, linkSync, msg[:]) {
				return task.Waiting
			}
			l.sync = 0
		}
		return t.Yield(linkRecv)
	case linkRecv:
		if t.WaitWhile(linkRecv, l.RX.Available() == 0 && !l.expired()) {
			return task.Waiting
		}
		for n := 0; n < l.Burst || n == 0; n++ {
			b, ok := l.RX.TryReadByte()
			if !ok {
				if l.expired() {
					l.apply(l.parser.Timeout())
				}
				break
			}
			if l.apply(l.parser.Parse(b)); l.sync != 0 {
				break
			}
		}
		if l.sync != 0 {
			return t.Yield(linkSync)
		}
		return t.Yield(linkRecv)
	}
	return t.End()
}

func (l *Link) now() time.Time {
	if c := l.Clock; c != nil {
		return c()
	}
	return time.Now()
}

func (l *Link) expired() bool {
	return l.timer && !l.now().Before(l.deadline)
}

func (l *Link) apply(pr ParseResult) {
	if pr.Sync != 0 {
		l.sync = pr.Sync
		if pr.Sync == syncREQ {
			l.stats.Resyncs++
		}
	}
	switch pr.WhatAboutTimer() {
	case TimerRestart:
		timeout := l.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		l.timer, l.deadline = true, l.now().Add(timeout)
	case TimerStop:
		l.timer = false
	}
	if l.state != pr.State {
		l.state = pr.State
		if n := l.Notifier; n != nil {
			n.StateChanged(pr.State)
		}
	}
	if pkt := pr.Packet; pkt != nil {
		l.stats.Received++
		if h := l.Handler; h != nil {
			h.HandlePacket(pkt)
		}
		if l.Inbox != nil && !TryWriteFrame(l.Inbox, pkt) {
			l.stats.Dropped++
		}
	}
}
