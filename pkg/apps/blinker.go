package apps

import (
	"encoding/binary"
	"time"

	"github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/task"
)

// DefaultBlinkPeriod is the default period of a Blinker.
const DefaultBlinkPeriod = 500 * time.Millisecond

// Blinker toggles a light every Period and reports each toggle as an
// EventBlink packet while the link is ready: on (u8), toggles (u32).
type Blinker struct {
	task.Task
	Link   *comm.Link
	Period time.Duration
	Clock  func() time.Time
	// Light is invoked on every toggle.
	Light func(on bool)

	on      bool
	toggles uint32
	next    time.Time
	event   comm.Packet
	payload [5]byte
}

const (
	blinkWait task.PC = iota + 1
	blinkSend
)

// NewBlinker creates a Blinker.
func NewBlinker(name string, link *comm.Link) *Blinker {
	b := &Blinker{Link: link, Period: DefaultBlinkPeriod, Clock: time.Now}
	b.Init(name)
	return b
}

// On tells if the light is on.
func (b *Blinker) On() bool {
	return b.on
}

// Toggles returns the number of toggles.
func (b *Blinker) Toggles() uint32 {
	return b.toggles
}

// AddTo schedules the blinker.
func (b *Blinker) AddTo(s *task.Scheduler) error {
	return s.Add(&b.Task, b.Run)
}

// Run is the task function.
func (b *Blinker) Run(t *task.Task) task.Status {
	switch t.Begin() {
	case task.Start:
		b.next = b.Clock().Add(b.period())
		fallthrough
	case blinkWait:
		now := b.Clock()
		if t.WaitWhile(blinkWait, now.Before(b.next)) {
			return task.Waiting
		}
		if b.next = b.next.Add(b.period()); b.next.Before(now) {
			b.next = now.Add(b.period())
		}
		b.on = !b.on
		b.toggles++
		if b.Light != nil {
			b.Light(b.on)
		}
		if b.Link == nil || !b.Link.Ready() {
			return t.Yield(blinkWait)
		}
		b.payload[0] = 0
		if b.on {
			b.payload[0] = 1
		}
		binary.LittleEndian.PutUint32(b.payload[1:], b.toggles)
		b.event = comm.Packet{Code: EventBlink, Data: b.payload[:]}
		fallthrough
	case blinkSend:
		if b.Link.Send(t, blinkSend, &b.event) {
			return task.Waiting
		}
		return t.Yield(blinkWait)
	}
	return t.End()
}

// Command handles CmdBlink: the optional data sets the period in
// milliseconds (u16); the reply carries the current period.
func (b *Blinker) Command(req *comm.Packet) ([]byte, error) {
	switch len(req.Data) {
	case 0:
	case 2:
		ms := binary.LittleEndian.Uint16(req.Data)
		if ms == 0 {
			return nil, ErrBadRequest
		}
		b.Period = time.Duration(ms) * time.Millisecond
		b.next = b.Clock().Add(b.Period)
	default:
		return nil, ErrBadRequest
	}
	return binary.LittleEndian.AppendUint16(nil, uint16(b.period()/time.Millisecond)), nil
}

func (b *Blinker) period() time.Duration {
	if b.Period > 0 {
		return b.Period
	}
	return DefaultBlinkPeriod
}
