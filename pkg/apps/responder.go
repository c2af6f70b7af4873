// Package apps provides task bodies a board runs on top of its link.
package apps

import (
	"encoding/binary"
	"errors"

	"github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/registry"
	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l0/task"
)

// Command codes understood by the Responder of a board.
const (
	CmdEcho    byte = 0x02
	CmdStats   byte = 0x04
	CmdCounter byte = 0x06
	CmdBlink   byte = 0x08
)

// Event codes sent by boards.
const (
	EventBlink byte = comm.CodeEventFlag | 0x02
)

// ErrBadRequest indicates malformed command data.
var ErrBadRequest = errors.New("bad request")

// CommandFunc handles a command and returns the reply data.
// Returning an error sends an error reply.
type CommandFunc func(req *comm.Packet) ([]byte, error)

// DefaultMaxCommands is the default capacity of the command table.
const DefaultMaxCommands = 8

// Responder reads commands framed into the inbox of a link and sends
// back the replies of the registered handlers. Unknown commands get
// error replies; events are ignored.
type Responder struct {
	task.Task
	Link  *comm.Link
	Inbox *stream.Stream

	commands registry.Registry[byte, CommandFunc]
	req      comm.Packet
	reply    *comm.Packet
	served   uint32
}

const (
	respRecv task.PC = iota + 1
	respSend
)

// NewResponder creates a Responder.
func NewResponder(name string, link *comm.Link, inbox *stream.Stream) *Responder {
	r := &Responder{Link: link, Inbox: inbox}
	r.Init(name)
	r.commands.Init(DefaultMaxCommands)
	r.req.Data = make([]byte, 0, comm.MaxDataLen)
	return r
}

// Handle registers fn for a command code.
func (r *Responder) Handle(code byte, fn CommandFunc) error {
	return r.commands.Add(code, fn)
}

// Served returns the number of commands replied.
func (r *Responder) Served() uint32 {
	return r.served
}

// AddTo schedules the responder.
func (r *Responder) AddTo(s *task.Scheduler) error {
	return s.Add(&r.Task, r.Run)
}

// Run is the task function.
func (r *Responder) Run(t *task.Task) task.Status {
	switch t.Begin() {
	case task.Start, respRecv:
		if comm.ReadFrame(t, respRecv, r.Inbox, &r.req) {
			return task.Waiting
		}
		if r.req.IsEvent() {
			return t.End()
		}
		r.reply = r.dispatch(&r.req)
		fallthrough
	case respSend:
		if r.Link.Send(t, respSend, r.reply) {
			return task.Waiting
		}
		r.reply = nil
		r.served++
	}
	return t.End()
}

func (r *Responder) dispatch(req *comm.Packet) *comm.Packet {
	fn, ok := r.commands.Get(req.Code)
	if !ok {
		return req.ErrorReply(req.Code)
	}
	data, err := fn(req)
	if err != nil || len(data) >= comm.MaxDataLen {
		return req.ErrorReply(req.Code)
	}
	return req.Reply(req.Code, data...)
}

// Echo replies the request data.
func Echo(req *comm.Packet) ([]byte, error) {
	if len(req.Data) >= comm.MaxDataLen {
		return req.Data[:comm.MaxDataLen-1], nil
	}
	return req.Data, nil
}

// Stats replies the state of the scheduler and the link:
// tasks (u8), free (u8), cycles (u32), received (u32), sent (u32).
func Stats(s *task.Scheduler, link *comm.Link) CommandFunc {
	return func(*comm.Packet) ([]byte, error) {
		stats := link.Stats()
		data := make([]byte, 0, 14)
		data = append(data, byte(s.Len()), byte(s.Free()))
		data = binary.LittleEndian.AppendUint32(data, uint32(s.Cycles()))
		data = binary.LittleEndian.AppendUint32(data, uint32(stats.Received))
		data = binary.LittleEndian.AppendUint32(data, uint32(stats.Sent))
		return data, nil
	}
}
