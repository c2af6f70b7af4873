package comm

import (
	"github.com/robotalks/embd.go/pkg/l0/registry"
	"github.com/robotalks/embd.go/pkg/l0/task"
)

// Result is the result of a command.
type Result struct {
	Err  error
	Code byte
	Data []byte
}

// ResultFunc receives the result of a command. It runs inside the link
// task or in Abort.
type ResultFunc func(Result)

// Client matches replies from the peer with commands sent over a Link.
// Commands are tracked in a fixed-capacity table in send order.
type Client struct {
	Link     *Link
	Events   PacketHandler
	Notifier StateNotifier

	pending registry.Registry[PacketSeq, ResultFunc]
}

// NewClient creates client and wraps the link.
func NewClient(link *Link, maxPending int) *Client {
	c := &Client{Link: link}
	c.pending.Init(maxPending)
	link.Handler = c
	link.Notifier = c
	return c
}

// Pending returns the number of commands waiting for replies.
func (c *Client) Pending() int {
	return c.pending.Len()
}

// TryDo sends a command without suspending; fn receives the result.
func (c *Client) TryDo(pkt *Packet, fn ResultFunc) error {
	if c.pending.Free() == 0 {
		return ErrTooManyPending
	}
	if err := c.Link.TrySend(pkt); err != nil {
		return err
	}
	c.pending.Add(pkt.Seq, fn)
	return nil
}

// Do waits until the command can be sent and sends it.
// When it returns true the caller must return task.Waiting.
func (c *Client) Do(t *task.Task, at task.PC, pkt *Packet, fn ResultFunc) bool {
	if t.WaitWhile(at, c.pending.Free() == 0) {
		return true
	}
	if c.Link.Send(t, at, pkt) {
		return true
	}
	c.pending.Add(pkt.Seq, fn)
	return false
}

// Abort fails all pending commands with err.
func (c *Client) Abort(err error) {
	for c.pending.Len() > 0 {
		c.complete(Result{Err: err})
	}
}

// HandlePacket implements PacketHandler.
func (c *Client) HandlePacket(pkt *Packet) {
	if pkt.IsEvent() {
		if h := c.Events; h != nil {
			h.HandlePacket(pkt)
		}
		return
	}
	if len(pkt.Data) == 0 {
		// invalid response packet.
		return
	}
	seq := PacketSeq(pkt.Data[0])
	index := c.pending.IndexOf(seq)
	if !seq.IsValid() || index < 0 {
		return
	}
	for ; index > 0; index-- {
		c.complete(Result{Err: ErrNoReply})
	}
	if pkt.Code&CodeErrorFlag != 0 {
		c.complete(Result{Err: &CommandError{Code: pkt.Code &^ CodeErrorFlag}})
		return
	}
	data := make([]byte, len(pkt.Data)-1)
	copy(data, pkt.Data[1:])
	c.complete(Result{Code: pkt.Code, Data: data})
}

// StateChanged implements StateNotifier. Commands pending when the link
// loses sync never get replies.
func (c *Client) StateChanged(state SyncState) {
	if !state.IsReady() {
		c.Abort(ErrNotReady)
	}
	if n := c.Notifier; n != nil {
		n.StateChanged(state)
	}
}

func (c *Client) complete(r Result) {
	_, fn := c.pending.At(0)
	c.pending.RemoveAt(0)
	if fn != nil {
		fn(r)
	}
}
