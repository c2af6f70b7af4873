package apps

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l0/task"
)

// linkPair connects a host link and a board link back to back in one
// scheduler.
type linkPair struct {
	t      *testing.T
	sched  *task.Scheduler
	now    time.Time
	host   *comm.Link
	client *comm.Client
	board  *comm.Link
	inbox  *stream.Stream
	events []comm.Packet
}

func newLinkPair(t *testing.T) *linkPair {
	p := &linkPair{
		t:     t,
		sched: task.NewScheduler(8),
		now:   time.Unix(1000, 0),
		inbox: stream.MustNew(256),
	}
	down, up := stream.MustNew(256), stream.MustNew(256)
	clock := func() time.Time { return p.now }
	p.host = comm.NewLink("host", up, down)
	p.host.Clock = clock
	p.client = comm.NewClient(p.host, 4)
	p.client.Events = comm.HandlePacketFunc(func(pkt *comm.Packet) {
		p.events = append(p.events, comm.Packet{Code: pkt.Code, Data: append([]byte(nil), pkt.Data...)})
	})
	p.board = comm.NewLink("board", down, up)
	p.board.Clock = clock
	p.board.Inbox = p.inbox
	require.NoError(t, p.host.AddTo(p.sched))
	require.NoError(t, p.board.AddTo(p.sched))
	return p
}

func (p *linkPair) settle() {
	p.sched.Wake()
	for n := 0; n < 4096 && !p.sched.Idle(); n++ {
		p.sched.Step()
	}
	require.True(p.t, p.sched.Idle(), "tasks never settled")
}

func (p *linkPair) synced() *linkPair {
	p.settle()
	require.True(p.t, p.host.Ready())
	require.True(p.t, p.board.Ready())
	return p
}

func (p *linkPair) do(code byte, data ...byte) comm.Result {
	var res *comm.Result
	require.NoError(p.t, p.client.TryDo(&comm.Packet{Code: code, Data: data}, func(r comm.Result) {
		res = &r
	}))
	p.settle()
	require.NotNil(p.t, res, "no reply")
	return *res
}

func TestResponder(t *testing.T) {
	p := newLinkPair(t)
	r := NewResponder("responder", p.board, p.inbox)
	require.NoError(t, r.Handle(CmdEcho, Echo))
	require.NoError(t, r.Handle(CmdStats, Stats(p.sched, p.board)))
	require.NoError(t, r.AddTo(p.sched))
	p.synced()

	res := p.do(CmdEcho, 1, 2, 3)
	require.NoError(t, res.Err)
	assert.Equal(t, CmdEcho, res.Code)
	assert.Equal(t, []byte{1, 2, 3}, res.Data)

	long := make([]byte, comm.MaxDataLen)
	res = p.do(CmdEcho, long...)
	require.NoError(t, res.Err)
	assert.Len(t, res.Data, comm.MaxDataLen-1)

	res = p.do(CmdStats)
	require.NoError(t, res.Err)
	require.Len(t, res.Data, 14)
	assert.Equal(t, byte(3), res.Data[0])
	assert.Equal(t, byte(5), res.Data[1])
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(res.Data[6:]))

	res = p.do(0x0a)
	assert.Equal(t, &comm.CommandError{Code: 0x0a}, res.Err)
	assert.Equal(t, uint32(4), r.Served())
}

func TestResponderCommandTable(t *testing.T) {
	p := newLinkPair(t)
	r := NewResponder("responder", p.board, p.inbox)
	for code := 0; code < DefaultMaxCommands; code++ {
		require.NoError(t, r.Handle(byte(code<<1), Echo))
	}
	assert.Error(t, r.Handle(0x0e|0x10, Echo))
}

func TestBlinker(t *testing.T) {
	p := newLinkPair(t)
	b := NewBlinker("blink", p.board)
	b.Clock = func() time.Time { return p.now }
	b.Period = 100 * time.Millisecond
	var lights []bool
	b.Light = func(on bool) { lights = append(lights, on) }
	require.NoError(t, b.AddTo(p.sched))
	p.synced()
	assert.Zero(t, b.Toggles())

	p.now = p.now.Add(100 * time.Millisecond)
	p.settle()
	assert.True(t, b.On())
	p.now = p.now.Add(100 * time.Millisecond)
	p.settle()
	assert.False(t, b.On())
	assert.Equal(t, []bool{true, false}, lights)
	assert.Equal(t, []comm.Packet{
		{Code: EventBlink, Data: []byte{1, 1, 0, 0, 0}},
		{Code: EventBlink, Data: []byte{0, 2, 0, 0, 0}},
	}, p.events)

	// falling behind doesn't burst.
	p.now = p.now.Add(time.Second)
	p.settle()
	assert.Equal(t, uint32(3), b.Toggles())
}

func TestBlinkerCommand(t *testing.T) {
	p := newLinkPair(t)
	b := NewBlinker("blink", p.board)
	b.Clock = func() time.Time { return p.now }
	r := NewResponder("responder", p.board, p.inbox)
	require.NoError(t, r.Handle(CmdBlink, b.Command))
	require.NoError(t, b.AddTo(p.sched))
	require.NoError(t, r.AddTo(p.sched))
	p.synced()

	res := p.do(CmdBlink)
	require.NoError(t, res.Err)
	assert.Equal(t, uint16(500), binary.LittleEndian.Uint16(res.Data))

	res = p.do(CmdBlink, 0xe8, 0x03)
	require.NoError(t, res.Err)
	assert.Equal(t, uint16(1000), binary.LittleEndian.Uint16(res.Data))
	assert.Equal(t, time.Second, b.Period)

	res = p.do(CmdBlink, 0, 0)
	assert.Error(t, res.Err)
	res = p.do(CmdBlink, 1)
	assert.Error(t, res.Err)
}

func TestCounter(t *testing.T) {
	s := task.NewScheduler(4)
	c := NewCounter("count", 3)
	require.NoError(t, c.AddTo(s))
	for n := 0; n < 10; n++ {
		s.Step()
	}
	require.True(t, s.Idle())
	assert.Zero(t, c.Value())

	c.Request(30)
	s.Wake()
	for n := 0; n < 1000 && !s.Idle(); n++ {
		s.Step()
		require.LessOrEqual(t, c.Sem.Value(), 1)
	}
	assert.Equal(t, uint32(30), c.Value())
	assert.Zero(t, c.Pending())
	assert.Equal(t, 1, c.Sem.Value())
	var done uint32
	for _, w := range c.Workers() {
		done += w.Done()
	}
	assert.Equal(t, uint32(30), done)
}

func TestCounterCommand(t *testing.T) {
	p := newLinkPair(t)
	c := NewCounter("count", 2)
	r := NewResponder("responder", p.board, p.inbox)
	require.NoError(t, r.Handle(CmdCounter, c.Command))
	require.NoError(t, c.AddTo(p.sched))
	require.NoError(t, r.AddTo(p.sched))
	p.synced()

	res := p.do(CmdCounter, 5)
	require.NoError(t, res.Err)
	res = p.do(CmdCounter)
	require.NoError(t, res.Err)
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(res.Data))
	assert.Zero(t, binary.LittleEndian.Uint32(res.Data[4:]))

	res = p.do(CmdCounter, 1, 2)
	assert.Error(t, res.Err)
}
