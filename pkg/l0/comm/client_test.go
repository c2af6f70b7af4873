package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type clientTestEnv struct {
	*linkTestEnv
	client  *Client
	results []Result
	events  []Packet
}

func newClientTestEnv(t *testing.T) *clientTestEnv {
	env := &clientTestEnv{linkTestEnv: newLinkTestEnv(t, 64)}
	env.client = NewClient(env.link, 2)
	env.client.Notifier = StateChangedFunc(env.stateChanged)
	env.client.Events = HandlePacketFunc(func(pkt *Packet) {
		env.events = append(env.events, Packet{Seq: pkt.Seq, Code: pkt.Code, Data: append([]byte(nil), pkt.Data...)})
	})
	env.synced()
	return env
}

func (e *clientTestEnv) do(code byte, data ...byte) *clientTestEnv {
	require.NoError(e.t, e.client.TryDo(&Packet{Code: code, Data: data}, func(r Result) {
		e.results = append(e.results, r)
	}))
	return e
}

func (e *clientTestEnv) inject(bs ...byte) *clientTestEnv {
	e.linkTestEnv.inject(bs...)
	return e
}

func (e *clientTestEnv) expectResults(results ...Result) *clientTestEnv {
	require.Equal(e.t, results, e.results)
	e.results = nil
	return e
}

func TestClientCommand(t *testing.T) {
	env := newClientTestEnv(t)
	env.do(1).expect(1, 1)
	require.Equal(t, 1, env.client.Pending())
	env.inject(1, 0x10, 1).expectResults(Result{Data: []byte{}})
	require.Equal(t, 0, env.client.Pending())
}

func TestClientNoReply(t *testing.T) {
	env := newClientTestEnv(t)
	env.do(1).do(2).expect(1, 1, 2, 2)
	env.inject(1, 0x22, 2, 3).expectResults(
		Result{Err: ErrNoReply},
		Result{Code: 2, Data: []byte{3}},
	)
}

func TestClientErrorReply(t *testing.T) {
	env := newClientTestEnv(t)
	env.do(4).expect(1, 4)
	env.inject(1, 0x15, 1).expectResults(Result{Err: &CommandError{Code: 4}})
}

func TestClientUnknownReply(t *testing.T) {
	env := newClientTestEnv(t)
	env.do(4).expect(1, 4)
	env.inject(1, 0x14, 9).inject(2, 0x04).expectResults()
	require.Equal(t, 1, env.client.Pending())
}

func TestClientEvent(t *testing.T) {
	env := newClientTestEnv(t)
	env.do(1).expect(1, 1)
	env.inject(1, 0x91, 2)
	require.Equal(t, []Packet{{Seq: 1, Code: 0x81, Data: []byte{2}}}, env.events)
	env.inject(2, 0x14, 1).expectResults(Result{Code: 4, Data: []byte{}})
}

func TestClientPendingLimit(t *testing.T) {
	env := newClientTestEnv(t)
	env.do(1).do(2)
	require.Equal(t, ErrTooManyPending, env.client.TryDo(&Packet{Code: 3}, nil))
}

func TestClientAbortOnResync(t *testing.T) {
	env := newClientTestEnv(t)
	env.do(1).do(2).expect(1, 1, 2, 2)
	env.inject(9).expectResults(
		Result{Err: ErrNotReady},
		Result{Err: ErrNotReady},
	)
	env.expect(syncREQ, 3)
	require.Equal(t, ErrNotReady, env.client.TryDo(&Packet{Code: 3}, nil))
}
