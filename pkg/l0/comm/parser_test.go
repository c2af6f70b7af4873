package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireStep feeds bytes to the parser; a nil input fires the resync timer.
type wireStep struct {
	in    []byte
	syncs []byte
	pkts  []Packet
	state SyncState
}

func feed(p *Parser, in []byte) (syncs []byte, pkts []Packet, state SyncState) {
	results := make([]ParseResult, 0, len(in))
	if in == nil {
		results = append(results, p.Timeout())
	}
	for _, b := range in {
		results = append(results, p.Parse(b))
	}
	for _, r := range results {
		if r.Sync != 0 {
			syncs = append(syncs, r.Sync)
		}
		if r.Packet != nil {
			pkts = append(pkts, Packet{
				Seq:  r.Packet.Seq,
				Code: r.Packet.Code,
				Data: append([]byte(nil), r.Packet.Data...),
			})
		}
		state = r.State
	}
	return
}

func bytesOf(b ...byte) []byte { return b }

var handshakeByAck = wireStep{in: bytesOf(syncACK, 1), state: SyncStateReady}

func TestParserWire(t *testing.T) {
	testCases := []struct {
		name  string
		steps []wireStep
	}{
		{
			name: "packets of every length form",
			steps: []wireStep{
				handshakeByAck,
				{in: bytesOf(1, 0x02), pkts: []Packet{{Seq: 1, Code: 2}}, state: SyncStateReady},
				{in: bytesOf(2, 0x72, 0), pkts: []Packet{{Seq: 2, Code: 2}}, state: SyncStateReady},
				{in: bytesOf(3, 0x92, 3), pkts: []Packet{{Seq: 3, Code: 0x82, Data: []byte{3}}}, state: SyncStateReady},
				{
					in:    bytesOf(4, 0x72, 8, 1, 2, 3, 4, 5, 6, 7, 8),
					pkts:  []Packet{{Seq: 4, Code: 2, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}},
					state: SyncStateReady,
				},
			},
		},
		{
			name: "request is answered",
			steps: []wireStep{
				{in: bytesOf(syncREQ, 1), syncs: bytesOf(syncACK), state: SyncStateReady},
			},
		},
		{
			name: "timer resends request until synced",
			steps: []wireStep{
				{syncs: bytesOf(syncREQ), state: SyncStateSyncing},
				{in: bytesOf(syncACK), state: SyncStateSyncing | SyncStateReceiving},
				{syncs: bytesOf(syncREQ), state: SyncStateSyncing},
				handshakeByAck,
				{state: SyncStateReady},
			},
		},
		{
			name: "noise before handshake",
			steps: []wireStep{
				{in: bytesOf(1, 2, 3, 4, 0x80, 0x81, 0xf0, 0xf1), state: SyncStateSyncing},
				handshakeByAck,
			},
		},
		{
			name: "invalid peer seq in handshake",
			steps: []wireStep{
				{in: bytesOf(syncREQ, syncREQ), syncs: bytesOf(syncREQ), state: SyncStateSyncing},
				{in: bytesOf(syncACK, 0xf0), syncs: bytesOf(syncREQ), state: SyncStateSyncing},
				handshakeByAck,
			},
		},
		{
			name: "peer restarts handshake",
			steps: []wireStep{
				handshakeByAck,
				{in: bytesOf(1, 0x02), pkts: []Packet{{Seq: 1, Code: 2}}, state: SyncStateReady},
				{in: bytesOf(syncREQ, 7), syncs: bytesOf(syncACK), state: SyncStateReady},
				{in: bytesOf(7, 0x04), pkts: []Packet{{Seq: 7, Code: 4}}, state: SyncStateReady},
			},
		},
		{
			name: "inline ack validated against peer seq",
			steps: []wireStep{
				handshakeByAck,
				{in: bytesOf(syncACK, 1), state: SyncStateReady},
				{in: bytesOf(syncACK, 2), syncs: bytesOf(syncREQ), state: SyncStateSyncing},
			},
		},
		{
			name: "out of order seq resyncs",
			steps: []wireStep{
				handshakeByAck,
				{in: bytesOf(1, 0x02), pkts: []Packet{{Seq: 1, Code: 2}}, state: SyncStateReady},
				{in: bytesOf(1), syncs: bytesOf(syncREQ), state: SyncStateSyncing},
				{in: bytesOf(0x92, 3), state: SyncStateSyncing},
				{in: bytesOf(syncACK, 3), state: SyncStateReady},
			},
		},
		{
			name: "oversized length resyncs",
			steps: []wireStep{
				handshakeByAck,
				{in: bytesOf(1, 0x70, MaxDataLen+1), syncs: bytesOf(syncREQ), state: SyncStateSyncing},
			},
		},
		{
			name: "seq wraps below sync bytes",
			steps: []wireStep{
				{in: bytesOf(syncACK, 0xef), state: SyncStateReady},
				{in: bytesOf(0xef, 0x02, 1, 0x02), pkts: []Packet{{Seq: 0xef, Code: 2}, {Seq: 1, Code: 2}}, state: SyncStateReady},
			},
		},
		{
			name: "handshake and packets in one burst",
			steps: []wireStep{
				{
					in:    bytesOf(syncREQ, 5, 5, 0x01, 6, 0x11, 9),
					syncs: bytesOf(syncACK),
					pkts:  []Packet{{Seq: 5, Code: 1}, {Seq: 6, Code: 1, Data: []byte{9}}},
					state: SyncStateReady,
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Parser
			for n, step := range tc.steps {
				syncs, pkts, state := feed(&p, step.in)
				require.Equalf(t, step.syncs, syncs, "step %d syncs", n)
				require.Equalf(t, step.pkts, pkts, "step %d packets", n)
				require.Equalf(t, step.state, state, "step %d state", n)
			}
		})
	}
}

func TestParserPartialPacketState(t *testing.T) {
	var p Parser
	feed(&p, handshakeByAck.in)
	for _, b := range []byte{1, 0x32, 1, 2} {
		assert.Equal(t, SyncStateReady|SyncStateReceiving, p.Parse(b).State)
	}
	r := p.Parse(3)
	assert.Equal(t, SyncStateReady, r.State)
	require.NotNil(t, r.Packet)
	assert.Equal(t, []byte{1, 2, 3}, r.Packet.Data)
}

func TestParserReset(t *testing.T) {
	var p Parser
	feed(&p, handshakeByAck.in)
	r := p.Reset()
	assert.Equal(t, ParseResult{Sync: syncREQ, State: SyncStateSyncing}, r)
	assert.Equal(t, SyncStateSyncing, p.State())
}

func TestParserReusesStorage(t *testing.T) {
	var p Parser
	feed(&p, handshakeByAck.in)
	p.Parse(1)
	p.Parse(0x12)
	first := p.Parse(5).Packet
	require.Equal(t, []byte{5}, first.Data)
	p.Parse(2)
	p.Parse(0x12)
	second := p.Parse(6).Packet
	assert.Same(t, first, second)
	assert.Equal(t, PacketSeq(2), second.Seq)
	assert.Equal(t, []byte{6}, second.Data)
}

func TestSyncState(t *testing.T) {
	states := map[SyncState]struct {
		name      string
		ready     bool
		receiving bool
	}{
		SyncStateSyncing:                      {"syncing", false, false},
		SyncStateSyncing | SyncStateReceiving: {"handshaking", false, true},
		SyncStateReady:                        {"ready", true, false},
		SyncStateReady | SyncStateReceiving:   {"receiving", true, true},
	}
	for state, expect := range states {
		assert.Equal(t, expect.name, state.String())
		assert.Equal(t, expect.ready, state.IsReady(), expect.name)
		assert.Equal(t, expect.receiving, state.IsReceiving(), expect.name)
	}
}

func TestTimerAction(t *testing.T) {
	assert.Equal(t, TimerNoChange, ParseResult{State: SyncStateSyncing}.WhatAboutTimer())
	assert.Equal(t, TimerRestart, ParseResult{Sync: syncREQ, State: SyncStateSyncing}.WhatAboutTimer())
	assert.Equal(t, TimerRestart, ParseResult{State: SyncStateSyncing | SyncStateReceiving}.WhatAboutTimer())
	assert.Equal(t, TimerRestart, ParseResult{State: SyncStateReady | SyncStateReceiving}.WhatAboutTimer())
	assert.Equal(t, TimerStop, ParseResult{State: SyncStateReady}.WhatAboutTimer())
	assert.Equal(t, TimerStop, ParseResult{Sync: syncACK, State: SyncStateReady}.WhatAboutTimer())
}
