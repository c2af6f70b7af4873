package comm

// SyncState indicates the state of the link.
type SyncState int

const (
	// SyncStateSyncing means the link is not synchronized.
	SyncStateSyncing SyncState = 0
	// SyncStateReady means the link is synchronized and ready for packets.
	SyncStateReady SyncState = 0x01
	// SyncStateReceiving means a sync handshake or a packet is in progress.
	SyncStateReceiving SyncState = 0x02
)

// IsReady indicates if the link is ready for packets.
func (s SyncState) IsReady() bool {
	return s&SyncStateReady != 0
}

// IsReceiving indicates if a handshake or a packet is half way.
func (s SyncState) IsReceiving() bool {
	return s&SyncStateReceiving != 0
}

// String implements fmt.Stringer.
func (s SyncState) String() string {
	switch s {
	case SyncStateSyncing:
		return "syncing"
	case SyncStateSyncing | SyncStateReceiving:
		return "handshaking"
	case SyncStateReady:
		return "ready"
	default:
		return "receiving"
	}
}

// TimerAction defines what to do with the resync timer.
type TimerAction int

const (
	// TimerNoChange keeps the timer as-is.
	TimerNoChange TimerAction = iota
	// TimerRestart restarts the timer.
	TimerRestart
	// TimerStop stops the timer.
	TimerStop
)

// ParseResult is the outcome of feeding the parser.
// Packet, when set, is owned by the parser and valid until the next call.
type ParseResult struct {
	Sync   byte
	State  SyncState
	Packet *Packet
}

// WhatAboutTimer decides what to do with the resync timer.
func (r ParseResult) WhatAboutTimer() TimerAction {
	switch {
	case r.State.IsReceiving(), r.Sync == syncREQ:
		return TimerRestart
	case r.State.IsReady():
		return TimerStop
	}
	return TimerNoChange
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type parseState int

const (
	expectSync      parseState = iota // REQ sent, waiting for REQ or ACK
	expectReqSeq                      // peer seq after REQ
	expectAckSeq                      // peer seq after ACK
	expectSeq                         // idle, next packet seq
	expectInlineAck                   // ACK while idle, validate seq
	expectCode                        // code and short length
	expectLen                         // long length
	expectData                        // payload
)

// Parser decodes the byte stream of the link. It never allocates: packet
// payloads live in an internal buffer.
type Parser struct {
	peer  PacketSeq
	at    parseState
	pkt   Packet
	got   int
	want  int
	store [MaxDataLen]byte
}

// State gets the current sync state.
func (p *Parser) State() SyncState {
	switch {
	case p.at == expectSync:
		return SyncStateSyncing
	case p.at == expectSeq:
		return SyncStateReady
	case p.at > expectSeq:
		return SyncStateReady | SyncStateReceiving
	}
	return SyncStateSyncing | SyncStateReceiving
}

// Reset starts over with a sync request.
func (p *Parser) Reset() ParseResult {
	return p.result(p.resync())
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) ParseResult {
	return p.result(p.consume(b))
}

// Timeout tells the parser the resync timer expired. An idle synchronized
// link stays as is.
func (p *Parser) Timeout() ParseResult {
	if p.at == expectSeq {
		return p.result(0, nil)
	}
	return p.result(p.resync())
}

func (p *Parser) result(sync byte, pkt *Packet) ParseResult {
	return ParseResult{Sync: sync, State: p.State(), Packet: pkt}
}

func (p *Parser) consume(b byte) (byte, *Packet) {
	switch p.at {
	case expectSync:
		p.handshake(b)
	case expectReqSeq, expectAckSeq:
		if !PacketSeq(b).IsValid() {
			return p.resync()
		}
		replied := p.at == expectReqSeq
		p.peer, p.at = PacketSeq(b), expectSeq
		if replied {
			return syncACK, nil
		}
	case expectSeq:
		return p.packetStart(b)
	case expectInlineAck:
		if b != byte(p.peer) {
			return p.resync()
		}
		p.at = expectSeq
	case expectCode:
		p.pkt.Code = b & codeMask
		switch n := int(b>>4) & 7; n {
		case 0:
			return p.complete()
		case 7:
			p.at = expectLen
		default:
			p.expectPayload(n)
		}
	case expectLen:
		if b > MaxDataLen {
			return p.resync()
		}
		if b == 0 {
			return p.complete()
		}
		p.expectPayload(int(b))
	case expectData:
		p.store[p.got] = b
		if p.got++; p.got >= p.want {
			return p.complete()
		}
	}
	return 0, nil
}

func (p *Parser) handshake(b byte) {
	switch b {
	case syncREQ:
		p.at = expectReqSeq
	case syncACK:
		p.at = expectAckSeq
	}
}

func (p *Parser) packetStart(b byte) (byte, *Packet) {
	switch {
	case b == syncREQ:
		p.at = expectReqSeq
	case b == syncACK:
		p.at = expectInlineAck
	case b != byte(p.peer):
		return p.resync()
	default:
		p.pkt = Packet{Seq: p.peer}
		p.peer = p.peer.Next()
		p.at = expectCode
	}
	return 0, nil
}

func (p *Parser) expectPayload(n int) {
	p.got, p.want = 0, n
	p.at = expectData
}

func (p *Parser) resync() (byte, *Packet) {
	p.at = expectSync
	return syncREQ, nil
}

func (p *Parser) complete() (byte, *Packet) {
	p.at = expectSeq
	p.pkt.Data = nil
	if p.got > 0 {
		p.pkt.Data = p.store[:p.got]
	}
	p.got, p.want = 0, 0
	return 0, &p.pkt
}
