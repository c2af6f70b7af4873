package comm

import (
	"time"

	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l0/task"
)

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a random packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Packet codes: bit 7 marks an event, bit 0 of a reply marks an error.
const (
	CodeEventFlag byte = 0x80
	CodeErrorFlag byte = 0x01
	codeMask      byte = 0x8f
)

// MaxDataLen is the largest payload a packet can carry.
const MaxDataLen = 0x7f

// Packet contains the information of a parsed packet.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// IsEvent tells if the packet is an event rather than a command or reply.
func (p *Packet) IsEvent() bool {
	return p.Code&CodeEventFlag != 0
}

// Reply builds the reply to a command packet. The first data byte
// carries the command sequence.
func (p *Packet) Reply(code byte, data ...byte) *Packet {
	reply := &Packet{Code: code &^ (CodeEventFlag | CodeErrorFlag), Data: make([]byte, len(data)+1)}
	reply.Data[0] = byte(p.Seq)
	copy(reply.Data[1:], data)
	return reply
}

// ErrorReply builds an error reply to a command packet.
func (p *Packet) ErrorReply(code byte) *Packet {
	reply := p.Reply(code)
	reply.Code |= CodeErrorFlag
	return reply
}

// EncodedLen returns the number of bytes Bytes produces.
func (p *Packet) EncodedLen() int {
	if n := len(p.Data); n >= 7 {
		return n + 3
	}
	return len(p.Data) + 2
}

// AppendTo appends the encoded packet to b.
func (p *Packet) AppendTo(b []byte) []byte {
	var head [3]byte
	return append(append(b, p.head(&head)...), p.Data...)
}

func (p *Packet) head(b *[3]byte) []byte {
	b[0], b[1] = byte(p.Seq), p.Code&codeMask
	l := byte(len(p.Data))
	if l < 7 {
		b[1] |= (l << 4) & 0x70
		return b[:2]
	}
	b[1] |= 0x70
	b[2] = l
	return b[:]
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	return p.AppendTo(make([]byte, 0, p.EncodedLen()))
}

// TryWriteTo encodes the packet into s, all or nothing.
func (p *Packet) TryWriteTo(s *stream.Stream) bool {
	if p.EncodedLen() > s.Free() {
		return false
	}
	var head [3]byte
	s.TryWrite(p.head(&head))
	s.TryWrite(p.Data)
	return true
}

// Frames carry packets between tasks through a stream: seq, code, length
// and data.
const frameHead = 3

// TryWriteFrame writes pkt as a frame into s, all or nothing.
func TryWriteFrame(s *stream.Stream, pkt *Packet) bool {
	if frameHead+len(pkt.Data) > s.Free() {
		return false
	}
	head := [frameHead]byte{byte(pkt.Seq), pkt.Code, byte(len(pkt.Data))}
	s.TryWrite(head[:])
	s.TryWrite(pkt.Data)
	return true
}

// TryReadFrame reads a whole frame from s into pkt, reusing pkt.Data.
func TryReadFrame(s *stream.Stream, pkt *Packet) bool {
	var head [frameHead]byte
	if !frameReady(s, &head) {
		return false
	}
	s.TrySkip(frameHead)
	pkt.Seq, pkt.Code = PacketSeq(head[0]), head[1]
	if n := int(head[2]); cap(pkt.Data) < n {
		pkt.Data = make([]byte, n)
	} else {
		pkt.Data = pkt.Data[:n]
	}
	s.TryRead(pkt.Data)
	return true
}

// ReadFrame waits until a whole frame is buffered in s and reads it into pkt.
// When it returns true the caller must return task.Waiting.
func ReadFrame(t *task.Task, at task.PC, s *stream.Stream, pkt *Packet) bool {
	var head [frameHead]byte
	if t.WaitWhile(at, !frameReady(s, &head)) {
		return true
	}
	TryReadFrame(s, pkt)
	return false
}

func frameReady(s *stream.Stream, head *[frameHead]byte) bool {
	return s.TryPeek(head[:]) && s.Available() >= frameHead+int(head[2])
}
