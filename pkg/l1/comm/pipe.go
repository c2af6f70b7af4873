package comm

import (
	"io"
	"sync"
)

// PipeEnd is one end of an in-memory packet pipe.
type PipeEnd struct {
	readCh  <-chan []byte
	writeCh chan<- []byte
	closed  *pipeClosed
}

type pipeClosed struct {
	ch   chan struct{}
	once sync.Once
}

// DefaultPipeDepth is the number of packets buffered in each direction.
const DefaultPipeDepth = 16

// NewPipe creates a bi-directional in-memory packet pipe. Closing either
// end closes both.
func NewPipe() (*PipeEnd, *PipeEnd) {
	a2b, b2a := make(chan []byte, DefaultPipeDepth), make(chan []byte, DefaultPipeDepth)
	closed := &pipeClosed{ch: make(chan struct{})}
	return &PipeEnd{readCh: b2a, writeCh: a2b, closed: closed},
		&PipeEnd{readCh: a2b, writeCh: b2a, closed: closed}
}

// ReadPacket implements PacketReader.
func (p *PipeEnd) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.readCh:
		return pkt, nil
	case <-p.closed.ch:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter. The packet is copied.
func (p *PipeEnd) WritePacket(pkt []byte) error {
	select {
	case <-p.closed.ch:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.writeCh <- append([]byte(nil), pkt...):
		return nil
	case <-p.closed.ch:
		return io.ErrClosedPipe
	}
}

// Close implements io.Closer.
func (p *PipeEnd) Close() error {
	p.closed.once.Do(func() { close(p.closed.ch) })
	return nil
}
