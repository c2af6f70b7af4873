package comm

import (
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"
)

// ErrDockClosed indicates the Dock is closed.
var ErrDockClosed = errors.New("dock closed")

// Dock is a PacketReadWriter for transports whose connections come and
// go, like accepted sockets. At most one connection is attached at a
// time; a new one replaces the previous. Packets written while nothing
// is attached are dropped, the link layer resynchronizes afterwards.
type Dock struct {
	packetCh chan []byte
	closeCh  chan struct{}

	lock    sync.Mutex
	current PacketReadWriter
	gen     uint64
	closed  bool
}

// NewDock creates a Dock.
func NewDock() *Dock {
	return &Dock{
		packetCh: make(chan []byte, 16),
		closeCh:  make(chan struct{}),
	}
}

// Attach makes rw the current connection and pumps its packets until it
// fails or is replaced. It returns the read error, nil when replaced.
func (d *Dock) Attach(rw PacketReadWriter) error {
	d.lock.Lock()
	if d.closed {
		d.lock.Unlock()
		closeRW(rw)
		return ErrDockClosed
	}
	prev := d.current
	d.current = rw
	d.gen++
	gen := d.gen
	d.lock.Unlock()
	if prev != nil {
		glog.V(1).Info("dock: connection replaced")
		closeRW(prev)
	}

	defer d.detach(gen)
	for {
		pkt, err := rw.ReadPacket()
		if err != nil {
			if !d.isCurrent(gen) {
				return nil
			}
			return err
		}
		select {
		case d.packetCh <- pkt:
		case <-d.closeCh:
			return ErrDockClosed
		}
	}
}

// Attached tells if a connection is attached.
func (d *Dock) Attached() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.current != nil
}

// ReadPacket implements PacketReader.
func (d *Dock) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-d.packetCh:
		return pkt, nil
	case <-d.closeCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (d *Dock) WritePacket(pkt []byte) error {
	d.lock.Lock()
	rw, closed := d.current, d.closed
	d.lock.Unlock()
	switch {
	case closed:
		return ErrDockClosed
	case rw == nil:
		glog.V(3).Infof("dock: %d bytes dropped, not attached", len(pkt))
		return nil
	}
	if err := rw.WritePacket(pkt); err != nil {
		glog.Warningf("dock: write error: %v", err)
		closeRW(rw)
	}
	return nil
}

// Close implements io.Closer.
func (d *Dock) Close() error {
	d.lock.Lock()
	if d.closed {
		d.lock.Unlock()
		return nil
	}
	d.closed = true
	rw := d.current
	d.current = nil
	close(d.closeCh)
	d.lock.Unlock()
	if rw != nil {
		closeRW(rw)
	}
	return nil
}

func (d *Dock) isCurrent(gen uint64) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.gen == gen
}

func (d *Dock) detach(gen uint64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.gen == gen {
		d.current = nil
	}
}

func closeRW(rw PacketReadWriter) {
	if closer, ok := rw.(io.Closer); ok {
		closer.Close()
	}
}
