// Package stream carries link packets over byte streams like TCP
// connections, pipes or serial devices.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/golang/glog"

	"github.com/robotalks/embd.go/pkg/l1/comm"
)

// DefaultMaxPacket is the default limit of a packet size.
const DefaultMaxPacket = 4096

// ErrPacketTooLarge indicates a packet exceeds MaxPacket.
var ErrPacketTooLarge = errors.New("packet too large")

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by 2-byte (little-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter
	MaxPacket int
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s, MaxPacket: DefaultMaxPacket}
}

// Dial connects to addr and wraps the connection.
func Dial(ctx context.Context, network, addr string) (*ReadWriter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint16
	if err := binary.Read(p.ReadWriter, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if int(size) > p.maxPacket() {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, size)
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p.ReadWriter, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > p.maxPacket() {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(pkt))
	}
	buf := make([]byte, 2+len(pkt))
	binary.LittleEndian.PutUint16(buf, uint16(len(pkt)))
	copy(buf[2:], pkt)
	_, err := p.ReadWriter.Write(buf)
	return err
}

// Close implements io.Closer if the underlying stream is closable.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (p *ReadWriter) maxPacket() int {
	if p.MaxPacket > 0 && p.MaxPacket <= 0xffff {
		return p.MaxPacket
	}
	return DefaultMaxPacket
}

// Serve accepts connections from l and attaches them to dock one after
// another until ctx is done.
func Serve(ctx context.Context, l net.Listener, dock *comm.Dock) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		glog.Infof("link connection from %s", conn.RemoteAddr())
		go func() {
			defer conn.Close()
			if err := dock.Attach(New(conn)); err != nil && err != io.EOF {
				glog.Warningf("link connection %s: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}
