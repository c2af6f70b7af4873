package mqtt

import (
	"context"
	"io"
	"sync"

	"github.com/robotalks/embd.go/pkg/l1"
)

// Topic suffixes of a board link.
const (
	TopicDown      = "/link/down"
	TopicUp        = "/link/up"
	TopicMeta      = "/meta"
	TopicTelemetry = "/telemetry"
)

// ReadWriter implements PacketReadWriter over a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh  chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		closeCh:  make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForHost sets topics using default convention for hosts:
// SubTopic = board/up
// PubTopic = board/down
func (p *ReadWriter) ForHost(ref l1.BoardRef) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+TopicUp, prefix+TopicDown)
}

// ForBoard sets topics using default convention for boards:
// SubTopic = board/down
// PubTopic = board/up
func (p *ReadWriter) ForBoard(ref l1.BoardRef) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+TopicDown, prefix+TopicUp)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.closeCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Close implements io.Closer. Pending and later reads get io.EOF.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() { close(p.closeCh) })
	return nil
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer sub.Close()
	select {
	case <-ctx.Done():
		p.Close()
		return ctx.Err()
	case <-p.closeCh:
		return nil
	}
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.closeCh:
	}
}
