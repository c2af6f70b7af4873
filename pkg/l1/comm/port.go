// Package comm bridges packet transports and the streams of a task
// scheduler.
package comm

import (
	"context"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/embd.go/pkg/framework"
	"github.com/robotalks/embd.go/pkg/l0/stream"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// DefaultMaxChunk is the default limit of bytes sent in one packet.
const DefaultMaxChunk = 256

// PortStats counts the traffic of a Port.
type PortStats struct {
	RxPackets  uint64
	RxBytes    uint64
	RxOverruns uint64
	TxPackets  uint64
	TxBytes    uint64
}

// Port pumps packets from a transport into the RX stream and chunks of
// the TX stream into the transport. Stream access happens on the loop
// goroutine only: received packets are delivered as interrupts, and the
// TX stream is drained by polling.
type Port struct {
	ReadWriter PacketReadWriter
	RX         *stream.Stream
	TX         *stream.Stream
	MaxChunk   int

	name  string
	intr  fx.Interrupter
	txCh  chan []byte
	stats PortStats
}

// NewPort creates a Port.
func NewPort(name string, rw PacketReadWriter, rx, tx *stream.Stream) *Port {
	return &Port{
		ReadWriter: rw,
		RX:         rx,
		TX:         tx,
		MaxChunk:   DefaultMaxChunk,
		name:       name,
		txCh:       make(chan []byte, 4),
	}
}

// Name implements Named.
func (p *Port) Name() string {
	return p.name
}

// Stats returns the traffic counters. Call it on the loop goroutine.
func (p *Port) Stats() PortStats {
	return p.stats
}

// AddToLoop implements LoopAdder.
func (p *Port) AddToLoop(loop *fx.Loop) {
	p.intr = loop
	if adder, ok := p.ReadWriter.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := p.ReadWriter.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	loop.AddPoller(p)
	loop.AddRunnable(p)
}

// Poll implements Poller.
func (p *Port) Poll() bool {
	if p.TX == nil || p.TX.Available() == 0 || len(p.txCh) == cap(p.txCh) {
		return false
	}
	n := p.TX.Available()
	if limit := p.maxChunk(); n > limit {
		n = limit
	}
	chunk := make([]byte, n)
	p.TX.TryRead(chunk)
	p.stats.TxPackets++
	p.stats.TxBytes += uint64(n)
	p.txCh <- chunk
	return true
}

// Receive copies pkt into RX. It must run on the loop goroutine.
func (p *Port) Receive(pkt []byte) {
	p.stats.RxPackets++
	n, err := stream.HostOf(p.RX).Write(pkt)
	p.stats.RxBytes += uint64(n)
	if err != nil {
		p.stats.RxOverruns++
		glog.Warningf("%s: RX overrun, %d of %d bytes dropped", p.name, len(pkt)-n, len(pkt))
	}
}

// Run implements Runnable.
func (p *Port) Run(ctx context.Context) error {
	if p.intr == nil {
		if p.intr = fx.LoopFrom(ctx); p.intr == nil {
			panic("port " + p.name + " not added to a loop")
		}
	}
	r := fx.NewRunnerWith(ctx)
	return r.Go(
		fx.NamedRun(p.name+".rx", fx.RunFunc(func(ctx context.Context) error {
			defer r.Stop()
			return p.readLoop(ctx)
		})),
		fx.NamedRun(p.name+".tx", fx.RunFunc(func(ctx context.Context) error {
			defer r.Stop()
			return p.writeLoop(ctx)
		})),
	).Wait()
}

func (p *Port) readLoop(ctx context.Context) error {
	read := func() error {
		for {
			pkt, err := p.ReadWriter.ReadPacket()
			if err != nil {
				return err
			}
			glog.V(2).Infof("%s: RX %d bytes", p.name, len(pkt))
			p.intr.Interrupt(func() { p.Receive(pkt) })
		}
	}
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, read)
	}
	// the reader can't be interrupted, leave it behind.
	errCh := make(chan error, 1)
	go func() {
		errCh <- read()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (p *Port) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk := <-p.txCh:
			glog.V(2).Infof("%s: TX %d bytes", p.name, len(chunk))
			if err := p.ReadWriter.WritePacket(chunk); err != nil {
				return err
			}
			// unpark the loop to poll TX again.
			p.intr.Interrupt(func() {})
		}
	}
}

func (p *Port) maxChunk() int {
	if p.MaxChunk > 0 {
		return p.MaxChunk
	}
	return DefaultMaxChunk
}
