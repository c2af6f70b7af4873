package telemetry

import (
	"context"
	"time"

	"github.com/golang/glog"
	structpb "github.com/golang/protobuf/ptypes/struct"

	fx "github.com/robotalks/embd.go/pkg/framework"
)

// DefaultInterval is the default publishing interval.
const DefaultInterval = time.Second

// Sink receives encoded snapshots.
type Sink interface {
	PublishTelemetry([]byte) error
}

// SinkFunc is the func form of Sink.
type SinkFunc func([]byte) error

// PublishTelemetry implements Sink.
func (f SinkFunc) PublishTelemetry(payload []byte) error {
	return f(payload)
}

// Publisher periodically snapshots a Collector on the loop goroutine and
// publishes the encoded result.
type Publisher struct {
	Collector *Collector
	Sink      Sink
	Interval  time.Duration

	intr fx.Interrupter
}

// NewPublisher creates a Publisher.
func NewPublisher(c *Collector, sink Sink) *Publisher {
	return &Publisher{Collector: c, Sink: sink, Interval: DefaultInterval}
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	p.intr = loop
	loop.AddRunnable(p)
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	if p.intr == nil {
		if p.intr = fx.LoopFrom(ctx); p.intr == nil {
			panic("telemetry publisher not added to a loop")
		}
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		snapshot, err := p.Take(ctx)
		if err != nil {
			return err
		}
		payload, err := Encode(snapshot)
		if err != nil {
			glog.Errorf("telemetry encode error: %v", err)
			continue
		}
		if err := p.Sink.PublishTelemetry(payload); err != nil {
			glog.Warningf("telemetry publish error: %v", err)
		}
	}
}

// Take snapshots the collector on the loop goroutine.
func (p *Publisher) Take(ctx context.Context) (*structpb.Struct, error) {
	resCh := make(chan *structpb.Struct, 1)
	p.intr.Interrupt(func() { resCh <- p.Collector.Snapshot() })
	select {
	case s := <-resCh:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
