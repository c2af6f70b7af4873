package board

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/embd.go/pkg/apps"
	fx "github.com/robotalks/embd.go/pkg/framework"
	l0comm "github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l0/task"
	"github.com/robotalks/embd.go/pkg/l1/comm"
	"github.com/robotalks/embd.go/pkg/l1/comm/mqtt"
	commstream "github.com/robotalks/embd.go/pkg/l1/comm/stream"
	"github.com/robotalks/embd.go/pkg/l1/comm/websocket"
	"github.com/robotalks/embd.go/pkg/l1/telemetry"
)

// Board is a simulated board. Everything except the transports runs on
// the loop goroutine.
type Board struct {
	Config    *Config
	Scheduler *task.Scheduler
	Loop      *fx.Loop

	RX    *stream.Stream
	TX    *stream.Stream
	Inbox *stream.Stream

	Link      *l0comm.Link
	Responder *apps.Responder
	Blinker   *apps.Blinker
	Counter   *apps.Counter

	Port      *comm.Port
	Dock      *comm.Dock
	Registrar *mqtt.Registrar
	Collector *telemetry.Collector
	Publisher *telemetry.Publisher
}

// NewBoard creates a Board with the transports in the config.
func (c *Config) NewBoard() (*Board, error) {
	return c.NewBoardWith(nil)
}

// NewBoardWith creates a Board. When rw is not nil, the link runs over
// it instead of the transports in the config; MQTT is still used for
// announcement and telemetry.
func (c *Config) NewBoardWith(rw comm.PacketReadWriter) (*Board, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	b := &Board{
		Config:    c,
		Scheduler: task.NewScheduler(c.Tasks),
		RX:        stream.MustNew(c.StreamCap),
		TX:        stream.MustNew(c.StreamCap),
		Inbox:     stream.MustNew(c.StreamCap),
	}
	b.Scheduler.Observer = fx.LogObserver(c.Ref.Name())
	if err := b.setupTasks(); err != nil {
		return nil, err
	}
	b.Loop = fx.NewLoop(b.Scheduler)
	b.Loop.Interval = c.Interval

	if c.MQTTURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTURL, c.BoardInfo)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %v", err)
		}
		b.Registrar = reg
		b.Loop.AddRunnable(reg)
	}
	if rw == nil {
		var err error
		if rw, err = b.setupTransports(); err != nil {
			return nil, err
		}
	}
	b.Port = comm.NewPort("port", rw, b.RX, b.TX)
	b.Loop.Add(b.Port)
	b.setupTelemetry()
	return b, nil
}

// MustNewBoard creates a Board and fails on error.
func (c *Config) MustNewBoard() *Board {
	b, err := c.NewBoard()
	if err != nil {
		log.Fatalln(err)
	}
	return b
}

// Name implements Named.
func (b *Board) Name() string {
	return b.Config.Ref.Name()
}

// Run implements Runnable.
func (b *Board) Run(ctx context.Context) error {
	glog.Infof("board %s running %d tasks", b.Name(), b.Scheduler.Len())
	return b.Loop.Run(ctx)
}

func (b *Board) setupTasks() error {
	c := b.Config
	b.Link = l0comm.NewLink("link", b.RX, b.TX)
	b.Link.Timeout = c.LinkTimeout
	b.Link.Inbox = b.Inbox

	b.Responder = apps.NewResponder("responder", b.Link, b.Inbox)
	b.Blinker = apps.NewBlinker("blink", b.Link)
	b.Blinker.Period = c.Blink
	b.Blinker.Light = func(on bool) { glog.V(3).Infof("blink %v", on) }
	b.Counter = apps.NewCounter("counter", c.Counters)

	commands := []struct {
		code byte
		fn   apps.CommandFunc
	}{
		{apps.CmdEcho, apps.Echo},
		{apps.CmdStats, apps.Stats(b.Scheduler, b.Link)},
		{apps.CmdCounter, b.Counter.Command},
		{apps.CmdBlink, b.Blinker.Command},
	}
	for _, cmd := range commands {
		if err := b.Responder.Handle(cmd.code, cmd.fn); err != nil {
			return err
		}
	}

	adders := []interface {
		AddTo(*task.Scheduler) error
	}{b.Link, b.Responder, b.Blinker, b.Counter}
	for _, adder := range adders {
		if err := adder.AddTo(b.Scheduler); err != nil {
			return err
		}
	}
	c.Meta.Tasks = nil
	for _, t := range b.Scheduler.Tasks() {
		c.Meta.Tasks = append(c.Meta.Tasks, t.Name())
	}
	return nil
}

func (b *Board) setupTransports() (comm.PacketReadWriter, error) {
	c := b.Config
	if c.Listen == "" && c.HTTP == "" {
		if b.Registrar == nil {
			return nil, fmt.Errorf("no transport: one of MQTT, listen or HTTP is required")
		}
		return b.Registrar.Link, nil
	}
	b.Dock = comm.NewDock()
	if c.Listen != "" {
		l, err := net.Listen("tcp", c.Listen)
		if err != nil {
			return nil, err
		}
		glog.Infof("link served on tcp %s", l.Addr())
		b.Loop.AddRunnable(fx.NamedRun("tcp", fx.RunFunc(func(ctx context.Context) error {
			return commstream.Serve(ctx, l, b.Dock)
		})))
	}
	if c.HTTP != "" {
		mux := http.NewServeMux()
		mux.Handle("/link", websocket.Handler(b.Dock))
		server := &http.Server{Addr: c.HTTP, Handler: mux}
		glog.Infof("link served on ws://%s/link", c.HTTP)
		b.Loop.AddRunnable(fx.NamedRun("http", fx.RunFunc(func(ctx context.Context) error {
			err := fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		})))
	}
	return b.Dock, nil
}

func (b *Board) setupTelemetry() {
	b.Collector = telemetry.NewCollector(b.Name()).
		Add("scheduler", telemetry.SchedulerSource(b.Scheduler)).
		Add("loop", telemetry.LoopSource(b.Loop)).
		Add("link", telemetry.LinkSource(b.Link)).
		Add("port", telemetry.PortSource(b.Port)).
		Add("rx", telemetry.StreamSource(b.RX)).
		Add("tx", telemetry.StreamSource(b.TX)).
		Add("inbox", telemetry.StreamSource(b.Inbox)).
		Add("counter", func() *telemetry.Value {
			return telemetry.Number(float64(b.Counter.Value()))
		}).
		Add("blink", func() *telemetry.Value {
			return telemetry.Bool(b.Blinker.On())
		})
	if b.Registrar == nil || b.Config.Telemetry <= 0 {
		return
	}
	b.Publisher = telemetry.NewPublisher(b.Collector, b.Registrar)
	b.Publisher.Interval = b.Config.Telemetry
	b.Loop.Add(b.Publisher)
}
