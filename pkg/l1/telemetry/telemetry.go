// Package telemetry takes snapshots of a running board (tasks, streams,
// link and port counters) and encodes them as protobuf Structs.
package telemetry

import (
	"sort"
	"time"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	fx "github.com/robotalks/embd.go/pkg/framework"
	l0comm "github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l0/task"
	"github.com/robotalks/embd.go/pkg/l1/comm"
)

// Value is a field value of a snapshot.
type Value = structpb.Value

// Source produces the value of one snapshot field. Sources are evaluated
// on the loop goroutine.
type Source func() *structpb.Value

// Collector assembles snapshots from named sources.
type Collector struct {
	Board string
	Clock func() time.Time

	names   []string
	sources map[string]Source
}

// NewCollector creates a Collector.
func NewCollector(board string) *Collector {
	return &Collector{Board: board, Clock: time.Now, sources: make(map[string]Source)}
}

// Add registers a source, replacing the one with the same name.
func (c *Collector) Add(name string, src Source) *Collector {
	if _, exist := c.sources[name]; !exist {
		c.names = append(c.names, name)
		sort.Strings(c.names)
	}
	c.sources[name] = src
	return c
}

// Names returns the registered source names in order.
func (c *Collector) Names() []string {
	return c.names
}

// Snapshot evaluates all sources.
func (c *Collector) Snapshot() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"board": String(c.Board),
		"time":  Number(float64(c.Clock().UnixNano()/int64(time.Millisecond)) / 1000),
	}
	for _, name := range c.names {
		fields[name] = c.sources[name]()
	}
	return &structpb.Struct{Fields: fields}
}

// Encode encodes a snapshot.
func Encode(s *structpb.Struct) ([]byte, error) {
	return proto.Marshal(s)
}

// Decode decodes a snapshot.
func Decode(data []byte) (*structpb.Struct, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Format renders a snapshot as indented JSON.
func Format(s *structpb.Struct) (string, error) {
	m := jsonpb.Marshaler{Indent: "  "}
	return m.MarshalToString(s)
}

// Number creates a number value.
func Number(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

// String creates a string value.
func String(v string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: v}}
}

// Bool creates a bool value.
func Bool(v bool) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: v}}
}

// Fields creates a struct value.
func Fields(fields map[string]*structpb.Value) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StructValue{
		StructValue: &structpb.Struct{Fields: fields},
	}}
}

// List creates a list value.
func List(values ...*structpb.Value) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_ListValue{
		ListValue: &structpb.ListValue{Values: values},
	}}
}

// SchedulerSource reports the run queue.
func SchedulerSource(s *task.Scheduler) Source {
	return func() *structpb.Value {
		tasks := s.Tasks()
		values := make([]*structpb.Value, 0, len(tasks))
		for _, t := range tasks {
			values = append(values, Fields(map[string]*structpb.Value{
				"name":   String(t.Name()),
				"pc":     Number(float64(t.PC())),
				"status": String(t.Status().String()),
			}))
		}
		return Fields(map[string]*structpb.Value{
			"cycles": Number(float64(s.Cycles())),
			"len":    Number(float64(s.Len())),
			"free":   Number(float64(s.Free())),
			"idle":   Bool(s.Idle()),
			"tasks":  List(values...),
		})
	}
}

// StreamSource reports the fill level of a stream.
func StreamSource(s *stream.Stream) Source {
	return func() *structpb.Value {
		return Fields(map[string]*structpb.Value{
			"cap":       Number(float64(s.Cap())),
			"available": Number(float64(s.Available())),
			"free":      Number(float64(s.Free())),
		})
	}
}

// LinkSource reports the link state and counters.
func LinkSource(l *l0comm.Link) Source {
	return func() *structpb.Value {
		stats := l.Stats()
		return Fields(map[string]*structpb.Value{
			"state":    String(l.State().String()),
			"ready":    Bool(l.Ready()),
			"sent":     Number(float64(stats.Sent)),
			"received": Number(float64(stats.Received)),
			"resyncs":  Number(float64(stats.Resyncs)),
			"dropped":  Number(float64(stats.Dropped)),
		})
	}
}

// PortSource reports the traffic of a port.
func PortSource(p *comm.Port) Source {
	return func() *structpb.Value {
		stats := p.Stats()
		return Fields(map[string]*structpb.Value{
			"rx_packets":  Number(float64(stats.RxPackets)),
			"rx_bytes":    Number(float64(stats.RxBytes)),
			"rx_overruns": Number(float64(stats.RxOverruns)),
			"tx_packets":  Number(float64(stats.TxPackets)),
			"tx_bytes":    Number(float64(stats.TxBytes)),
		})
	}
}

// LoopSource reports the loop activity.
func LoopSource(l *fx.Loop) Source {
	return func() *structpb.Value {
		stats := l.Stats()
		return Fields(map[string]*structpb.Value{
			"steps":      Number(float64(stats.Steps)),
			"interrupts": Number(float64(stats.Interrupts)),
			"parks":      Number(float64(stats.Parks)),
		})
	}
}
