package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/embd.go/pkg/framework"
	l0comm "github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l0/task"
)

func idle(t *task.Task) task.Status {
	switch t.Begin() {
	case task.Start, 1:
		if t.WaitWhile(1, true) {
			return task.Waiting
		}
	}
	return t.End()
}

func TestSnapshot(t *testing.T) {
	s := task.NewScheduler(4)
	require.NoError(t, s.Add(task.New("idle"), idle))
	rx, tx := stream.MustNew(8), stream.MustNew(8)
	rx.TryWriteString("abc")
	link := l0comm.NewLink("link", rx, tx)

	c := NewCollector("sim/b1")
	c.Clock = func() time.Time { return time.Unix(12, 500*int64(time.Millisecond)) }
	c.Add("sched", SchedulerSource(s)).
		Add("rx", StreamSource(rx)).
		Add("link", LinkSource(link))
	assert.Equal(t, []string{"link", "rx", "sched"}, c.Names())
	s.Step()

	snapshot := c.Snapshot()
	fields := snapshot.Fields
	assert.Equal(t, "sim/b1", fields["board"].GetStringValue())
	assert.Equal(t, 12.5, fields["time"].GetNumberValue())

	rxFields := fields["rx"].GetStructValue().Fields
	assert.Equal(t, float64(8), rxFields["cap"].GetNumberValue())
	assert.Equal(t, float64(3), rxFields["available"].GetNumberValue())
	assert.Equal(t, float64(5), rxFields["free"].GetNumberValue())

	sched := fields["sched"].GetStructValue().Fields
	assert.Equal(t, float64(1), sched["len"].GetNumberValue())
	assert.Equal(t, float64(3), sched["free"].GetNumberValue())
	tasks := sched["tasks"].GetListValue().Values
	require.Len(t, tasks, 1)
	assert.Equal(t, "idle", tasks[0].GetStructValue().Fields["name"].GetStringValue())
	assert.Equal(t, "waiting", tasks[0].GetStructValue().Fields["status"].GetStringValue())

	linkFields := fields["link"].GetStructValue().Fields
	assert.Equal(t, "syncing", linkFields["state"].GetStringValue())
	assert.False(t, linkFields["ready"].GetBoolValue())

	data, err := Encode(snapshot)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "sim/b1", decoded.Fields["board"].GetStringValue())

	text, err := Format(decoded)
	require.NoError(t, err)
	assert.Contains(t, text, `"board": "sim/b1"`)
}

func TestDecodeError(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff})
	assert.Error(t, err)
}

func TestPublisher(t *testing.T) {
	s := task.NewScheduler(1)
	require.NoError(t, s.Add(task.New("idle"), idle))
	loop := fx.NewLoop(s)

	payloadCh := make(chan []byte, 1)
	c := NewCollector("sim/b1").Add("loop", LoopSource(loop))
	p := NewPublisher(c, SinkFunc(func(payload []byte) error {
		select {
		case payloadCh <- payload:
		default:
		}
		return nil
	}))
	p.Interval = 5 * time.Millisecond
	loop.Add(p)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	var payload []byte
	select {
	case payload = <-payloadCh:
	case <-ctx.Done():
		t.Fatal("no telemetry published")
	}
	cancel()
	assert.Equal(t, context.Canceled, <-errCh)

	snapshot, err := Decode(payload)
	require.NoError(t, err)
	assert.Contains(t, snapshot.Fields, "loop")
	assert.NotZero(t, snapshot.Fields["loop"].GetStructValue().Fields["steps"].GetNumberValue())
}
