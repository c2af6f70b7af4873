// Package board exposes the commands of the simulated board to the shell.
package board

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/embd.go/pkg/apps"
	"github.com/robotalks/embd.go/pkg/cli/sh"
	l0comm "github.com/robotalks/embd.go/pkg/l0/comm"
)

// Stats is the decoded reply of the stats command.
type Stats struct {
	Tasks    int    `json:"tasks"`
	Free     int    `json:"free"`
	Cycles   uint32 `json:"cycles"`
	Received uint32 `json:"received"`
	Sent     uint32 `json:"sent"`
}

// CounterState is the decoded reply of the counter command.
type CounterState struct {
	Value   uint32 `json:"value"`
	Pending uint32 `json:"pending"`
}

// DecodeStats decodes the reply of the stats command.
func DecodeStats(data []byte) (s Stats, err error) {
	if len(data) < 14 {
		return s, fmt.Errorf("stats reply too short: %d bytes", len(data))
	}
	s.Tasks, s.Free = int(data[0]), int(data[1])
	s.Cycles = binary.LittleEndian.Uint32(data[2:])
	s.Received = binary.LittleEndian.Uint32(data[6:])
	s.Sent = binary.LittleEndian.Uint32(data[10:])
	return
}

// DecodeCounter decodes the reply of the counter command.
func DecodeCounter(data []byte) (s CounterState, err error) {
	if len(data) < 8 {
		return s, fmt.Errorf("counter reply too short: %d bytes", len(data))
	}
	s.Value = binary.LittleEndian.Uint32(data)
	s.Pending = binary.LittleEndian.Uint32(data[4:])
	return
}

var (
	// EchoCmd sends text and prints the echo.
	EchoCmd = ishell.Cmd{
		Name: "echo",
		Help: "TEXT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			text := strings.Join(c.Args, " ")
			if len(text) >= l0comm.MaxDataLen {
				c.Err(fmt.Errorf("TEXT longer than %d bytes", l0comm.MaxDataLen-1))
				return
			}
			res, err := sh.DoCommand(c, apps.CmdEcho, []byte(text)...)
			if err != nil {
				return
			}
			sh.Print(c, map[string]string{"echo": string(res.Data)}, string(res.Data))
		}),
	}

	// StatsCmd queries the scheduler and link counters.
	StatsCmd = ishell.Cmd{
		Name:    "stats",
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			res, err := sh.DoCommand(c, apps.CmdStats)
			if err != nil {
				return
			}
			stats, err := DecodeStats(res.Data)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, stats, fmt.Sprintf("tasks %d free %d cycles %d received %d sent %d",
				stats.Tasks, stats.Free, stats.Cycles, stats.Received, stats.Sent))
		}),
	}

	// CounterCmd queries the counter, optionally requesting increments.
	CounterCmd = ishell.Cmd{
		Name:    "counter",
		Aliases: []string{"cnt"},
		Help:    "[N]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			var data []byte
			if len(c.Args) > 0 {
				n, err := strconv.ParseUint(c.Args[0], 0, 8)
				if err != nil {
					c.Err(fmt.Errorf("invalid N: %v", err))
					return
				}
				data = append(data, byte(n))
			}
			res, err := sh.DoCommand(c, apps.CmdCounter, data...)
			if err != nil {
				return
			}
			state, err := DecodeCounter(res.Data)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, state, fmt.Sprintf("value %d pending %d", state.Value, state.Pending))
		}),
	}

	// BlinkCmd queries or sets the blink period.
	BlinkCmd = ishell.Cmd{
		Name: "blink",
		Help: "[PERIOD(ms)]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			var data []byte
			if len(c.Args) > 0 {
				ms, err := strconv.ParseUint(c.Args[0], 0, 16)
				if err != nil || ms == 0 {
					c.Err(fmt.Errorf("invalid PERIOD: %s", c.Args[0]))
					return
				}
				data = make([]byte, 2)
				binary.LittleEndian.PutUint16(data, uint16(ms))
			}
			res, err := sh.DoCommand(c, apps.CmdBlink, data...)
			if err != nil {
				return
			}
			if len(res.Data) < 2 {
				c.Err(fmt.Errorf("blink reply too short: %d bytes", len(res.Data)))
				return
			}
			ms := binary.LittleEndian.Uint16(res.Data)
			sh.Print(c, map[string]uint16{"period": ms}, fmt.Sprintf("period %dms", ms))
		}),
	}

	// PingCmd measures round trips with empty echo commands.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "[COUNT]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			count := 4
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid COUNT: %s", c.Args[0]))
					return
				}
				count = n
			}
			rtts := make([]time.Duration, 0, count)
			for i := 0; i < count; i++ {
				start := time.Now()
				if _, err := sh.DoCommand(c, apps.CmdEcho, byte(i)); err != nil {
					return
				}
				rtt := time.Since(start)
				rtts = append(rtts, rtt)
				if !sh.ShellFrom(c).OutputJSON {
					c.Printf("seq %d time %v\n", i, rtt)
				}
			}
			if sh.ShellFrom(c).OutputJSON {
				ms := make([]float64, len(rtts))
				for n, rtt := range rtts {
					ms[n] = float64(rtt) / float64(time.Millisecond)
				}
				sh.Print(c, map[string][]float64{"rtt_ms": ms}, "")
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&EchoCmd,
		&StatsCmd,
		&CounterCmd,
		&BlinkCmd,
		&PingCmd,
	)
}
