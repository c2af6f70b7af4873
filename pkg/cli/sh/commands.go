package sh

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/embd.go/pkg/l1"
)

func formatLabels(labels map[string]string) string {
	pairs := make([]string, 0, len(labels))
	for key, val := range labels {
		pairs = append(pairs, key+"="+val)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func printBoards(c *ishell.Context, infoList []l1.BoardInfo) {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BOARD\tDESCRIPTION\tTASKS\tLABELS")
	for _, info := range infoList {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			info.Ref.Name(),
			info.Meta.Description,
			strings.Join(info.Meta.Tasks, ","),
			formatLabels(info.Meta.Labels))
	}
	w.Flush()
	c.Print(buf.String())
}

var (
	// DiscoverCmd lists announced boards.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "[TYPE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var filter func(l1.BoardInfo) bool
			if len(c.Args) > 0 {
				filter = func(info l1.BoardInfo) bool { return info.Ref.Type == c.Args[0] }
			}
			_, infoList, err := s.DiscoverBoards(filter)
			if err != nil {
				c.Err(err)
				return
			}
			switch {
			case s.OutputJSON:
				if infoList == nil {
					infoList = []l1.BoardInfo{}
				}
				Print(c, infoList, "")
			case len(infoList) == 0:
				c.Println("no boards found")
			default:
				printBoards(c, infoList)
			}
		},
	}

	// ConnectCmd connects a board given by TYPE/ID, or chosen from the
	// discovered ones, optionally of TYPE.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE/ID | TYPE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref l1.BoardRef
			switch {
			case len(c.Args) > 0 && strings.Contains(c.Args[0], "/"):
				parsed, err := l1.ParseBoardRef(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				ref = parsed
			default:
				var filter func(l1.BoardInfo) bool
				if len(c.Args) > 0 {
					filter = func(info l1.BoardInfo) bool { return info.Ref.Type == c.Args[0] }
				}
				info, err := s.SelectBoard(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no board discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current board.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// EventsCmd turns printing of board events on or off.
	EventsCmd = ishell.Cmd{
		Name: "events",
		Help: "[on|off]",
		Func: MustBeConnected(func(c *ishell.Context) {
			conn := ShellFrom(c).Conn
			if len(c.Args) > 0 {
				switch c.Args[0] {
				case "on", "off":
					conn.Events.Store(c.Args[0] == "on")
				default:
					c.Err(fmt.Errorf("expect on or off"))
					return
				}
			}
			c.Printf("events %v\n", conn.Events.Load())
		}),
	}
)
