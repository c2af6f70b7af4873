package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/abiosoft/ishell"

	l0comm "github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l1"
	env "github.com/robotalks/embd.go/pkg/l1/env/connector"
	"github.com/robotalks/embd.go/pkg/l1/host"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Connection
}

// Connection is a running session with a board.
type Connection struct {
	Ctx     context.Context
	Cancel  func()
	Ref     l1.BoardRef
	Conn    l1.Conn
	Session *host.Session
	Events  atomic.Bool
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	timeout    = time.Second

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&EventsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Timeout of connecting and commands.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo formats BoardInfo in one line for display.
func FormatInfo(info l1.BoardInfo) string {
	text := info.Ref.Name()
	if info.Meta.Description != "" {
		text += ": " + info.Meta.Description
	}
	return text
}

// DoCommand runs a command and waits for result.
func DoCommand(c *ishell.Context, code byte, data ...byte) (res l0comm.Result, err error) {
	s := ShellFrom(c)
	if s.Conn == nil {
		err = fmt.Errorf("not connected")
		c.Err(err)
		return
	}
	ctx, cancel := context.WithTimeout(s.Conn.Ctx, s.Timeout)
	defer cancel()
	if res, err = s.Conn.Session.Do(ctx, code, data...); err != nil {
		c.Err(err)
	}
	return
}

// Print prints a result as JSON or text.
func Print(c *ishell.Context, v interface{}, text string) {
	if !ShellFrom(c).OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverBoards discovers boards.
func (s *Shell) DiscoverBoards(filter func(l1.BoardInfo) bool) (l1.Connector, []l1.BoardInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, nil, err
	}
	infoList, err := connector.Discover(context.TODO())
	if err != nil {
		return connector, nil, err
	}
	if filter != nil {
		items := make([]l1.BoardInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return connector, infoList, nil
}

// SelectBoard discovers boards and asks for a choice.
func (s *Shell) SelectBoard(filter func(l1.BoardInfo) bool) (*l1.BoardInfo, error) {
	_, infoList, err := s.DiscoverBoards(filter)
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 boards discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect connects the board with ref and waits for the link.
func (s *Shell) Connect(ref l1.BoardRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	conn := &Connection{Ref: ref}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	if conn.Conn, err = connector.Connect(conn.Ctx, ref); err != nil {
		conn.Cancel()
		return err
	}
	name := ref.Name()
	if !ref.IsValid() {
		name = s.Config.URL
	}
	conn.Session = host.NewSession(name, conn.Conn).OnEvent(func(code byte, data []byte) {
		if conn.Events.Load() {
			s.Shell.Printf("event %02x % x\n", code, data)
		}
	})
	go conn.Session.Run(conn.Ctx)

	ctx, cancel := context.WithTimeout(conn.Ctx, s.Timeout)
	defer cancel()
	if err := conn.Session.WaitReady(ctx); err != nil {
		conn.Cancel()
		return fmt.Errorf("link not ready: %v", err)
	}
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return nil
}

// Disconnect disconnects current board.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		if err := s.autoConnect(); err != nil {
			log.Fatalln(err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func (s *Shell) autoConnect() error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	_, direct := connector.(*env.Direct)
	if !direct && !s.Config.Ref.IsValid() {
		return nil
	}
	if s.Interactive {
		s.Shell.Printf("Connecting %s ...\n", s.Config.URL)
	}
	if err := s.Connect(s.Config.Ref); err != nil {
		return fmt.Errorf("connect %q failed: %v", s.Config.URL, err)
	}
	return nil
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
