// Package board assembles a simulated board: the task scheduler with
// its link and apps, the loop driving it, transports and telemetry.
package board

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"

	l0comm "github.com/robotalks/embd.go/pkg/l0/comm"
	"github.com/robotalks/embd.go/pkg/l0/stream"
	"github.com/robotalks/embd.go/pkg/l1"
	"github.com/robotalks/embd.go/pkg/l1/env"
)

// Config provides the options to build a Board.
type Config struct {
	l1.BoardInfo

	// MQTTURL specifies the MQTT broker to announce the board and carry
	// its link and telemetry, e.g. mqtt://host:port/topic-prefix
	MQTTURL string `toml:"mqtt"`
	// Listen is the TCP address serving the link.
	Listen string `toml:"listen"`
	// HTTP is the address serving the link as websocket on /link.
	HTTP string `toml:"http"`

	Tasks       int           `toml:"tasks"`
	StreamCap   int           `toml:"stream_cap"`
	Interval    time.Duration `toml:"interval"`
	LinkTimeout time.Duration `toml:"link_timeout"`
	Telemetry   time.Duration `toml:"telemetry"`
	Blink       time.Duration `toml:"blink"`
	Counters    int           `toml:"counters"`
}

var (
	defaultConfig = Config{
		BoardInfo: l1.BoardInfo{
			Ref:  l1.BoardRef{Type: "sim"},
			Meta: l1.BoardMeta{Description: "Simulated board"},
		},
		MQTTURL:     "mqtt://localhost:1883/embd/",
		Tasks:       8,
		StreamCap:   256,
		Interval:    10 * time.Millisecond,
		LinkTimeout: 100 * time.Millisecond,
		Telemetry:   time.Second,
		Blink:       500 * time.Millisecond,
		Counters:    2,
	}

	configFile string
)

func init() {
	if val := os.Getenv("EMBD_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("EMBD_BOARD"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("EMBD_ID"); val != "" {
		defaultConfig.Ref.ID = val
	} else {
		defaultConfig.Ref.ID = env.MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "Board TOML file.")
	flag.StringVar(&defaultConfig.Ref.Type, "board", defaultConfig.Ref.Type, "Board type")
	flag.StringVar(&defaultConfig.Ref.ID, "id", defaultConfig.Ref.ID, "Board ID")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "TCP address serving the link")
	flag.StringVar(&defaultConfig.HTTP, "http", defaultConfig.HTTP, "HTTP address serving the link over websocket")
	flag.IntVar(&defaultConfig.Tasks, "tasks", defaultConfig.Tasks, "Capacity of the run queue")
	flag.IntVar(&defaultConfig.StreamCap, "stream-cap", defaultConfig.StreamCap, "Capacity of link streams, power of 2")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Loop tick when idle")
	flag.DurationVar(&defaultConfig.LinkTimeout, "link-timeout", defaultConfig.LinkTimeout, "Link resync timeout")
	flag.DurationVar(&defaultConfig.Telemetry, "telemetry", defaultConfig.Telemetry, "Telemetry interval, 0 to disable")
	flag.DurationVar(&defaultConfig.Blink, "blink", defaultConfig.Blink, "Blink period")
	flag.IntVar(&defaultConfig.Counters, "counters", defaultConfig.Counters, "Number of counter workers")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// SetBoardType should be called in init with basic info about the board.
func SetBoardType(typ string, meta l1.BoardMeta) {
	defaultConfig.Ref.Type = typ
	defaultConfig.Meta = meta
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadConfig creates a Config from defaults, the file given by -config
// and the command line. Flags set explicitly override the file.
func LoadConfig() (*Config, error) {
	if configFile == "" {
		return NewConfig(), nil
	}
	explicit := make(map[string]string)
	flag.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})
	if err := defaultConfig.LoadFile(configFile); err != nil {
		return nil, err
	}
	for name, val := range explicit {
		if err := flag.Set(name, val); err != nil {
			return nil, err
		}
	}
	return NewConfig(), nil
}

// LoadFile overrides the config with a TOML file.
func (c *Config) LoadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		glog.Warningf("%s: unknown key %q", path, key.String())
	}
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if !c.Ref.IsValid() {
		return fmt.Errorf("board type and id must be specified")
	}
	if required := c.Counters + 3; c.Tasks < required {
		return fmt.Errorf("at least %d tasks are required", required)
	}
	if c.StreamCap <= 0 || c.StreamCap&(c.StreamCap-1) != 0 {
		return fmt.Errorf("stream capacity %d is not a power of 2", c.StreamCap)
	}
	if frame := l0comm.MaxDataLen + 3; c.StreamCap < frame {
		return fmt.Errorf("stream capacity %d can't hold a %d bytes frame", c.StreamCap, frame)
	}
	if c.StreamCap > stream.MaxCapacity {
		return fmt.Errorf("stream capacity %d exceeds %d", c.StreamCap, stream.MaxCapacity)
	}
	return nil
}
