// Package connector configures how hosts find and reach boards.
package connector

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/robotalks/embd.go/pkg/l1"
	"github.com/robotalks/embd.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/embd.go/pkg/l1/comm/stream"
	"github.com/robotalks/embd.go/pkg/l1/comm/websocket"
)

// ErrDiscoveryUnsupported indicates the connector can't enumerate boards.
var ErrDiscoveryUnsupported = errors.New("discovery unsupported")

// Config provides common options to setup Connectors.
type Config struct {
	Ref l1.BoardRef

	// URL specifies how boards are reached:
	//   mqtt://host:port/topic-prefix  boards announced on a broker
	//   tcp://host:port                a board serving its link over TCP
	//   ws://host:port/link            a board serving its link over websocket
	URL string
}

var defaultConfig = Config{
	URL: "mqtt://localhost:1883/embd/",
}

func init() {
	if val := os.Getenv("EMBD_BOARD"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("EMBD_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("EMBD_MQTT_URL"); val != "" {
		defaultConfig.URL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "board", defaultConfig.Ref.Type, "Board type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "id", defaultConfig.Ref.ID, "Board ID to connect.")
	flag.StringVar(&defaultConfig.URL, "url", defaultConfig.URL, "Broker or board URL.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (l1.Connector, error) {
	parsedURL, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	switch parsedURL.Scheme {
	case "mqtt", "mqtts":
		return mqtt.NewConnector(c.URL)
	case "tcp", "ws", "wss":
		return &Direct{URL: parsedURL}, nil
	default:
		return nil, fmt.Errorf("unknown URL scheme: %q", parsedURL.Scheme)
	}
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() l1.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// Connect directly connects to the configured board.
func (c *Config) Connect(ctx context.Context) (l1.Conn, error) {
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	if _, direct := connector.(*Direct); !direct && !c.Ref.IsValid() {
		return nil, fmt.Errorf("board type and id must be specified")
	}
	return connector.Connect(ctx, c.Ref)
}

// MustConnect connects to the configured board or fails.
func (c *Config) MustConnect(ctx context.Context) l1.Conn {
	conn, err := c.Connect(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// Direct connects to a board at a fixed address.
type Direct struct {
	URL *url.URL
}

// Discover implements Connector.
func (d *Direct) Discover(context.Context) ([]l1.BoardInfo, error) {
	return nil, ErrDiscoveryUnsupported
}

// Connect implements Connector. The board reference is not used.
func (d *Direct) Connect(ctx context.Context, _ l1.BoardRef) (l1.Conn, error) {
	switch d.URL.Scheme {
	case "tcp":
		conn, err := stream.Dial(ctx, "tcp", d.URL.Host)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "ws", "wss":
		u := *d.URL
		if strings.TrimPrefix(u.Path, "/") == "" {
			u.Path = "/link"
		}
		conn, err := websocket.Dial(u.String())
		if err != nil {
			return nil, err
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown URL scheme: %q", d.URL.Scheme)
	}
}
