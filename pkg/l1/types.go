// Package l1 defines how boards running the task kernel are identified
// and reached from hosts.
package l1

import (
	"context"
	"fmt"
	"strings"
)

// BoardRef is a reference to a board.
type BoardRef struct {
	// Type is the board type (firmware flavor).
	Type string `json:"type" toml:"type"`
	// ID is unique ID of the device.
	ID string `json:"id" toml:"id"`
}

// Name retrieves the name from ref.
func (r BoardRef) Name() string {
	return r.Type + "/" + r.ID
}

// ParseBoardRef parses a name in the form TYPE/ID.
func ParseBoardRef(name string) (ref BoardRef, err error) {
	items := strings.Split(name, "/")
	if len(items) != 2 {
		return ref, fmt.Errorf("invalid board name %q, expect TYPE/ID", name)
	}
	ref.Type, ref.ID = items[0], items[1]
	if !ref.IsValid() {
		return ref, fmt.Errorf("invalid board name %q, expect TYPE/ID", name)
	}
	return ref, nil
}

// IsValid indicates BoardRef is valid.
func (r BoardRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// BoardMeta provides metadata of a board.
type BoardMeta struct {
	Description string            `json:"description,omitempty" toml:"description"`
	Labels      map[string]string `json:"labels,omitempty" toml:"labels"`
	Tasks       []string          `json:"tasks,omitempty" toml:"-"`
}

// BoardInfo provides information of a board.
type BoardInfo struct {
	Ref  BoardRef  `json:"ref" toml:"board"`
	Meta BoardMeta `json:"meta" toml:"meta"`
}

// Conn is a packet connection to the link of a board.
type Conn interface {
	ReadPacket() ([]byte, error)
	WritePacket([]byte) error
	Close() error
}

// Connector is used by hosts to find and connect boards.
type Connector interface {
	// Discover enumerates announced boards.
	Discover(context.Context) ([]BoardInfo, error)
	// Connect connects to the specified board.
	Connect(context.Context, BoardRef) (Conn, error)
}
