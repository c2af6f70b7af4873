package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the link is not synchronized.
	ErrNotReady = errors.New("not ready")
	// ErrNoReply indicates no reply received from peer.
	// This happens when a reply is received for a later command, and all
	// previous commands fail with this error.
	ErrNoReply = errors.New("no reply")
	// ErrTxFull indicates the transmit stream has no room for the packet.
	ErrTxFull = errors.New("transmit stream full")
	// ErrTooManyPending indicates the client is tracking too many commands.
	ErrTooManyPending = errors.New("too many pending commands")
	// ErrPacketTooLarge indicates the payload exceeds MaxDataLen.
	ErrPacketTooLarge = fmt.Errorf("packet data exceeds %d bytes", MaxDataLen)
)

// CommandError wraps error codes from reply.
type CommandError struct {
	Code byte
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command error %d", e.Code)
}
