package comm

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDockAttach(t *testing.T) {
	dock := NewDock()
	require.False(t, dock.Attached())
	require.NoError(t, dock.WritePacket([]byte("dropped")))

	conn := newChanReadWriter()
	errCh := make(chan error, 1)
	go func() { errCh <- dock.Attach(conn) }()
	require.Eventually(t, dock.Attached, time.Second, time.Millisecond)

	conn.readCh <- []byte("in")
	pkt, err := dock.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte("in"), pkt)

	require.NoError(t, dock.WritePacket([]byte("out")))
	assert.Equal(t, []byte("out"), <-conn.writeCh)

	conn.Close()
	assert.Equal(t, io.EOF, <-errCh)
	assert.False(t, dock.Attached())
}

func TestDockReplace(t *testing.T) {
	dock := NewDock()
	first, second := newChanReadWriter(), newChanReadWriter()
	firstErr := make(chan error, 1)
	go func() { firstErr <- dock.Attach(first) }()
	require.Eventually(t, dock.Attached, time.Second, time.Millisecond)

	go dock.Attach(second)
	// replaced connection is closed and detaches quietly.
	require.NoError(t, <-firstErr)
	require.NoError(t, dock.WritePacket([]byte("x")))
	assert.Equal(t, []byte("x"), <-second.writeCh)

	require.NoError(t, dock.Close())
	_, err := dock.ReadPacket()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, ErrDockClosed, dock.WritePacket(nil))
	assert.Equal(t, ErrDockClosed, dock.Attach(newChanReadWriter()))
}
