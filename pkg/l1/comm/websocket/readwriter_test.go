package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/embd.go/pkg/l1/comm"
)

func TestHandler(t *testing.T) {
	dock := comm.NewDock()
	defer dock.Close()
	srv := httptest.NewServer(Handler(dock))
	defer srv.Close()

	client, err := Dial("ws" + strings.TrimPrefix(srv.URL, "http") + "/")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WritePacket([]byte{0xff, 1}))
	pkt, err := dock.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 1}, pkt)

	require.Eventually(t, dock.Attached, time.Second, time.Millisecond)
	require.NoError(t, dock.WritePacket([]byte{0xfe, 1}))
	pkt, err = client.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe, 1}, pkt)
}
