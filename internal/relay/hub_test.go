package relay_test

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmony/internal/relay"
)

func newHub() *relay.Hub {
	return relay.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// readFrame reads one server text frame from the client side of a pipe.
func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	data, err := wsutil.ReadServerText(conn)
	require.NoError(t, err)
	return data
}

func TestPublishReachesRoomMembers(t *testing.T) {
	hub := newHub()

	serverA, clientA := net.Pipe()
	serverB, clientB := net.Pipe()
	defer clientA.Close()
	defer clientB.Close()

	subA := hub.Join(1, 10, serverA)
	subB := hub.Join(1, 20, serverB)
	defer hub.Leave(1, subA)
	defer hub.Leave(1, subB)

	// pipe writes are synchronous, so both clients read concurrently
	frames := make(chan []byte, 2)
	for _, client := range []net.Conn{clientA, clientB} {
		go func(c net.Conn) {
			frames <- readFrame(t, c)
		}(client)
	}

	hub.Publish(1, []byte(`{"content":"hi"}`))

	assert.JSONEq(t, `{"content":"hi"}`, string(<-frames))
	assert.JSONEq(t, `{"content":"hi"}`, string(<-frames))
}

func TestPublishDoesNotCrossRooms(t *testing.T) {
	hub := newHub()

	serverA, clientA := net.Pipe()
	defer clientA.Close()
	sub := hub.Join(7, 10, serverA)
	defer hub.Leave(7, sub)

	// no subscribers in room 8; must not block or panic
	hub.Publish(8, []byte("nobody home"))

	assert.Equal(t, 1, hub.RoomSize(7))
	assert.Equal(t, 0, hub.RoomSize(8))
}

func TestLeaveDropsEmptyRoom(t *testing.T) {
	hub := newHub()

	serverA, clientA := net.Pipe()
	defer clientA.Close()
	sub := hub.Join(3, 10, serverA)
	require.Equal(t, 1, hub.RoomSize(3))

	hub.Leave(3, sub)
	assert.Equal(t, 0, hub.RoomSize(3))

	// double leave is a no-op
	hub.Leave(3, sub)
}
