package core

import (
	"bufio"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatrelay/pkg/protocol"
)

// wirePeer is the client end of an in-memory connection. A background
// goroutine decodes every frame the server writes, so server-side writes
// never block on the pipe.
type wirePeer struct {
	conn   net.Conn
	frames chan protocol.Message
}

func newWirePeer(t *testing.T, conn net.Conn) *wirePeer {
	t.Helper()
	p := &wirePeer{
		conn:   conn,
		frames: make(chan protocol.Message, 64),
	}
	go func() {
		defer close(p.frames)
		reader := bufio.NewReader(conn)
		for {
			msg, err := protocol.Decode(reader)
			if err != nil {
				if errors.Is(err, protocol.ErrMalformedFrame) {
					continue
				}
				return
			}
			p.frames <- *msg
		}
	}()
	t.Cleanup(func() { conn.Close() })
	return p
}

// newSessionPeer creates a served-side session wired to a draining peer.
func newSessionPeer(t *testing.T) (*Session, *wirePeer) {
	t.Helper()
	server, client := net.Pipe()
	sess := NewSession(server)
	t.Cleanup(sess.Close)
	return sess, newWirePeer(t, client)
}

func (p *wirePeer) send(t *testing.T, msg protocol.Message) {
	t.Helper()
	frame, err := protocol.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, p.conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err = p.conn.Write(frame)
	require.NoError(t, err)
}

func (p *wirePeer) sendRaw(t *testing.T, line string) {
	t.Helper()
	require.NoError(t, p.conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := p.conn.Write([]byte(line))
	require.NoError(t, err)
}

// next returns the next frame, failing the test on timeout or stream end.
func (p *wirePeer) next(t *testing.T) protocol.Message {
	t.Helper()
	select {
	case msg, ok := <-p.frames:
		require.True(t, ok, "connection closed while waiting for a frame")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return protocol.Message{}
	}
}

// waitFor skips frames until one with the given command arrives.
func (p *wirePeer) waitFor(t *testing.T, command string) protocol.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-p.frames:
			require.True(t, ok, "connection closed while waiting for %s", command)
			if msg.Command == command {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", command)
		}
	}
}

// waitForGroupList reads frames until an UPDATE_GROUP_LIST satisfying the
// predicate arrives. Earlier pending broadcasts are skipped, which keeps
// assertions stable when several mutations raced onto the wire.
func (p *wirePeer) waitForGroupList(t *testing.T, want func(map[string][]string) bool) map[string][]string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-p.frames:
			require.True(t, ok, "connection closed while waiting for a group list")
			if msg.Command != protocol.UpdateGroupList {
				continue
			}
			groups, err := msg.Groups()
			require.NoError(t, err)
			if want(groups) {
				return groups
			}
		case <-deadline:
			t.Fatal("timed out waiting for a matching group list")
		}
	}
}

// expectClosed asserts the server closes the connection.
func (p *wirePeer) expectClosed(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-p.frames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("connection was not closed")
		}
	}
}

// timeAfterQuiet is the settle window used when asserting silence.
func timeAfterQuiet() <-chan time.Time {
	return time.After(150 * time.Millisecond)
}

// expectNoFrame asserts nothing arrives for a short window.
func (p *wirePeer) expectNoFrame(t *testing.T) {
	t.Helper()
	select {
	case msg, ok := <-p.frames:
		if ok {
			t.Fatalf("unexpected frame %s", msg.Command)
		}
	case <-time.After(150 * time.Millisecond):
	}
}
