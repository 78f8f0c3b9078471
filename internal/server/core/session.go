package core

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"chatrelay/pkg/protocol"
)

// defaultWriteTimeout bounds how long a slow peer can stall a single frame
// write. It never applies while the registry lock is held.
const defaultWriteTimeout = 10 * time.Second

// Session is the server-side state for one live connection. It exists from
// accept to teardown; the name is empty until login succeeds and immutable
// afterwards. Writes are serialized so concurrent broadcasts and the
// session's own replies never interleave mid-frame.
type Session struct {
	ID   string
	conn net.Conn

	nameMu sync.RWMutex
	name   string // assigned exactly once, by TryLogin

	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
}

// NewSession wraps an accepted connection. The UUID identifies the session
// in logs before a name exists.
func NewSession(conn net.Conn) *Session {
	return &Session{
		ID:           uuid.NewString(),
		conn:         conn,
		writeTimeout: defaultWriteTimeout,
	}
}

// Name returns the display name claimed at login, or "" before it.
func (s *Session) Name() string {
	s.nameMu.RLock()
	defer s.nameMu.RUnlock()
	return s.name
}

// SetWriteTimeout overrides the per-frame write deadline. Zero disables it.
// Call before the session starts serving.
func (s *Session) SetWriteTimeout(d time.Duration) {
	s.writeTimeout = d
}

func (s *Session) setName(name string) {
	s.nameMu.Lock()
	s.name = name
	s.nameMu.Unlock()
}

// RemoteAddr reports the peer address for logging.
func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// Send encodes and writes one frame to the connection.
func (s *Session) Send(msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return s.writeFrame(frame)
}

// writeFrame writes one already-encoded frame under the session's write
// lock. Frame writes from the connection loop and from other loops'
// broadcasts all funnel through here.
func (s *Session) writeFrame(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := s.conn.Write(frame)
	return err
}

// Close shuts the connection down. Safe to call more than once; the first
// call wins. Closing unblocks the session's read loop, which then runs the
// single teardown path.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			log.Debug().Str("module", "core.session").Str("session", s.ID).Err(err).Msg("close")
		}
	})
}
