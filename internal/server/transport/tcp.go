package transport

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"chatrelay/internal/server/core"
)

// Server accepts TCP connections on one endpoint and hands each one to its
// own connection loop. The accept loop never blocks on a session.
type Server struct {
	addr     string
	registry *core.Registry
	listener net.Listener
	running  atomic.Bool

	// WriteTimeout, when set before Start, is applied to every session's
	// frame writes.
	WriteTimeout time.Duration
}

// NewServer wires a listener address to the registry every connection will
// share.
func NewServer(addr string, registry *core.Registry) *Server {
	return &Server{
		addr:     addr,
		registry: registry,
	}
}

// Start binds the endpoint and runs the accept loop in a goroutine. A bind
// failure is the only process-fatal error the relay has; everything after
// this point is contained to individual connections.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("transport: server already running on %s", s.addr)
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("transport: listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.running.Store(true)

	log.Info().Str("module", "transport.tcp").Str("addr", listener.Addr().String()).Msg("server listening")
	go s.acceptLoop()
	return nil
}

// Addr reports the bound address, useful when the configured port is 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and ends the accept loop. Live sessions are
// closed by their own loops as their connections die; Stop does not wait
// for them.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	log.Info().Str("module", "transport.tcp").Msg("server stopped")
}

func (s *Server) acceptLoop() {
	var backoff time.Duration
	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			// A persistent accept failure (fd exhaustion, say) must not
			// spin the loop hot.
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff < time.Second {
				backoff *= 2
			}
			log.Warn().Str("module", "transport.tcp").Err(err).Dur("backoff", backoff).Msg("accept failed")
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		session := core.NewSession(conn)
		if s.WriteTimeout > 0 {
			session.SetWriteTimeout(s.WriteTimeout)
		}
		go session.Serve(s.registry)
	}
}
