package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatrelay/pkg/protocol"
)

const loginRejectedText = "Username taken or invalid."

// Serve is the connection loop: it reads frames until the stream ends,
// dispatching each command against the registry. The session moves through
// unauthenticated -> authenticated -> closed; teardown (close, logout,
// state broadcast) runs exactly once, on every exit path.
//
// Serve owns the session's read side and is the only goroutine that reads
// from the connection.
func (s *Session) Serve(registry *Registry) {
	logger := log.With().Str("module", "core.loop").Str("session", s.ID).Str("addr", s.RemoteAddr()).Logger()
	logger.Info().Msg("connection opened")

	defer func() {
		s.Close()
		if name := s.Name(); name != "" {
			registry.Logout(name)
		}
		logger.Info().Str("name", s.Name()).Msg("connection closed")
	}()

	reader := bufio.NewReader(s.conn)
	for {
		msg, err := protocol.Decode(reader)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedFrame) {
				// Protocol noise: drop the frame, keep the connection.
				logger.Warn().Err(err).Msg("malformed frame dropped")
				continue
			}
			// net.ErrClosed is a local close, the normal teardown of a
			// session a broadcast write failure already dropped.
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				logger.Warn().Err(err).Msg("read failed")
			}
			return
		}

		if s.Name() == "" {
			if !s.handleLogin(registry, msg, logger) {
				return
			}
			continue
		}
		s.dispatch(registry, msg, logger)
	}
}

// handleLogin processes frames in the unauthenticated state. Any command
// other than LOGIN is ignored until a login succeeds. A rejected login is
// the one policy error that terminates the connection: the session gets an
// ERROR frame and handleLogin reports false.
func (s *Session) handleLogin(registry *Registry, msg *protocol.Message, logger zerolog.Logger) bool {
	if msg.Command != protocol.Login {
		logger.Debug().Str("command", msg.Command).Msg("command before login ignored")
		return true
	}

	name, err := msg.Text()
	if err != nil {
		name = "" // non-string payload fails the same way an empty name does
	}
	if !registry.TryLogin(name, s) {
		logger.Info().Str("name", name).Msg("login rejected")
		if err := s.Send(protocol.NewError(loginRejectedText)); err != nil {
			logger.Debug().Err(err).Msg("reject notice not delivered")
		}
		return false
	}
	return true
}

// dispatch handles one frame in the authenticated state. Dispatch is total
// over the command set; unknown tags are logged and ignored.
func (s *Session) dispatch(registry *Registry, msg *protocol.Message, logger zerolog.Logger) {
	switch msg.Command {
	case protocol.Login:
		// Already authenticated; a second LOGIN is deliberately a no-op.
		logger.Debug().Msg("duplicate login ignored")

	case protocol.MsgPrivate:
		payload, err := msg.AsPrivateSend()
		if err != nil {
			logger.Warn().Err(err).Msg("bad MSG_PRIVATE payload dropped")
			return
		}
		if registry.SendPrivate(s.Name(), payload.Recipient, payload.Message) == RecipientOffline {
			s.sendError(fmt.Sprintf("User '%s' is not online.", payload.Recipient), logger)
		}

	case protocol.CreateGroup:
		group, err := msg.Text()
		if err != nil || group == "" {
			logger.Warn().Msg("bad CREATE_GROUP payload dropped")
			return
		}
		registry.CreateGroup(group, s.Name())

	case protocol.JoinGroup:
		group, err := msg.Text()
		if err != nil || group == "" {
			logger.Warn().Msg("bad JOIN_GROUP payload dropped")
			return
		}
		registry.JoinGroup(group, s.Name())

	case protocol.MsgGroup:
		payload, err := msg.AsGroupSend()
		if err != nil {
			logger.Warn().Err(err).Msg("bad MSG_GROUP payload dropped")
			return
		}
		switch registry.SendGroup(s.Name(), payload.Group, payload.Message) {
		case NoSuchGroup:
			s.sendError(fmt.Sprintf("No such group '%s'.", payload.Group), logger)
		case NotAMember:
			s.sendError(fmt.Sprintf("You are not a member of '%s'.", payload.Group), logger)
		}

	default:
		logger.Debug().Str("command", msg.Command).Msg("unknown command ignored")
	}
}

func (s *Session) sendError(text string, logger zerolog.Logger) {
	if err := s.Send(protocol.NewError(text)); err != nil {
		logger.Debug().Err(err).Msg("error frame not delivered")
		s.Close()
	}
}
