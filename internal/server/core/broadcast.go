package core

import (
	"github.com/rs/zerolog/log"

	"chatrelay/pkg/protocol"
)

// unicast writes one frame to one session. A failed write marks the
// session dead by closing it; the session's own loop then runs teardown.
// There is no retry.
func unicast(session *Session, msg protocol.Message) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Str("module", "core.broadcast").Str("command", msg.Command).Err(err).Msg("encode failed")
		return
	}
	writeOrDrop(session, frame)
}

// multicast writes the same frame to each session. The frame is encoded
// once; a failure on one session never aborts delivery to the rest.
func multicast(sessions []*Session, msg protocol.Message) {
	if len(sessions) == 0 {
		return
	}
	frame, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Str("module", "core.broadcast").Str("command", msg.Command).Err(err).Msg("encode failed")
		return
	}
	for _, session := range sessions {
		writeOrDrop(session, frame)
	}
}

// broadcastState fans the user and group snapshots out to the given
// sessions. Each registry mutation produces exactly one such round, taken
// under the same critical section as the mutation itself.
func broadcastState(sessions []*Session, users []string, groups map[string][]string) {
	multicast(sessions, protocol.NewUserList(users))
	multicast(sessions, protocol.NewGroupList(groups))
}

func writeOrDrop(session *Session, frame []byte) {
	if err := session.writeFrame(frame); err != nil {
		log.Warn().Str("module", "core.broadcast").Str("session", session.ID).Str("name", session.Name()).Err(err).Msg("write failed, dropping session")
		session.Close()
	}
}
