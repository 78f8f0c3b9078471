package protocol

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeProducesOneLine(t *testing.T) {
	frame, err := Encode(NewLogin("alice"))
	require.NoError(t, err)

	assert.True(t, bytes.HasSuffix(frame, []byte("\n")))
	assert.Equal(t, 1, bytes.Count(frame, []byte("\n")))
	assert.JSONEq(t, `{"command":"LOGIN","payload":"alice"}`, string(bytes.TrimSpace(frame)))
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Run("private send", func(t *testing.T) {
		frame, err := Encode(NewPrivateSend("bob", "hi there"))
		require.NoError(t, err)

		msg, err := Decode(bufio.NewReader(bytes.NewReader(frame)))
		require.NoError(t, err)
		require.Equal(t, MsgPrivate, msg.Command)

		payload, err := msg.AsPrivateSend()
		require.NoError(t, err)
		assert.Equal(t, PrivateSend{Recipient: "bob", Message: "hi there"}, payload)
	})

	t.Run("group recv", func(t *testing.T) {
		frame, err := Encode(NewGroupRecv("alice", "tech", "standup?"))
		require.NoError(t, err)

		msg, err := Decode(bufio.NewReader(bytes.NewReader(frame)))
		require.NoError(t, err)
		require.Equal(t, RecvGroup, msg.Command)

		payload, err := msg.AsGroupRecv()
		require.NoError(t, err)
		assert.Equal(t, GroupRecv{Sender: "alice", Group: "tech", Message: "standup?"}, payload)
	})

	t.Run("group list snapshot", func(t *testing.T) {
		frame, err := Encode(NewGroupList(map[string][]string{"tech": {"alice", "bob"}}))
		require.NoError(t, err)

		msg, err := Decode(bufio.NewReader(bytes.NewReader(frame)))
		require.NoError(t, err)

		groups, err := msg.Groups()
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"tech": {"alice", "bob"}}, groups)
	})
}

func TestDecodeStream(t *testing.T) {
	t.Run("several frames in one stream", func(t *testing.T) {
		var buf bytes.Buffer
		for _, name := range []string{"alice", "bob"} {
			frame, err := Encode(NewLogin(name))
			require.NoError(t, err)
			buf.Write(frame)
		}

		reader := bufio.NewReader(&buf)
		for _, want := range []string{"alice", "bob"} {
			msg, err := Decode(reader)
			require.NoError(t, err)
			name, err := msg.Text()
			require.NoError(t, err)
			assert.Equal(t, want, name)
		}

		_, err := Decode(reader)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("final frame without terminator still decodes", func(t *testing.T) {
		reader := bufio.NewReader(strings.NewReader(`{"command":"LOGIN","payload":"alice"}`))

		msg, err := Decode(reader)
		require.NoError(t, err)
		assert.Equal(t, Login, msg.Command)

		_, err = Decode(reader)
		assert.Equal(t, io.EOF, err)
	})
}

func TestDecodeFailures(t *testing.T) {
	t.Run("malformed line is not a stream error", func(t *testing.T) {
		reader := bufio.NewReader(strings.NewReader("not json at all\n" + `{"command":"LOGIN","payload":"alice"}` + "\n"))

		_, err := Decode(reader)
		require.ErrorIs(t, err, ErrMalformedFrame)

		// The stream survives: the next frame decodes normally.
		msg, err := Decode(reader)
		require.NoError(t, err)
		assert.Equal(t, Login, msg.Command)
	})

	t.Run("end of stream is EOF, not a malformed frame", func(t *testing.T) {
		_, err := Decode(bufio.NewReader(strings.NewReader("")))
		assert.Equal(t, io.EOF, err)
		assert.NotErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("wrong payload shape surfaces on typed access", func(t *testing.T) {
		reader := bufio.NewReader(strings.NewReader(`{"command":"MSG_PRIVATE","payload":"just a string"}` + "\n"))

		msg, err := Decode(reader)
		require.NoError(t, err)

		_, err = msg.AsPrivateSend()
		assert.Error(t, err)
	})
}

func TestNilSnapshotsEncodeAsEmpty(t *testing.T) {
	users := NewUserList(nil)
	assert.Equal(t, `[]`, string(users.Payload))

	groups := NewGroupList(nil)
	assert.Equal(t, `{}`, string(groups.Payload))
}
