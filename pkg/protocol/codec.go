package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedFrame reports a line that could not be parsed as a Message.
// It is distinct from read errors: a malformed frame is dropped and the
// stream keeps going, while a read error (io.EOF included) ends it.
var ErrMalformedFrame = errors.New("protocol: malformed frame")

// Encode packs a message as one newline-terminated JSON frame.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode reads the next frame from the stream. A parse failure is reported
// as ErrMalformedFrame so the caller can skip the line and continue; any
// other error means the stream itself is done.
func Decode(reader *bufio.Reader) (*Message, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		// A final frame without its terminator is still a frame.
		if err != io.EOF || strings.TrimSpace(line) == "" {
			return nil, err
		}
	}

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &msg, nil
}
