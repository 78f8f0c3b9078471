package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"chatrelay/pkg/protocol"
)

// Client is the connection core shared by the GUI and terminal clients: it
// owns the socket, pumps incoming frames onto a channel, and serializes
// outgoing frames through a send loop. UI concerns stay out of this type.
type Client struct {
	username string
	conn     net.Conn
	reader   *bufio.Reader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	incoming chan protocol.Message
	outgoing chan protocol.Message
}

// NewClient creates a disconnected client core.
func NewClient() *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ctx:      ctx,
		cancel:   cancel,
		incoming: make(chan protocol.Message, 256),
		outgoing: make(chan protocol.Message, 256),
	}
}

// Connect dials the relay.
func (c *Client) Connect(address string) error {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return err
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Start launches the receive and send loops. Call after Connect.
func (c *Client) Start() {
	c.wg.Add(2)
	go c.receiveLoop()
	go c.sendLoop()
}

func (c *Client) receiveLoop() {
	defer c.wg.Done()
	defer close(c.incoming)
	for {
		msg, err := protocol.Decode(c.reader)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedFrame) {
				log.Warn().Str("module", "client").Err(err).Msg("malformed frame from server dropped")
				continue
			}
			if err != io.EOF && !isNetClosedErr(err) {
				log.Warn().Str("module", "client").Err(err).Msg("receive failed")
			}
			c.Close()
			return
		}

		select {
		case c.incoming <- *msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) sendLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.outgoing:
			frame, err := protocol.Encode(msg)
			if err != nil {
				log.Warn().Str("module", "client").Err(err).Msg("encode failed")
				continue
			}
			if _, err := c.conn.Write(frame); err != nil {
				if !isNetClosedErr(err) {
					log.Warn().Str("module", "client").Err(err).Msg("send failed")
				}
				c.Close()
				return
			}
		}
	}
}

// Username returns the name this client logged in with.
func (c *Client) Username() string {
	return c.username
}

// Login claims a display name. The server either accepts (fresh user list
// follows) or replies with ERROR and drops the connection.
func (c *Client) Login(username string) {
	c.username = username
	c.send(protocol.NewLogin(username))
}

// SendPrivate sends a direct message. The relay never echoes it back, so
// callers render their own copy locally.
func (c *Client) SendPrivate(recipient, text string) {
	c.send(protocol.NewPrivateSend(recipient, text))
}

// CreateGroup creates a group with this user as first member (or does
// nothing if it exists).
func (c *Client) CreateGroup(group string) {
	c.send(protocol.NewCreateGroup(group))
}

// JoinGroup joins an existing group.
func (c *Client) JoinGroup(group string) {
	c.send(protocol.NewJoinGroup(group))
}

// SendGroupMessage sends a message to a group this user belongs to.
func (c *Client) SendGroupMessage(group, text string) {
	c.send(protocol.NewGroupSend(group, text))
}

func (c *Client) send(msg protocol.Message) {
	select {
	case c.outgoing <- msg:
	case <-c.ctx.Done():
		log.Debug().Str("module", "client").Str("command", msg.Command).Msg("client closed, message dropped")
	}
}

// Incoming exposes the stream of frames from the server. The channel is
// closed when the connection dies.
func (c *Client) Incoming() <-chan protocol.Message {
	return c.incoming
}

// Close tears the connection down and stops both loops. Safe to call more
// than once.
func (c *Client) Close() {
	c.cancel()
	if c.conn != nil {
		c.conn.Close()
	}
}

func isNetClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
