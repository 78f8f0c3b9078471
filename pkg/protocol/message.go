package protocol

import (
	"encoding/json"
)

// Command tags used on the wire. The set is closed: the server ignores
// anything outside it.
const (
	// Client to server.
	Login       = "LOGIN"
	MsgPrivate  = "MSG_PRIVATE"
	CreateGroup = "CREATE_GROUP"
	JoinGroup   = "JOIN_GROUP"
	MsgGroup    = "MSG_GROUP"

	// Server to client.
	UpdateUserList  = "UPDATE_USER_LIST"
	UpdateGroupList = "UPDATE_GROUP_LIST"
	RecvPrivate     = "RECV_PRIVATE"
	RecvGroup       = "RECV_GROUP"
	Error           = "ERROR"
)

// Message is one protocol frame: a command tag plus a payload whose shape
// depends on the tag. The payload stays raw until the receiver asks for the
// typed form, so the boundary decodes once and dispatch stays exhaustive.
type Message struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PrivateSend is the MSG_PRIVATE payload.
type PrivateSend struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// GroupSend is the MSG_GROUP payload.
type GroupSend struct {
	Group   string `json:"group"`
	Message string `json:"message"`
}

// PrivateRecv is the RECV_PRIVATE payload.
type PrivateRecv struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// GroupRecv is the RECV_GROUP payload.
type GroupRecv struct {
	Sender  string `json:"sender"`
	Group   string `json:"group"`
	Message string `json:"message"`
}

func makeMessage(command string, payload any) Message {
	raw, _ := json.Marshal(payload)
	return Message{Command: command, Payload: raw}
}

// NewLogin builds a LOGIN frame claiming the given name.
func NewLogin(name string) Message { return makeMessage(Login, name) }

// NewPrivateSend builds a MSG_PRIVATE frame.
func NewPrivateSend(recipient, text string) Message {
	return makeMessage(MsgPrivate, PrivateSend{Recipient: recipient, Message: text})
}

// NewCreateGroup builds a CREATE_GROUP frame.
func NewCreateGroup(group string) Message { return makeMessage(CreateGroup, group) }

// NewJoinGroup builds a JOIN_GROUP frame.
func NewJoinGroup(group string) Message { return makeMessage(JoinGroup, group) }

// NewGroupSend builds a MSG_GROUP frame.
func NewGroupSend(group, text string) Message {
	return makeMessage(MsgGroup, GroupSend{Group: group, Message: text})
}

// NewUserList builds an UPDATE_USER_LIST frame carrying a full snapshot.
func NewUserList(users []string) Message {
	if users == nil {
		users = []string{}
	}
	return makeMessage(UpdateUserList, users)
}

// NewGroupList builds an UPDATE_GROUP_LIST frame carrying a full snapshot.
func NewGroupList(groups map[string][]string) Message {
	if groups == nil {
		groups = map[string][]string{}
	}
	return makeMessage(UpdateGroupList, groups)
}

// NewPrivateRecv builds a RECV_PRIVATE frame.
func NewPrivateRecv(sender, text string) Message {
	return makeMessage(RecvPrivate, PrivateRecv{Sender: sender, Message: text})
}

// NewGroupRecv builds a RECV_GROUP frame.
func NewGroupRecv(sender, group, text string) Message {
	return makeMessage(RecvGroup, GroupRecv{Sender: sender, Group: group, Message: text})
}

// NewError builds an ERROR frame with user-facing failure text.
func NewError(text string) Message { return makeMessage(Error, text) }

// Text decodes a plain-string payload (LOGIN, CREATE_GROUP, JOIN_GROUP, ERROR).
func (m Message) Text() (string, error) {
	var s string
	if err := json.Unmarshal(m.Payload, &s); err != nil {
		return "", err
	}
	return s, nil
}

// Users decodes an UPDATE_USER_LIST payload.
func (m Message) Users() ([]string, error) {
	var users []string
	if err := json.Unmarshal(m.Payload, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Groups decodes an UPDATE_GROUP_LIST payload.
func (m Message) Groups() (map[string][]string, error) {
	var groups map[string][]string
	if err := json.Unmarshal(m.Payload, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// AsPrivateSend decodes a MSG_PRIVATE payload.
func (m Message) AsPrivateSend() (PrivateSend, error) {
	var p PrivateSend
	err := json.Unmarshal(m.Payload, &p)
	return p, err
}

// AsGroupSend decodes a MSG_GROUP payload.
func (m Message) AsGroupSend() (GroupSend, error) {
	var p GroupSend
	err := json.Unmarshal(m.Payload, &p)
	return p, err
}

// AsPrivateRecv decodes a RECV_PRIVATE payload.
func (m Message) AsPrivateRecv() (PrivateRecv, error) {
	var p PrivateRecv
	err := json.Unmarshal(m.Payload, &p)
	return p, err
}

// AsGroupRecv decodes a RECV_GROUP payload.
func (m Message) AsGroupRecv() (GroupRecv, error) {
	var p GroupRecv
	err := json.Unmarshal(m.Payload, &p)
	return p, err
}
