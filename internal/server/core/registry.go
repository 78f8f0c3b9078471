package core

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"chatrelay/pkg/protocol"
)

// Delivery is the outcome of a send operation.
type Delivery int

const (
	// Delivered means the message was handed to every reachable recipient.
	Delivered Delivery = iota
	// RecipientOffline means the private recipient has no online session.
	RecipientOffline
	// NoSuchGroup means the named group does not exist.
	NoSuchGroup
	// NotAMember means the sender is not in the group's member list.
	NotAMember
)

// Registry is the single shared store of online users and group
// memberships. One mutex guards both maps together: login must atomically
// check-and-claim a name, and every mutation snapshots the state it
// broadcasts inside the same critical section. Network writes always happen
// after the lock is released.
//
// Callers never touch the maps directly; the exported operations are the
// whole surface.
type Registry struct {
	mu     sync.Mutex
	online map[string]*Session
	groups map[string][]string // member names, insertion order, creator first
}

// NewRegistry creates an empty registry. One instance serves the whole
// process and is handed to every connection loop.
func NewRegistry() *Registry {
	return &Registry{
		online: make(map[string]*Session),
		groups: make(map[string][]string),
	}
}

// TryLogin atomically claims name for the session. It fails if the name is
// empty or already taken; out of any number of concurrent attempts on the
// same name exactly one succeeds. On success every online user, the new one
// included, receives fresh user and group lists.
func (r *Registry) TryLogin(name string, session *Session) bool {
	r.mu.Lock()
	if name == "" {
		r.mu.Unlock()
		return false
	}
	if _, taken := r.online[name]; taken {
		r.mu.Unlock()
		return false
	}
	r.online[name] = session
	session.setName(name)
	targets, users, groups := r.stateLocked()
	r.mu.Unlock()

	log.Info().Str("module", "core.registry").Str("session", session.ID).Str("name", name).Msg("login")
	broadcastState(targets, users, groups)
	return true
}

// Logout removes the name from the online map and from every group's
// member list. Calling it with an absent name is a no-op; the state
// broadcast only goes out when something actually changed.
func (r *Registry) Logout(name string) {
	r.mu.Lock()
	_, wasOnline := r.online[name]
	delete(r.online, name)
	for group, members := range r.groups {
		r.groups[group] = removeName(members, name)
	}
	if !wasOnline {
		r.mu.Unlock()
		return
	}
	targets, users, groups := r.stateLocked()
	r.mu.Unlock()

	log.Info().Str("module", "core.registry").Str("name", name).Msg("logout")
	broadcastState(targets, users, groups)
}

// CreateGroup inserts a group with the creator as its first member.
// Creating a group that already exists is silently ignored; either way the
// current group list goes out to everyone online.
func (r *Registry) CreateGroup(name, creator string) {
	r.mu.Lock()
	if _, exists := r.groups[name]; !exists {
		r.groups[name] = []string{creator}
		log.Info().Str("module", "core.registry").Str("group", name).Str("creator", creator).Msg("group created")
	}
	targets, groups := r.groupStateLocked()
	r.mu.Unlock()

	multicast(targets, protocol.NewGroupList(groups))
}

// JoinGroup appends member to the group's list. Joining a group that does
// not exist, or one the member already belongs to, is a no-op.
func (r *Registry) JoinGroup(name, member string) {
	r.mu.Lock()
	if members, exists := r.groups[name]; exists && !containsName(members, member) {
		r.groups[name] = append(members, member)
		log.Info().Str("module", "core.registry").Str("group", name).Str("member", member).Msg("group joined")
	}
	targets, groups := r.groupStateLocked()
	r.mu.Unlock()

	multicast(targets, protocol.NewGroupList(groups))
}

// SendPrivate delivers text from sender to the recipient's session, if one
// is online. The sender gets no copy; their client renders the message
// locally.
func (r *Registry) SendPrivate(sender, recipient, text string) Delivery {
	r.mu.Lock()
	target, online := r.online[recipient]
	r.mu.Unlock()

	if !online {
		return RecipientOffline
	}
	unicast(target, protocol.NewPrivateRecv(sender, text))
	return Delivered
}

// SendGroup delivers text to every currently-online member of the group
// except the sender, whose client renders its own copy locally. The sender
// must be a member; offline members are skipped, not errors.
func (r *Registry) SendGroup(sender, group, text string) Delivery {
	r.mu.Lock()
	members, exists := r.groups[group]
	if !exists {
		r.mu.Unlock()
		return NoSuchGroup
	}
	if !containsName(members, sender) {
		r.mu.Unlock()
		return NotAMember
	}
	targets := make([]*Session, 0, len(members))
	for _, member := range members {
		if member == sender {
			continue
		}
		if session, online := r.online[member]; online {
			targets = append(targets, session)
		}
	}
	r.mu.Unlock()

	multicast(targets, protocol.NewGroupRecv(sender, group, text))
	return Delivered
}

// BroadcastAll sends one frame to every online session.
func (r *Registry) BroadcastAll(msg protocol.Message) {
	r.mu.Lock()
	targets := r.sessionsLocked()
	r.mu.Unlock()

	multicast(targets, msg)
}

// SnapshotUsers returns the online names as a sorted copy. Sorting makes
// the snapshot deterministic regardless of map iteration order.
func (r *Registry) SnapshotUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usersLocked()
}

// SnapshotGroups returns a deep copy of the group member lists.
func (r *Registry) SnapshotGroups() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groupsLocked()
}

// stateLocked collects the broadcast targets plus user and group snapshots.
// Caller must hold r.mu so the snapshot is atomic with the mutation that
// triggered it.
func (r *Registry) stateLocked() ([]*Session, []string, map[string][]string) {
	return r.sessionsLocked(), r.usersLocked(), r.groupsLocked()
}

func (r *Registry) groupStateLocked() ([]*Session, map[string][]string) {
	return r.sessionsLocked(), r.groupsLocked()
}

func (r *Registry) sessionsLocked() []*Session {
	sessions := make([]*Session, 0, len(r.online))
	for _, session := range r.online {
		sessions = append(sessions, session)
	}
	return sessions
}

func (r *Registry) usersLocked() []string {
	users := make([]string, 0, len(r.online))
	for name := range r.online {
		users = append(users, name)
	}
	sort.Strings(users)
	return users
}

func (r *Registry) groupsLocked() map[string][]string {
	groups := make(map[string][]string, len(r.groups))
	for name, members := range r.groups {
		groups[name] = append([]string(nil), members...)
	}
	return groups
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}
