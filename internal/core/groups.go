package core

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dkeye/soundsync/internal/domain"
)

// Groups partitions sessions into disjoint rooms and disjoint
// network-inferred buckets. A session is always in its network group
// and additionally in at most one room; the room wins for broadcast
// routing.
type Groups struct {
	mu       sync.Mutex
	rooms    map[string]*Group
	networks map[string]*Group
}

func NewGroups() *Groups {
	return &Groups{
		rooms:    make(map[string]*Group),
		networks: make(map[string]*Group),
	}
}

// Network returns the network-inferred group, creating it on first use.
func (gs *Groups) Network(networkID string) *Group {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	g, ok := gs.networks[networkID]
	if !ok {
		g = newGroup(networkID, domain.KindNetwork)
		gs.networks[networkID] = g
	}
	return g
}

func (gs *Groups) Room(code string) (*Group, bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	g, ok := gs.rooms[code]
	return g, ok
}

// EnsureRoom returns the room for a code, creating it if unknown.
// Used for handshake-declared codes, where the room may predate the
// server restart on the client side.
func (gs *Groups) EnsureRoom(code string) *Group {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	g, ok := gs.rooms[code]
	if !ok {
		g = newGroup(code, domain.KindRoom)
		gs.rooms[code] = g
	}
	return g
}

// CreateRoom allocates a fresh unique code and an empty room for it.
func (gs *Groups) CreateRoom() (string, *Group) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	for {
		code := newRoomCode()
		if _, taken := gs.rooms[code]; taken {
			continue
		}
		g := newGroup(code, domain.KindRoom)
		gs.rooms[code] = g
		return code, g
	}
}

// DropIfEmpty destroys a group once its membership is gone. The
// emptiness check and the registry delete happen under the registry
// lock with the group lock taken inside it, so a join landing between
// them cannot strand the joiner in an unregistered group.
func (gs *Groups) DropIfEmpty(g *Group) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	g.mu.Lock()
	empty := len(g.members) == 0
	g.mu.Unlock()
	if !empty {
		return
	}

	switch g.kind {
	case domain.KindRoom:
		delete(gs.rooms, g.id)
	case domain.KindNetwork:
		delete(gs.networks, g.id)
	}
}

// Resolve picks the session's broadcast group: the room when a room
// code is set, else the network-inferred group.
func (gs *Groups) Resolve(sess domain.Session) *Group {
	if sess.RoomCode != "" {
		if g, ok := gs.Room(sess.RoomCode); ok {
			return g
		}
	}
	return gs.Network(sess.NetworkID)
}

// Networks returns a snapshot of all network groups, for the periodic
// discovery broadcast.
func (gs *Groups) Networks() []*Group {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	out := make([]*Group, 0, len(gs.networks))
	for _, g := range gs.networks {
		out = append(out, g)
	}
	return out
}

func newRoomCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:domain.RoomCodeLen])
}
