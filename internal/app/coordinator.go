// Package app wires the session store, group manager and election into
// the operations the signal adapter exposes. Every mutation of a
// group's membership or host fact happens under that group's lock.
package app

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/core"
	"github.com/dkeye/soundsync/internal/domain"
	"github.com/dkeye/soundsync/internal/proto"
	"github.com/dkeye/soundsync/internal/stream"
)

type Options struct {
	HostGrace         time.Duration
	FollowerGrace     time.Duration
	ChunkInterval     time.Duration
	DiscoveryInterval time.Duration
}

type Coordinator struct {
	Store  *core.Store
	Groups *core.Groups

	clock clockwork.Clock
	opts  Options

	mu        sync.Mutex
	throttles map[domain.Identity]*stream.Throttle
}

func NewCoordinator(clock clockwork.Clock, opts Options) *Coordinator {
	return &Coordinator{
		Store:     core.NewStore(clock),
		Groups:    core.NewGroups(),
		clock:     clock,
		opts:      opts,
		throttles: make(map[domain.Identity]*stream.Throttle),
	}
}

// Connect registers a (re)connecting identity, places it in its groups,
// settles the host fact and pushes the initial state to the client and
// its group.
func (c *Coordinator) Connect(id domain.Identity, conn core.SignalConnection, wasHost bool, declaredRoomCode, originAddr string) {
	sess, reconnected := c.Store.Upsert(id, conn, declaredRoomCode, originAddr)

	network := c.Groups.Network(sess.NetworkID)
	var becameHost bool
	if sess.RoomCode != "" {
		room := c.Groups.EnsureRoom(sess.RoomCode)
		becameHost = room.Join(id, wasHost)
		network.Add(id)
	} else {
		becameHost = network.Join(id, wasHost)
	}

	role := domain.RoleFollower
	if becameHost {
		role = domain.RoleHost
	}
	c.Store.SetRole(id, role)

	log.Info().
		Str("module", "app.coordinator").
		Str("identity", string(id)).
		Str("network", sess.NetworkID).
		Str("room", sess.RoomCode).
		Bool("reconnected", reconnected).
		Bool("host", becameHost).
		Msg("session connected")

	c.send(id, proto.HostStatus{Type: proto.TypeHostStatus, IsHost: becameHost})
	c.sendNetworkInfo(id)
	c.notifyNetwork(network, id)
	c.broadcastUsers(c.Groups.Resolve(sess))
}

// Disconnect starts the grace timer. Hosts get a longer grace than
// followers: a spurious election during a brief network hiccup is the
// worst failure mode here, not slow failover.
func (c *Coordinator) Disconnect(id domain.Identity, conn core.SignalConnection) {
	sess, ok := c.Store.Get(id)
	if !ok {
		return
	}
	grace := c.opts.FollowerGrace
	if c.Groups.Resolve(sess).Host() == id {
		grace = c.opts.HostGrace
	}
	log.Info().Str("module", "app.coordinator").Str("identity", string(id)).Dur("grace", grace).Msg("disconnected, grace timer armed")
	c.Store.MarkPendingRemoval(id, conn, grace, c.evict)
}

// evict runs when a grace timer fires without a reconnect.
func (c *Coordinator) evict(sess domain.Session) {
	id := sess.Identity

	c.mu.Lock()
	delete(c.throttles, id)
	c.mu.Unlock()

	network := c.Groups.Network(sess.NetworkID)
	if sess.RoomCode != "" {
		if room, ok := c.Groups.Room(sess.RoomCode); ok {
			c.leaveGroup(room, id)
		}
		// Also drop from the network bucket; no election consequence
		// there since the session broadcast to its room.
		if _, empty := network.Leave(id); empty {
			c.Groups.DropIfEmpty(network)
		} else {
			c.broadcastUsers(network)
		}
		return
	}
	c.leaveGroup(network, id)
}

// leaveGroup removes a member from its broadcast group, promoting a
// replacement host when needed and tearing the group down when it
// empties.
func (c *Coordinator) leaveGroup(g *core.Group, id domain.Identity) {
	promoted, empty := g.Leave(id)
	if empty {
		c.Groups.DropIfEmpty(g)
		log.Info().Str("module", "app.coordinator").Str("group", g.ID()).Msg("group destroyed")
		return
	}
	if promoted != "" {
		c.Store.SetRole(promoted, domain.RoleHost)
		c.send(promoted, proto.HostStatus{Type: proto.TypeHostStatus, IsHost: true})
	}
	c.broadcastUsers(g)
}

func (c *Coordinator) throttleFor(id domain.Identity) *stream.Throttle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.throttles[id]
	if !ok {
		t = stream.NewThrottle(c.clock, c.opts.ChunkInterval)
		c.throttles[id] = t
	}
	return t
}

// send marshals and delivers one guaranteed frame, skipping the peer
// when it is unreachable. Fan-out must never block on a dead socket.
func (c *Coordinator) send(id domain.Identity, v any) {
	conn, ok := c.Store.Conn(id)
	if !ok {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal outbound")
		return
	}
	if err := conn.Send(data); err != nil {
		log.Debug().Err(err).Str("module", "app.coordinator").Str("identity", string(id)).Msg("send skipped")
	}
}

// sendVolatile delivers one best-effort frame; backpressure drops it.
func (c *Coordinator) sendVolatile(id domain.Identity, v any) {
	conn, ok := c.Store.Conn(id)
	if !ok {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("marshal outbound")
		return
	}
	if err := conn.TrySend(data); err != nil {
		log.Debug().Err(err).Str("module", "app.coordinator").Str("identity", string(id)).Msg("volatile frame dropped")
	}
}

func (c *Coordinator) usersOf(g *core.Group) []proto.UserInfo {
	host := g.Host()
	members := g.Members()
	out := make([]proto.UserInfo, 0, len(members))
	for _, id := range members {
		sess, ok := c.Store.Get(id)
		if !ok {
			continue
		}
		out = append(out, proto.UserInfo{
			Identity:      string(id),
			IsHost:        id == host,
			AddressSuffix: core.AddrSuffix(sess.OriginAddr),
		})
	}
	return out
}

// broadcastUsers pushes the current membership list to every member of
// a group. Sent on any membership or role change.
func (c *Coordinator) broadcastUsers(g *core.Group) {
	msg := proto.UsersUpdate{
		Type:    proto.TypeUsersUpdate,
		Users:   c.usersOf(g),
		GroupID: g.ID(),
	}
	for _, id := range g.Members() {
		c.send(id, msg)
	}
}

func (c *Coordinator) sendNetworkInfo(id domain.Identity) {
	sess, ok := c.Store.Get(id)
	if !ok {
		return
	}
	c.send(id, proto.NetworkInfo{
		Type:      proto.TypeNetworkInfo,
		NetworkID: sess.NetworkID,
		RoomCode:  sess.RoomCode,
		UserCount: c.Groups.Resolve(sess).Count(),
	})
}

// notifyNetwork refreshes network-info for everyone else in a network
// bucket after a membership change.
func (c *Coordinator) notifyNetwork(network *core.Group, joined domain.Identity) {
	for _, id := range network.MembersExcept(joined) {
		c.sendNetworkInfo(id)
	}
}
