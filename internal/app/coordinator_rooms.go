package app

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/core"
	"github.com/dkeye/soundsync/internal/domain"
	"github.com/dkeye/soundsync/internal/proto"
)

// CreateRoom allocates a fresh room with the caller as its only member
// and host.
func (c *Coordinator) CreateRoom(id domain.Identity) (string, error) {
	sess, ok := c.Store.Get(id)
	if !ok {
		return "", domain.ErrSessionNotFound
	}

	c.leaveCurrent(sess)

	code, room := c.Groups.CreateRoom()
	room.Join(id, true)
	c.Store.SetRoomCode(id, code)
	c.Store.SetRole(id, domain.RoleHost)

	log.Info().Str("module", "app.coordinator").Str("identity", string(id)).Str("room", code).Msg("room created")

	c.send(id, proto.RoomCreated{Type: proto.TypeRoomCreated, RoomCode: code, IsHost: true})
	c.sendNetworkInfo(id)
	c.broadcastUsers(room)
	return code, nil
}

// JoinRoom moves the caller into an existing room as a follower.
// Unknown codes fail explicitly; nothing is mutated on failure.
func (c *Coordinator) JoinRoom(id domain.Identity, code string) error {
	code = strings.ToUpper(code)
	sess, ok := c.Store.Get(id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	room, ok := c.Groups.Room(code)
	if !ok {
		return domain.ErrRoomNotFound
	}

	c.leaveCurrent(sess)

	becameHost := room.Join(id, false)
	c.Store.SetRoomCode(id, code)
	role := domain.RoleFollower
	if becameHost {
		role = domain.RoleHost
	}
	c.Store.SetRole(id, role)

	log.Info().Str("module", "app.coordinator").Str("identity", string(id)).Str("room", code).Msg("joined room")

	c.send(id, proto.RoomJoinResult{Type: proto.TypeRoomJoinResult, Success: true, RoomCode: code})
	c.sendNetworkInfo(id)
	c.send(id, proto.HostStatus{Type: proto.TypeHostStatus, IsHost: becameHost})
	c.broadcastUsers(room)
	return nil
}

// AutoJoinHost joins the room of a known host, lazily creating one for
// the host when it only existed in its network bucket so far.
func (c *Coordinator) AutoJoinHost(id domain.Identity, hostID domain.Identity) (string, error) {
	sess, ok := c.Store.Get(id)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	hostSess, ok := c.Store.Get(hostID)
	if !ok || c.Groups.Resolve(hostSess).Host() != hostID {
		return "", domain.ErrHostNotFound
	}

	code := hostSess.RoomCode
	if code == "" {
		var room *core.Group
		code, room = c.Groups.CreateRoom()
		room.Join(hostID, true)
		c.Store.SetRoomCode(hostID, code)
		log.Info().Str("module", "app.coordinator").Str("host", string(hostID)).Str("room", code).Msg("room auto-created for host")
		c.send(hostID, proto.RoomCreated{Type: proto.TypeRoomCreated, RoomCode: code, IsHost: true, AutoCreated: true})
		c.sendNetworkInfo(hostID)
	}

	c.leaveCurrent(sess)

	room, _ := c.Groups.Room(code)
	room.Join(id, false)
	c.Store.SetRoomCode(id, code)
	c.Store.SetRole(id, domain.RoleFollower)

	log.Info().Str("module", "app.coordinator").Str("identity", string(id)).Str("host", string(hostID)).Str("room", code).Msg("auto-joined host room")

	c.send(id, proto.AutoJoinResult{Type: proto.TypeAutoJoinResult, Success: true, RoomCode: code})
	c.sendNetworkInfo(id)
	c.send(id, proto.HostStatus{Type: proto.TypeHostStatus, IsHost: false})
	c.broadcastUsers(room)
	return code, nil
}

// TransferHost hands authority to another member of the requester's
// group. All failures are reported to the requester only and leave
// every host flag untouched.
func (c *Coordinator) TransferHost(requester, target domain.Identity) error {
	reqSess, ok := c.Store.Get(requester)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if _, ok := c.Store.Get(target); !ok {
		return domain.ErrUnknownTarget
	}

	g := c.Groups.Resolve(reqSess)
	if err := g.Transfer(requester, target); err != nil {
		return err
	}

	c.Store.SetRole(requester, domain.RoleFollower)
	c.Store.SetRole(target, domain.RoleHost)

	c.send(requester, proto.HostStatus{Type: proto.TypeHostStatus, IsHost: false})
	c.send(target, proto.HostStatus{Type: proto.TypeHostStatus, IsHost: true})
	c.broadcastUsers(g)
	return nil
}

// leaveCurrent detaches a session from its present broadcast group
// before it moves to a room: an old room loses the member (and is
// destroyed when empty), a network bucket keeps the member but demotes
// it so its followers get a new host.
func (c *Coordinator) leaveCurrent(sess domain.Session) {
	id := sess.Identity
	if sess.RoomCode != "" {
		if old, ok := c.Groups.Room(sess.RoomCode); ok {
			c.leaveGroup(old, id)
		}
		c.Store.SetRoomCode(id, "")
		return
	}
	network := c.Groups.Network(sess.NetworkID)
	if promoted := network.Demote(id); promoted != "" {
		c.Store.SetRole(promoted, domain.RoleHost)
		c.send(promoted, proto.HostStatus{Type: proto.TypeHostStatus, IsHost: true})
		c.broadcastUsers(network)
	}
}
