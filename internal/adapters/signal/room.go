package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/domain"
	"github.com/dkeye/soundsync/internal/proto"
)

func (ctl *Controller) handleCreateRoom(cc *clientConn) {
	if !ctl.limiter.Allow(cc.id) {
		ctl.sendJSON(cc.conn, proto.RoomJoinResult{
			Type:    proto.TypeRoomJoinResult,
			Success: false,
			Error:   "Too many room operations, slow down",
		})
		return
	}
	code, err := ctl.Coord.CreateRoom(cc.id)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("identity", string(cc.id)).Msg("create room")
		ctl.sendJSON(cc.conn, proto.RoomJoinResult{
			Type:    proto.TypeRoomJoinResult,
			Success: false,
			Error:   "Failed to create room",
		})
		return
	}
	log.Info().Str("module", "signal").Str("identity", string(cc.id)).Str("room", code).Msg("room created")
}

func (ctl *Controller) handleJoinRoom(cc *clientConn, p *proto.JoinRoom) {
	if !ctl.limiter.Allow(cc.id) {
		ctl.sendJSON(cc.conn, proto.RoomJoinResult{
			Type:    proto.TypeRoomJoinResult,
			Success: false,
			Error:   "Too many room operations, slow down",
		})
		return
	}
	if err := ctl.Coord.JoinRoom(cc.id, p.RoomCode); err != nil {
		msg := "Failed to join room"
		if errors.Is(err, domain.ErrRoomNotFound) {
			msg = "Room not found"
		}
		ctl.sendJSON(cc.conn, proto.RoomJoinResult{
			Type:    proto.TypeRoomJoinResult,
			Success: false,
			Error:   msg,
		})
	}
}

func (ctl *Controller) handleAutoJoinHost(cc *clientConn, p *proto.AutoJoinHost) {
	if !ctl.limiter.Allow(cc.id) {
		ctl.sendJSON(cc.conn, proto.AutoJoinResult{
			Type:    proto.TypeAutoJoinResult,
			Success: false,
			Error:   "Too many room operations, slow down",
		})
		return
	}
	if _, err := ctl.Coord.AutoJoinHost(cc.id, domain.Identity(p.HostIdentity)); err != nil {
		msg := "Failed to join host"
		if errors.Is(err, domain.ErrHostNotFound) {
			msg = "Host not found"
		}
		ctl.sendJSON(cc.conn, proto.AutoJoinResult{
			Type:    proto.TypeAutoJoinResult,
			Success: false,
			Error:   msg,
		})
	}
}
