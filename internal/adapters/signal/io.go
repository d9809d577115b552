package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/proto"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cc *clientConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "signal").Str("identity", string(cc.id)).Msg("readPump closing")
		cc.prober.stop()
		cc.conn.Close()
		ctl.Coord.Disconnect(cc.id, cc.conn)
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("identity", string(cc.id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := cc.conn.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("identity", string(cc.id)).Msg("readPump read error")
				return
			}
			ctl.handleFrame(cc, data)
		}
	}
}

// handleFrame routes one decoded inbound frame. A malformed frame is
// logged and skipped; the connection survives it.
func (ctl *Controller) handleFrame(cc *clientConn, data []byte) {
	msg, err := proto.DecodeClient(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("identity", string(cc.id)).Msg("rejected frame")
		return
	}

	switch msg.Type {
	case proto.TypeHello:
		// Handshake already settled at upgrade time.
	case proto.TypePong:
		ctl.handlePong(cc, msg.Pong)
	case proto.TypeCreateRoom:
		ctl.handleCreateRoom(cc)
	case proto.TypeJoinRoom:
		ctl.handleJoinRoom(cc, msg.JoinRoom)
	case proto.TypeAutoJoinHost:
		ctl.handleAutoJoinHost(cc, msg.AutoJoinHost)
	case proto.TypeTransferHost:
		ctl.handleTransferHost(cc, msg.TransferHost)
	case proto.TypeAudioControl:
		ctl.Coord.RelayControl(cc.id, msg.AudioControl)
	case proto.TypeAudioTimeUpdate:
		ctl.Coord.RelayTimeUpdate(cc.id, msg.AudioTimeUpdate)
	case proto.TypeAudioStream:
		ctl.Coord.RelayChunk(cc.id, msg.AudioStream)
	case proto.TypeTabStreamStart, proto.TypeTabStreamStop:
		ctl.Coord.RelayStreamLifecycle(cc.id, msg.Type)
	}
}

func (ctl *Controller) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.Send(b); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}
