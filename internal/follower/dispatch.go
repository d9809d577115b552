package follower

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/proto"
	"github.com/dkeye/soundsync/internal/stream"
)

func (c *Client) handle(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "follower").Msg("bad frame")
		return
	}

	switch env.Type {
	case proto.TypePing:
		var p proto.Ping
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		c.reply(map[string]any{"type": proto.TypePong, "timestamp": p.Timestamp})
	case proto.TypePongResponse:
		var p proto.PongResponse
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		c.mu.Lock()
		c.latency = p.LatencyMs
		c.mu.Unlock()
	case proto.TypeAudioTimeUpdate:
		var p proto.TimeBroadcast
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		c.mu.Lock()
		c.lastUpdate = c.clock.Now()
		c.mu.Unlock()
		c.engine.Observe(p.CurrentTime, p.LatencyMs)
		c.predict.Update(p.CurrentTime)
	case proto.TypeAudioControl:
		var p proto.ControlBroadcast
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		c.applyControl(p)
	case proto.TypeAudioStream:
		var p proto.StreamBroadcast
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		payload, err := base64.StdEncoding.DecodeString(p.AudioChunkEncoded)
		if err != nil {
			log.Warn().Err(err).Str("module", "follower").Msg("bad chunk encoding")
			return
		}
		c.buffer.Push(stream.Chunk{Payload: payload, OriginMillis: p.Timestamp})
	case proto.TypeHostStatus:
		var p proto.HostStatus
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		c.mu.Lock()
		c.isHost = p.IsHost
		c.mu.Unlock()
		log.Info().Str("module", "follower").Bool("host", p.IsHost).Msg("host status")
	case proto.TypeRoomCreated, proto.TypeRoomJoinResult, proto.TypeAutoJoinResult,
		proto.TypeHostTransferResult, proto.TypeUsersUpdate, proto.TypeNetworkInfo,
		proto.TypeAutoDiscovery:
		log.Debug().Str("module", "follower").Str("type", env.Type).Msg("state update")
	default:
		log.Warn().Str("module", "follower").Str("type", env.Type).Msg("unknown frame")
	}
}

func (c *Client) applyControl(p proto.ControlBroadcast) {
	switch p.Action {
	case proto.ActionPlay:
		c.player.Seek(p.Time)
		c.player.Play()
		log.Info().Str("module", "follower").Float64("time", p.Time).Msg("play")
	case proto.ActionPause:
		c.player.Pause()
		log.Info().Str("module", "follower").Msg("pause")
	case proto.ActionSeek:
		c.player.Seek(p.Time)
		log.Info().Str("module", "follower").Float64("time", p.Time).Msg("seek")
	}
}

func (c *Client) reply(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Debug().Err(err).Str("module", "follower").Msg("reply dropped")
	}
}
