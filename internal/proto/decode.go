package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrBadPayload  = errors.New("bad payload")
)

// ClientMessage is the decoded form of one inbound frame. Exactly one
// payload field is non-nil, matching Type.
type ClientMessage struct {
	Type string

	JoinRoom        *JoinRoom
	AutoJoinHost    *AutoJoinHost
	TransferHost    *TransferHost
	AudioControl    *AudioControl
	AudioTimeUpdate *AudioTimeUpdate
	AudioStream     *AudioStream
	Pong            *Pong

	// Raw keeps the original frame for verbatim relay.
	Raw []byte
}

// DecodeClient validates an inbound frame against the closed message
// set. Malformed or unknown frames never reach core logic.
func DecodeClient(data []byte) (*ClientMessage, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	msg := &ClientMessage{Type: env.Type, Raw: data}
	switch env.Type {
	case TypeHello, TypeCreateRoom, TypeTabStreamStart, TypeTabStreamStop:
		// No payload the server acts on beyond the type tag.
		return msg, nil
	case TypeJoinRoom:
		var p JoinRoom
		if err := json.Unmarshal(data, &p); err != nil || p.RoomCode == "" {
			return nil, ErrBadPayload
		}
		msg.JoinRoom = &p
	case TypeAutoJoinHost:
		var p AutoJoinHost
		if err := json.Unmarshal(data, &p); err != nil || p.HostIdentity == "" {
			return nil, ErrBadPayload
		}
		msg.AutoJoinHost = &p
	case TypeTransferHost:
		var p TransferHost
		if err := json.Unmarshal(data, &p); err != nil || p.NewHostIdentity == "" {
			return nil, ErrBadPayload
		}
		msg.TransferHost = &p
	case TypeAudioControl:
		var p AudioControl
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, ErrBadPayload
		}
		switch p.Action {
		case ActionPlay, ActionPause, ActionSeek:
		default:
			return nil, ErrBadPayload
		}
		msg.AudioControl = &p
	case TypeAudioTimeUpdate:
		var p AudioTimeUpdate
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, ErrBadPayload
		}
		msg.AudioTimeUpdate = &p
	case TypeAudioStream:
		var p AudioStream
		if err := json.Unmarshal(data, &p); err != nil || p.AudioChunkEncoded == "" {
			return nil, ErrBadPayload
		}
		msg.AudioStream = &p
	case TypePong:
		var p Pong
		if err := json.Unmarshal(data, &p); err != nil || p.Timestamp == 0 {
			return nil, ErrBadPayload
		}
		msg.Pong = &p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return msg, nil
}
