// Package proto defines the wire messages exchanged over the signal
// channel. The set is closed: anything outside it is rejected at the
// boundary before it can reach core logic.
package proto

// Client -> server message types.
const (
	TypeHello           = "hello"
	TypeCreateRoom      = "create-room"
	TypeJoinRoom        = "join-room"
	TypeAutoJoinHost    = "auto-join-host"
	TypeTransferHost    = "transfer-host"
	TypeAudioControl    = "audio-control"
	TypeAudioTimeUpdate = "audio-time-update"
	TypeAudioStream     = "audio-stream"
	TypeTabStreamStart  = "tab-stream-start"
	TypeTabStreamStop   = "tab-stream-stop"
	TypePong            = "pong"
)

// Server -> client message types.
const (
	TypePing               = "ping"
	TypePongResponse       = "pong-response"
	TypeRoomCreated        = "room-created"
	TypeRoomJoinResult     = "room-join-result"
	TypeAutoJoinResult     = "auto-join-result"
	TypeHostStatus         = "host-status"
	TypeHostTransferResult = "host-transfer-result"
	TypeUsersUpdate        = "users-update"
	TypeNetworkInfo        = "network-info"
	TypeAutoDiscovery      = "auto-discovery"
)

// Audio control actions.
const (
	ActionPlay  = "play"
	ActionPause = "pause"
	ActionSeek  = "seek"
)

// Hello re-declares the handshake parameters in-band. The same values
// travel as query params on the upgrade request, which is what the
// server acts on; an in-band hello is accepted and ignored.
type Hello struct {
	Identity string `json:"identity"`
	WasHost  bool   `json:"wasHost,omitempty"`
	RoomCode string `json:"roomCode,omitempty"`
}

// JoinRoom asks to join an existing room by code.
type JoinRoom struct {
	RoomCode string `json:"roomCode"`
}

// AutoJoinHost asks to join the room of a known host, creating one
// for the host if it has none yet.
type AutoJoinHost struct {
	HostIdentity string `json:"hostId"`
}

// TransferHost hands host authority to another member of the same group.
type TransferHost struct {
	NewHostIdentity string `json:"newHostIdentity"`
}

// AudioControl is a host playback command, relayed verbatim.
type AudioControl struct {
	Action  string  `json:"action"`
	FileURL string  `json:"fileUrl,omitempty"`
	Time    float64 `json:"time,omitempty"`
}

// AudioTimeUpdate carries the host's authoritative playback position.
type AudioTimeUpdate struct {
	CurrentTime     float64 `json:"currentTime"`
	ClientTimestamp int64   `json:"clientTimestamp"`
	Precision       bool    `json:"precision,omitempty"`
}

// AudioStream carries one encoded media chunk from the host capturer.
type AudioStream struct {
	AudioChunkEncoded string `json:"audioChunkEncoded"`
	Timestamp         int64  `json:"timestamp"`
}

// Pong answers a server latency probe, echoing the probe timestamp.
type Pong struct {
	Timestamp int64 `json:"timestamp"`
}

// Ping is a server latency probe.
type Ping struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// PongResponse reports the measured one-way latency back to the client.
type PongResponse struct {
	Type      string  `json:"type"`
	LatencyMs float64 `json:"latency"`
}

type RoomCreated struct {
	Type        string `json:"type"`
	RoomCode    string `json:"roomCode"`
	IsHost      bool   `json:"isHost"`
	AutoCreated bool   `json:"autoCreated,omitempty"`
}

type RoomJoinResult struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode,omitempty"`
	Error    string `json:"error,omitempty"`
}

type AutoJoinResult struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode,omitempty"`
	Error    string `json:"error,omitempty"`
}

type HostStatus struct {
	Type   string `json:"type"`
	IsHost bool   `json:"isHost"`
}

type HostTransferResult struct {
	Type           string `json:"type"`
	Success        bool   `json:"success"`
	PreviousHostID string `json:"previousHostIdentity"`
	NewHostID      string `json:"newHostIdentity,omitempty"`
	Error          string `json:"error,omitempty"`
}

// UserInfo is the peer-visible view of a session. Only a truncated
// origin address is ever exposed.
type UserInfo struct {
	Identity      string `json:"identity"`
	IsHost        bool   `json:"isHost"`
	AddressSuffix string `json:"addressSuffix"`
}

type UsersUpdate struct {
	Type    string     `json:"type"`
	Users   []UserInfo `json:"users"`
	GroupID string     `json:"groupId"`
}

type NetworkInfo struct {
	Type      string `json:"type"`
	NetworkID string `json:"networkId"`
	RoomCode  string `json:"roomCode,omitempty"`
	UserCount int    `json:"userCount"`
}

type AutoDiscovery struct {
	Type      string     `json:"type"`
	NetworkID string     `json:"networkId"`
	Users     []UserInfo `json:"users"`
}

// TimeBroadcast is AudioTimeUpdate enriched per recipient before relay.
type TimeBroadcast struct {
	Type            string  `json:"type"`
	CurrentTime     float64 `json:"currentTime"`
	ClientTimestamp int64   `json:"clientTimestamp"`
	ServerTimestamp int64   `json:"serverTimestamp"`
	LatencyMs       float64 `json:"latency"`
	ServerDelayMs   int64   `json:"serverDelay"`
	Precision       bool    `json:"precision,omitempty"`
}

// StreamBroadcast is AudioStream enriched before relay.
type StreamBroadcast struct {
	Type              string `json:"type"`
	AudioChunkEncoded string `json:"audioChunkEncoded"`
	Timestamp         int64  `json:"timestamp"`
	ServerTimestamp   int64  `json:"serverTimestamp"`
	ServerDelayMs     int64  `json:"serverDelay"`
}

// ControlBroadcast re-wraps a relayed host playback command.
type ControlBroadcast struct {
	Type    string  `json:"type"`
	Action  string  `json:"action"`
	FileURL string  `json:"fileUrl,omitempty"`
	Time    float64 `json:"time,omitempty"`
}

// StreamLifecycle announces tab-stream start/stop to the group.
type StreamLifecycle struct {
	Type string `json:"type"`
}
