// Package domain contains entity without logic, just meta-data
package domain

const MaxIdentityLen = 64

// Identity is the client-supplied durable id. It survives reconnects,
// unlike the transport handle which changes on every reconnect.
type Identity string

type Role string

const (
	RoleFollower Role = "follower"
	RoleHost     Role = "host"
)

// Session is the durable-for-session-lifetime record of one identity.
type Session struct {
	Identity   Identity `json:"identity"`
	Role       Role     `json:"role"`
	LatencyMs  float64  `json:"latency_ms"`
	OriginAddr string   `json:"-"`
	NetworkID  string   `json:"network_id"`
	RoomCode   string   `json:"room_code,omitempty"`
}

func (s *Session) IsHost() bool { return s.Role == RoleHost }

// GroupKey returns the broadcast scope of the session.
// The room takes priority over the network-inferred group when present.
func (s *Session) GroupKey() string {
	if s.RoomCode != "" {
		return s.RoomCode
	}
	return s.NetworkID
}
