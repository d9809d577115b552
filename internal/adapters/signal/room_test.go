package signal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dkeye/soundsync/internal/app"
	"github.com/dkeye/soundsync/internal/config"
	"github.com/dkeye/soundsync/internal/core"
	"github.com/dkeye/soundsync/internal/proto"
)

// TestCreateRoomFailureReported verifies a failed room creation answers
// the client with a failed result frame instead of leaving it waiting.
func TestCreateRoomFailureReported(t *testing.T) {
	clock := clockwork.NewFakeClock()
	coord := app.NewCoordinator(clock, app.Options{
		HostGrace:     10 * time.Second,
		FollowerGrace: 5 * time.Second,
		ChunkInterval: 50 * time.Millisecond,
	})
	ctl := NewController(coord, clock, &config.Config{})

	conn := &WsSignalConn{
		send:         make(chan core.Frame, 4),
		writeTimeout: time.Second,
	}
	// Identity never connected, so the coordinator rejects the create.
	cc := &clientConn{id: "ghost", conn: conn}

	ctl.handleCreateRoom(cc)

	select {
	case f := <-conn.send:
		var res proto.RoomJoinResult
		if err := json.Unmarshal(f, &res); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if res.Type != proto.TypeRoomJoinResult {
			t.Fatalf("type = %q, want %q", res.Type, proto.TypeRoomJoinResult)
		}
		if res.Success {
			t.Fatal("failed create reported success")
		}
		if res.Error == "" {
			t.Fatal("failed create carried no error message")
		}
	default:
		t.Fatal("no result frame sent for failed create")
	}
}
