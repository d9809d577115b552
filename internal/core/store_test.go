package core

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dkeye/soundsync/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Send(f Frame) error { return c.TrySend(f) }

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waitFor polls a condition with a real-time deadline, since fake
// timer callbacks may run on another goroutine.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// TestUpsertReconnectPreservesSession verifies a reconnect swaps the
// transport but keeps role and room intact, and closes the stale
// transport.
func TestUpsertReconnectPreservesSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)

	c1 := &fakeConn{}
	sess, reconnected := s.Upsert("alice", c1, "", "192.168.1.5")
	if reconnected {
		t.Fatal("first Upsert reported a reconnect")
	}
	if sess.NetworkID != "192.168" {
		t.Fatalf("NetworkID = %q, want 192.168", sess.NetworkID)
	}

	s.SetRole("alice", domain.RoleHost)
	s.SetRoomCode("alice", "ABCDEF")

	c2 := &fakeConn{}
	sess, reconnected = s.Upsert("alice", c2, "", "192.168.1.5")
	if !reconnected {
		t.Fatal("second Upsert did not report a reconnect")
	}
	if sess.Role != domain.RoleHost {
		t.Errorf("role = %v, want host", sess.Role)
	}
	if sess.RoomCode != "ABCDEF" {
		t.Errorf("room = %q, want ABCDEF", sess.RoomCode)
	}
	if !c1.isClosed() {
		t.Error("previous transport was not closed")
	}
	if conn, _ := s.Conn("alice"); conn != c2 {
		t.Error("transport handle was not replaced")
	}
}

// TestGraceEviction verifies the session is evicted only after the
// grace period elapses with no reconnect.
func TestGraceEviction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)

	conn := &fakeConn{}
	s.Upsert("bob", conn, "", "10.0.0.2")

	var mu sync.Mutex
	var evicted []domain.Session
	s.MarkPendingRemoval("bob", conn, 5*time.Second, func(sess domain.Session) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, sess)
	})

	clock.Advance(4 * time.Second)
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	early := len(evicted)
	mu.Unlock()
	if early != 0 {
		t.Fatal("evicted before grace elapsed")
	}
	if s.Count() != 1 {
		t.Fatal("session removed before grace elapsed")
	}

	clock.Advance(1 * time.Second)
	waitFor(t, func() bool { return s.Count() == 0 }, "session not evicted after grace")
	mu.Lock()
	defer mu.Unlock()
	if len(evicted) != 1 {
		t.Fatalf("evictions = %d, want 1", len(evicted))
	}
	if evicted[0].Identity != "bob" {
		t.Errorf("evicted %q, want bob", evicted[0].Identity)
	}
}

// TestReconnectCancelsEviction verifies a reconnect inside the grace
// window disarms the pending removal, including a timer that already
// fired against the old transport.
func TestReconnectCancelsEviction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)

	c1 := &fakeConn{}
	s.Upsert("carol", c1, "", "10.0.0.3")

	var fired bool
	var mu sync.Mutex
	s.MarkPendingRemoval("carol", c1, 5*time.Second, func(domain.Session) {
		mu.Lock()
		defer mu.Unlock()
		fired = true
	})

	clock.Advance(3 * time.Second)
	c2 := &fakeConn{}
	s.Upsert("carol", c2, "", "10.0.0.3")

	clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Error("eviction fired despite reconnect inside grace")
	}
	if s.Count() != 1 {
		t.Error("session lost after reconnect")
	}
}

// TestExpireStaleTimerNoops verifies an expiry bound to a replaced
// transport does nothing even if it somehow fires.
func TestExpireStaleTimerNoops(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)

	c1 := &fakeConn{}
	s.Upsert("dave", c1, "", "10.0.0.4")
	c2 := &fakeConn{}
	s.Upsert("dave", c2, "", "10.0.0.4")

	fired := false
	s.expire("dave", c1, func(domain.Session) { fired = true })
	if fired {
		t.Error("expiry ran against a stale transport")
	}
	if s.Count() != 1 {
		t.Error("session removed by stale expiry")
	}
}
