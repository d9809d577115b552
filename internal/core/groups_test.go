package core

import (
	"sync"
	"testing"

	"github.com/dkeye/soundsync/internal/domain"
)

func TestCreateRoomCodes(t *testing.T) {
	gs := NewGroups()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, g := gs.CreateRoom()
		if len(code) != domain.RoomCodeLen {
			t.Fatalf("code %q length = %d, want %d", code, len(code), domain.RoomCodeLen)
		}
		for _, r := range code {
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				t.Fatalf("code %q contains %q", code, r)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
		if g.Kind() != domain.KindRoom {
			t.Fatal("created group is not a room")
		}
	}
}

// TestResolvePrefersRoom verifies broadcast routing: the room wins
// over the network bucket whenever a room code is set.
func TestResolvePrefersRoom(t *testing.T) {
	gs := NewGroups()
	room := gs.EnsureRoom("ABC123")
	sess := domain.Session{Identity: "a", NetworkID: "192.168", RoomCode: "ABC123"}

	if got := gs.Resolve(sess); got != room {
		t.Fatal("Resolve did not pick the room")
	}

	sess.RoomCode = ""
	if got := gs.Resolve(sess); got.Kind() != domain.KindNetwork || got.ID() != "192.168" {
		t.Fatal("Resolve did not fall back to the network group")
	}
}

func TestDropIfEmpty(t *testing.T) {
	gs := NewGroups()
	room := gs.EnsureRoom("ABC123")
	room.Join("a", false)

	gs.DropIfEmpty(room)
	if _, ok := gs.Room("ABC123"); !ok {
		t.Fatal("non-empty room was dropped")
	}

	room.Leave("a")
	gs.DropIfEmpty(room)
	if _, ok := gs.Room("ABC123"); ok {
		t.Fatal("empty room survived")
	}
}

// TestDropIfEmptyUnderChurn races lookups, joins, leaves and drops on
// one bucket id. The drop's emptiness decision is atomic with the
// registry delete, so the bucket must still be usable afterwards.
func TestDropIfEmptyUnderChurn(t *testing.T) {
	gs := NewGroups()
	for round := 0; round < 200; round++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			g := gs.Network("10.0")
			g.Join("a", false)
			g.Leave("a")
			gs.DropIfEmpty(g)
		}()
		go func() {
			defer wg.Done()
			g := gs.Network("10.0")
			g.Join("b", false)
			g.Leave("b")
			gs.DropIfEmpty(g)
		}()
		wg.Wait()

		// A group that still holds members must stay registered.
		g := gs.Network("10.0")
		g.Join("c", false)
		if !gs.Network("10.0").Has("c") {
			t.Fatalf("round %d: registered bucket lost a member", round)
		}
		g.Leave("c")
		gs.DropIfEmpty(g)
	}
}
