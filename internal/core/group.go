package core

import (
	"sync"

	"github.com/dkeye/soundsync/internal/domain"
)

// Group is one broadcast scope: an explicit room or a network-inferred
// bucket. Membership and the host fact are guarded by one mutex so
// concurrent joins, transfers and failovers never interleave
// inconsistently.
type Group struct {
	mu      sync.Mutex
	id      string
	kind    domain.GroupKind
	members map[domain.Identity]struct{}
	host    domain.Identity // "" means no host
}

func newGroup(id string, kind domain.GroupKind) *Group {
	return &Group{
		id:      id,
		kind:    kind,
		members: make(map[domain.Identity]struct{}),
	}
}

func (g *Group) ID() string             { return g.id }
func (g *Group) Kind() domain.GroupKind { return g.kind }

func (g *Group) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

func (g *Group) Has(id domain.Identity) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.members[id]
	return ok
}

func (g *Group) Host() domain.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.host
}

// Members returns a snapshot of the membership set.
func (g *Group) Members() []domain.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Identity, 0, len(g.members))
	for id := range g.members {
		out = append(out, id)
	}
	return out
}

// MembersExcept returns the membership snapshot minus one identity,
// typically the sender of a broadcast.
func (g *Group) MembersExcept(skip domain.Identity) []domain.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Identity, 0, len(g.members))
	for id := range g.members {
		if id == skip {
			continue
		}
		out = append(out, id)
	}
	return out
}
