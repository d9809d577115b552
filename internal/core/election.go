package core

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/domain"
)

// Host election lives on the group so that every transition happens
// under the group lock.
//
// States per group: no host -> settled host -> (transfer | failover)
// -> settled host. Brief inconsistency windows during a transition are
// tolerated by design; a settled non-empty group has exactly one host.

// Join adds a member and settles the host fact. A joiner into a group
// with no settled host takes the seat: this covers the first member,
// a returning host (wasHost) resuming without an election, and a
// bucket whose remaining members all demoted into rooms. A group with
// a live host keeps it; the joiner is a follower.
func (g *Group) Join(id domain.Identity, wasHost bool) (becameHost bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.members[id] = struct{}{}
	if g.host == id {
		return true
	}
	if g.host != "" {
		return false
	}
	g.host = id
	log.Info().Str("module", "core.election").Str("group", g.id).Str("host", string(id)).Bool("restored", wasHost).Msg("host settled")
	return true
}

// Leave removes a member. When the departing member held host and the
// group stays non-empty, an arbitrary remaining member is promoted and
// returned. empty reports that the group is now memberless and should
// be destroyed by the owner.
func (g *Group) Leave(id domain.Identity) (promoted domain.Identity, empty bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.members, id)
	if len(g.members) == 0 {
		g.host = ""
		return "", true
	}
	if g.host != id {
		return "", false
	}
	for member := range g.members {
		promoted = member
		break
	}
	g.host = promoted
	log.Info().Str("module", "core.election").Str("group", g.id).Str("host", string(promoted)).Msg("host promoted after departure")
	return promoted, false
}

// Demote drops the host fact from a member that stays in the group
// but stops broadcasting to it (it moved into a room). An arbitrary
// remaining member is promoted and returned.
func (g *Group) Demote(id domain.Identity) (promoted domain.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.host != id {
		return ""
	}
	g.host = ""
	for member := range g.members {
		if member == id {
			continue
		}
		promoted = member
		break
	}
	g.host = promoted
	if promoted != "" {
		log.Info().Str("module", "core.election").Str("group", g.id).Str("host", string(promoted)).Msg("host promoted after demotion")
	}
	return promoted
}

// Add records membership without electing. Used for the
// network-inferred group of a session whose broadcasts route to a room.
func (g *Group) Add(id domain.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[id] = struct{}{}
}

// Transfer flips the host fact from requester to target atomically.
// No state is mutated on any failure.
func (g *Group) Transfer(requester, target domain.Identity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.host != requester {
		return domain.ErrNotAuthorized
	}
	if _, ok := g.members[target]; !ok {
		return domain.ErrCrossGroupTransfer
	}
	g.host = target
	log.Info().Str("module", "core.election").Str("group", g.id).Str("from", string(requester)).Str("to", string(target)).Msg("host transferred")
	return nil
}
