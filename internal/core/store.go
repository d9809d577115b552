package core

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/domain"
)

type entry struct {
	sess *domain.Session
	conn SignalConnection
	// removal is armed on disconnect and disarmed on reconnect.
	removal clockwork.Timer
}

// Store holds one live session per identity. Callers only ever see
// value snapshots; all mutation goes through store methods.
type Store struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[domain.Identity]*entry
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:   clock,
		entries: make(map[domain.Identity]*entry),
	}
}

// Upsert registers a connecting identity. On a known identity it
// preserves role/group and only replaces the transport handle and
// origin, which is what makes reconnection invisible to the rest of
// the system. The previous transport, if any, is closed.
func (s *Store) Upsert(id domain.Identity, conn SignalConnection, declaredRoomCode, originAddr string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		if e.removal != nil {
			e.removal.Stop()
			e.removal = nil
		}
		if e.conn != nil && e.conn != conn {
			e.conn.Close()
		}
		e.conn = conn
		e.sess.OriginAddr = originAddr
		e.sess.NetworkID = NetworkID(originAddr)
		if declaredRoomCode != "" {
			e.sess.RoomCode = declaredRoomCode
		}
		log.Info().Str("module", "core.store").Str("identity", string(id)).Msg("reconnected session")
		return *e.sess, true
	}

	sess := &domain.Session{
		Identity:   id,
		Role:       domain.RoleFollower,
		OriginAddr: originAddr,
		NetworkID:  NetworkID(originAddr),
		RoomCode:   declaredRoomCode,
	}
	s.entries[id] = &entry{sess: sess, conn: conn}
	log.Info().Str("module", "core.store").Str("identity", string(id)).Str("network", sess.NetworkID).Msg("created session")
	return *sess, false
}

func (s *Store) Get(id domain.Identity) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return *e.sess, true
	}
	return domain.Session{}, false
}

func (s *Store) Conn(id domain.Identity) (SignalConnection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok && e.conn != nil {
		return e.conn, true
	}
	return nil, false
}

func (s *Store) SetRole(id domain.Identity, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.sess.Role = role
	}
}

func (s *Store) SetLatency(id domain.Identity, ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.sess.LatencyMs = ms
	}
}

func (s *Store) SetRoomCode(id domain.Identity, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.sess.RoomCode = code
	}
}

// Remove deletes the session immediately, stopping any pending timer.
func (s *Store) Remove(id domain.Identity) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.Session{}, false
	}
	if e.removal != nil {
		e.removal.Stop()
	}
	delete(s.entries, id)
	log.Info().Str("module", "core.store").Str("identity", string(id)).Msg("removed session")
	return *e.sess, true
}

// MarkPendingRemoval schedules eviction after the grace period. The
// eviction only fires if the identity has not reconnected in the
// meantime: a reconnect replaces the transport handle, which is the
// liveness check here, and also disarms the timer outright.
func (s *Store) MarkPendingRemoval(id domain.Identity, conn SignalConnection, after time.Duration, onExpire func(domain.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return
	}
	if e.removal != nil {
		e.removal.Stop()
	}
	e.removal = s.clock.AfterFunc(after, func() {
		s.expire(id, conn, onExpire)
	})
	log.Debug().Str("module", "core.store").Str("identity", string(id)).Dur("grace", after).Msg("pending removal scheduled")
}

func (s *Store) expire(id domain.Identity, conn SignalConnection, onExpire func(domain.Session)) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.conn != conn {
		// Reconnected (or already gone) before the grace elapsed.
		s.mu.Unlock()
		return
	}
	sess := *e.sess
	delete(s.entries, id)
	s.mu.Unlock()

	log.Info().Str("module", "core.store").Str("identity", string(id)).Msg("grace elapsed, session evicted")
	if onExpire != nil {
		onExpire(sess)
	}
}

func (s *Store) CancelPendingRemoval(id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok && e.removal != nil {
		e.removal.Stop()
		e.removal = nil
	}
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
