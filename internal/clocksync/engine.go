package clocksync

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// windowSize bounds the sliding sample window.
	windowSize = 5
	// staleAfter suspends correction when no sync update arrived
	// recently; drifting on stale data is worse than not correcting.
	staleAfter = 5 * time.Second

	// tightThreshold is the band considered already in sync.
	tightThreshold = 0.05
	// nudgeTier: below it corrections are smooth rate nudges.
	nudgeTier = 0.3
	// seekTier: at or above it the engine seeks outright. A jump this
	// large is audible either way, so correctness beats smoothness.
	seekTier = 0.5

	smoothRateMin = 0.95
	smoothRateMax = 1.05
	strongRateMin = 0.85
	strongRateMax = 1.15
)

type sample struct {
	hostTime     float64 // host-reported position, seconds
	latency      float64 // one-way latency, seconds
	localElapsed float64 // seconds since engine start at receive time
}

// Engine is the per-follower offset estimator and correction loop.
// It is an independent state machine: no cross-follower coordination.
type Engine struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	player Player

	start    time.Time
	window   []sample
	offset   float64
	lastSync time.Time
}

func NewEngine(clock clockwork.Clock, player Player) *Engine {
	return &Engine{
		clock:  clock,
		player: player,
		start:  clock.Now(),
		window: make([]sample, 0, windowSize),
	}
}

// Observe folds one host timing broadcast into the window and
// recomputes the active offset. The median over the window rejects
// single-sample outliers from a transient latency spike without a
// full statistical filter.
func (e *Engine) Observe(hostTime float64, latencyMs float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.window = append(e.window, sample{
		hostTime:     hostTime,
		latency:      latencyMs / 1000,
		localElapsed: e.clock.Since(e.start).Seconds(),
	})
	if len(e.window) > windowSize {
		e.window = e.window[1:]
	}

	offsets := make([]float64, len(e.window))
	for i, s := range e.window {
		// Project the host position forward by the network delay and
		// compare against the local clock baseline.
		offsets[i] = s.hostTime + s.latency - s.localElapsed
	}
	sort.Float64s(offsets)
	e.offset = offsets[len(offsets)/2]
	e.lastSync = e.clock.Now()

	log.Debug().Str("module", "clocksync").Float64("offset", e.offset).Int("window", len(e.window)).Msg("offset updated")
}

// Offset returns the active (median) offset estimate.
func (e *Engine) Offset() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// Tick evaluates the correction policy once. Corrections only apply
// while the player is actively playing and the sync data is fresh;
// otherwise the rate is reset to neutral.
func (e *Engine) Tick() {
	if !e.player.Playing() {
		return
	}

	e.mu.Lock()
	offset := e.offset
	fresh := !e.lastSync.IsZero() && e.clock.Since(e.lastSync) < staleAfter
	e.mu.Unlock()

	if !fresh {
		e.player.SetRate(1.0)
		return
	}

	diff := math.Abs(offset)
	sign := 1.0
	if offset < 0 {
		sign = -1.0
	}

	switch {
	case diff < tightThreshold:
		e.player.SetRate(1.0)
	case diff < nudgeTier:
		rate := 1.0 + sign*math.Min(diff*0.1, 0.05)
		e.player.SetRate(clamp(rate, smoothRateMin, smoothRateMax))
	case diff < seekTier:
		rate := 1.0 + sign*math.Min(diff*0.2, 0.1)
		e.player.SetRate(clamp(rate, strongRateMin, strongRateMax))
	default:
		expected := e.player.Position() + offset
		log.Info().Str("module", "clocksync").Float64("diff", diff).Float64("seek_to", expected).Msg("large offset, seeking")
		e.player.Seek(expected)
		e.player.SetRate(1.0)
	}
}

// Run drives the correction loop as a periodic task with a fixed tick
// rate until the context is cancelled.
func (e *Engine) Run(ctx context.Context, tick time.Duration) {
	ticker := e.clock.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.Tick()
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
