package clocksync

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// predictIgnore: drift below it is left alone.
	predictIgnore = 0.1
	// predictNudge: below it a fixed rate nudge corrects the drift.
	predictNudge = 0.5
	// predictSeek: below it seeks are probabilistically throttled to
	// avoid a seek storm when small corrections would fire every tick;
	// at or above it the seek is unconditional.
	predictSeek = 2.0

	predictRateStep    = 0.02
	predictRevertAfter = 800 * time.Millisecond
	predictSeekChance  = 0.2
)

// Predictive is the coarser sync mode for sparse timing updates: in
// between updates the expected position is dead-reckoned from the last
// known position plus elapsed local time.
type Predictive struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	player Player
	rand   func() float64

	hostTime  float64
	updatedAt time.Time
	seen      bool
	revert    clockwork.Timer
}

func NewPredictive(clock clockwork.Clock, player Player) *Predictive {
	return &Predictive{
		clock:  clock,
		player: player,
		rand:   rand.Float64,
	}
}

// Update records the host's last known position.
func (p *Predictive) Update(hostTime float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hostTime = hostTime
	p.updatedAt = p.clock.Now()
	p.seen = true
}

// Tick dead-reckons the expected position and corrects the drift by
// tier.
func (p *Predictive) Tick() {
	if !p.player.Playing() {
		return
	}

	p.mu.Lock()
	if !p.seen {
		p.mu.Unlock()
		return
	}
	predicted := p.hostTime + p.clock.Since(p.updatedAt).Seconds()
	p.mu.Unlock()

	drift := p.player.Position() - predicted
	absDrift := math.Abs(drift)

	switch {
	case absDrift < predictIgnore:
		// In tolerance; adjusting would only add churn.
	case absDrift < predictNudge:
		rate := 1.0 + predictRateStep
		if drift > 0 {
			rate = 1.0 - predictRateStep
		}
		p.player.SetRate(rate)
		p.armRevert()
	case absDrift < predictSeek:
		if p.rand() < predictSeekChance {
			log.Debug().Str("module", "clocksync.predictive").Float64("drift", drift).Msg("throttled seek")
			p.player.Seek(predicted)
		}
	default:
		log.Info().Str("module", "clocksync.predictive").Float64("drift", drift).Msg("emergency seek")
		p.player.Seek(predicted)
	}
}

// armRevert schedules the rate back to neutral after a short window,
// so a brief nudge does not turn into a permanent speed change.
func (p *Predictive) armRevert() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revert != nil {
		p.revert.Stop()
	}
	p.revert = p.clock.AfterFunc(predictRevertAfter, func() {
		p.player.SetRate(1.0)
	})
}

// Run drives the predictive loop at a fixed tick rate.
func (p *Predictive) Run(ctx context.Context, tick time.Duration) {
	ticker := p.clock.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.Tick()
		}
	}
}
