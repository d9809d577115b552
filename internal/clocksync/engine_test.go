package clocksync

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type fakePlayer struct {
	mu      sync.Mutex
	pos     float64
	playing bool

	rates []float64
	seeks []float64
}

func (p *fakePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Seek(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = pos
	p.seeks = append(p.seeks, pos)
}

func (p *fakePlayer) SetRate(r float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates = append(p.rates, r)
}

func (p *fakePlayer) lastRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rates) == 0 {
		return 0
	}
	return p.rates[len(p.rates)-1]
}

func approx(got, want float64) bool { return math.Abs(got-want) < 1e-9 }

// TestMedianOffset verifies the window median rejects outliers: one
// spiked sample among five does not move the estimate.
func TestMedianOffset(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e := NewEngine(clock, &fakePlayer{})

	for _, hostTime := range []float64{0.10, -0.02, 0.30, 0.05, -0.10} {
		e.Observe(hostTime, 0)
	}
	if got := e.Offset(); !approx(got, 0.05) {
		t.Fatalf("offset = %v, want 0.05", got)
	}
}

// TestWindowSlides verifies only the newest five samples count.
func TestWindowSlides(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e := NewEngine(clock, &fakePlayer{})

	e.Observe(100, 0) // pushed out by the next five
	for _, hostTime := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		e.Observe(hostTime, 0)
	}
	if got := e.Offset(); !approx(got, 0.3) {
		t.Fatalf("offset = %v, want 0.3", got)
	}
}

// TestLatencyProjection verifies the one-way latency is folded into
// the offset estimate.
func TestLatencyProjection(t *testing.T) {
	clock := clockwork.NewFakeClock()
	e := NewEngine(clock, &fakePlayer{})

	e.Observe(0.15, 100) // 0.15s position + 0.1s network delay
	if got := e.Offset(); !approx(got, 0.25) {
		t.Fatalf("offset = %v, want 0.25", got)
	}
}

func tickWithOffset(t *testing.T, offset float64) *fakePlayer {
	t.Helper()
	clock := clockwork.NewFakeClock()
	p := &fakePlayer{pos: 10, playing: true}
	e := NewEngine(clock, p)
	e.Observe(offset, 0)
	e.Tick()
	return p
}

// TestCorrectionTiers walks one offset per tier through the policy.
func TestCorrectionTiers(t *testing.T) {
	// In the tight band the rate stays neutral.
	p := tickWithOffset(t, 0.02)
	if !approx(p.lastRate(), 1.0) {
		t.Errorf("tight band rate = %v, want 1.0", p.lastRate())
	}
	if len(p.seeks) != 0 {
		t.Error("tight band seeked")
	}

	// Mid offsets get a smooth nudge.
	p = tickWithOffset(t, 0.25)
	if !approx(p.lastRate(), 1.025) {
		t.Errorf("smooth rate = %v, want 1.025", p.lastRate())
	}

	// Larger offsets get a stronger nudge, symmetric in sign.
	p = tickWithOffset(t, 0.45)
	if !approx(p.lastRate(), 1.09) {
		t.Errorf("strong rate = %v, want 1.09", p.lastRate())
	}
	p = tickWithOffset(t, -0.45)
	if !approx(p.lastRate(), 0.91) {
		t.Errorf("strong rate behind = %v, want 0.91", p.lastRate())
	}

	// At the seek tier the engine jumps and resets the rate.
	p = tickWithOffset(t, 0.6)
	if len(p.seeks) != 1 || !approx(p.seeks[0], 10.6) {
		t.Fatalf("seeks = %v, want one seek to 10.6", p.seeks)
	}
	if !approx(p.lastRate(), 1.0) {
		t.Errorf("rate after seek = %v, want 1.0", p.lastRate())
	}
}

// TestStaleDataSuspendsCorrection verifies corrections stop on stale
// sync data instead of drifting on it.
func TestStaleDataSuspendsCorrection(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := &fakePlayer{pos: 10, playing: true}
	e := NewEngine(clock, p)

	e.Observe(0.45, 0)
	clock.Advance(6 * time.Second)
	e.Tick()

	if !approx(p.lastRate(), 1.0) {
		t.Errorf("rate = %v on stale data, want 1.0", p.lastRate())
	}
	if len(p.seeks) != 0 {
		t.Error("seeked on stale data")
	}
}

// TestPausedPlayerUntouched verifies no correction applies while the
// player is not actively playing.
func TestPausedPlayerUntouched(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := &fakePlayer{pos: 10}
	e := NewEngine(clock, p)

	e.Observe(0.6, 0)
	e.Tick()

	if len(p.rates) != 0 || len(p.seeks) != 0 {
		t.Error("paused player was corrected")
	}
}
