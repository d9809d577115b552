// Package clocksync keeps a follower's playback clock aligned with the
// host's authoritative timeline. It estimates the offset from host
// broadcasts plus measured latency and applies tiered corrections to
// an opaque player.
package clocksync

// Player is the opaque playback capability corrections are applied to.
// Positions are seconds, rate 1.0 is neutral.
type Player interface {
	Position() float64
	Seek(pos float64)
	SetRate(rate float64)
	Playing() bool
}
