package stream

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSoftThreshold is how many chunks accumulate before
	// playback starts.
	DefaultSoftThreshold = 5
	// DefaultHardCeiling bounds memory; oldest chunks are dropped past it.
	DefaultHardCeiling = 15
	// DefaultLowWater is the queue length below which rebuffering is
	// considered.
	DefaultLowWater = 2
	// DefaultLatencyBound is the delivery latency above which a drained
	// queue re-enters buffering.
	DefaultLatencyBound = 300 * time.Millisecond
)

// Chunk is one relayed media payload with its origin timestamp.
type Chunk struct {
	Payload []byte
	// OriginMillis is the capture timestamp at the host, in unix
	// milliseconds; delivery latency is measured against it.
	OriginMillis int64
}

// JitterBuffer is the follower-side ordered queue between the relay
// and the player. It starts in buffering state, plays once the soft
// threshold is reached, and re-enters buffering only when the queue
// drains below the low-water mark while delivery latency is high.
// The separate enter/leave thresholds keep the state from oscillating
// under mildly unstable latency.
type JitterBuffer struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	queue     []Chunk
	buffering bool
	// lastDelivery is the delivery latency of the most recently pushed
	// chunk; the rebuffer decision keys off it, not off however stale
	// the chunk being popped happens to be.
	lastDelivery time.Duration

	soft         int
	hard         int
	lowWater     int
	latencyBound time.Duration
}

func NewJitterBuffer(clock clockwork.Clock) *JitterBuffer {
	return &JitterBuffer{
		clock:        clock,
		buffering:    true,
		soft:         DefaultSoftThreshold,
		hard:         DefaultHardCeiling,
		lowWater:     DefaultLowWater,
		latencyBound: DefaultLatencyBound,
	}
}

// Push appends a chunk and returns how many old chunks were dropped to
// stay under the hard ceiling. Overflow is logged, never fatal.
func (b *JitterBuffer) Push(c Chunk) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue = append(b.queue, c)
	b.lastDelivery = b.clock.Now().Sub(time.UnixMilli(c.OriginMillis))
	dropped := 0
	if len(b.queue) > b.hard {
		dropped = len(b.queue) - b.hard
		b.queue = b.queue[dropped:]
		log.Warn().Str("module", "stream.jitter").Int("dropped", dropped).Int("ceiling", b.hard).Msg("buffer overflow, trimming oldest")
	}
	return dropped
}

// Pop dequeues the oldest chunk for playback. It returns ok=false
// while buffering (until the soft threshold fills) or when the queue
// is empty.
func (b *JitterBuffer) Pop() (Chunk, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffering {
		if len(b.queue) < b.soft {
			return Chunk{}, false
		}
		b.buffering = false
		log.Debug().Str("module", "stream.jitter").Int("queued", len(b.queue)).Msg("buffer filled, playback resumes")
	}
	if len(b.queue) == 0 {
		return Chunk{}, false
	}

	c := b.queue[0]
	b.queue = b.queue[1:]

	if len(b.queue) < b.lowWater && b.lastDelivery > b.latencyBound {
		b.buffering = true
		log.Info().Str("module", "stream.jitter").Dur("latency", b.lastDelivery).Int("queued", len(b.queue)).Msg("high delivery latency, rebuffering")
	}
	return c, true
}

func (b *JitterBuffer) Buffering() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffering
}

func (b *JitterBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
