package stream

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func freshChunk(clock clockwork.Clock, seq byte) Chunk {
	return Chunk{Payload: []byte{seq}, OriginMillis: clock.Now().UnixMilli()}
}

func lateChunk(clock clockwork.Clock, seq byte) Chunk {
	return Chunk{Payload: []byte{seq}, OriginMillis: clock.Now().Add(-time.Second).UnixMilli()}
}

// TestBufferUntilSoftThreshold verifies nothing plays until the soft
// threshold fills, and chunks come out in arrival order afterwards.
func TestBufferUntilSoftThreshold(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewJitterBuffer(clock)

	if _, ok := b.Pop(); ok {
		t.Fatal("empty buffer released a chunk")
	}
	for i := 0; i < DefaultSoftThreshold-1; i++ {
		b.Push(freshChunk(clock, byte(i)))
	}
	if _, ok := b.Pop(); ok {
		t.Fatal("released a chunk below the soft threshold")
	}
	if !b.Buffering() {
		t.Fatal("left buffering state early")
	}

	b.Push(freshChunk(clock, 9))
	c, ok := b.Pop()
	if !ok {
		t.Fatal("no chunk released after threshold filled")
	}
	if c.Payload[0] != 0 {
		t.Errorf("released chunk %d first, want 0", c.Payload[0])
	}
	if b.Buffering() {
		t.Error("still buffering after threshold filled")
	}
}

// TestHardCeilingTrimsOldest verifies overflow drops the oldest chunks
// and reports the count.
func TestHardCeilingTrimsOldest(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewJitterBuffer(clock)

	dropped := 0
	for i := 0; i < DefaultHardCeiling+5; i++ {
		dropped += b.Push(freshChunk(clock, byte(i)))
	}
	if dropped != 5 {
		t.Fatalf("dropped = %d, want 5", dropped)
	}
	if b.Len() != DefaultHardCeiling {
		t.Fatalf("len = %d, want %d", b.Len(), DefaultHardCeiling)
	}

	c, ok := b.Pop()
	if !ok {
		t.Fatal("no chunk released")
	}
	if c.Payload[0] != 5 {
		t.Errorf("oldest surviving chunk = %d, want 5", c.Payload[0])
	}
}

// TestLowQueueAloneDoesNotRebuffer verifies the hysteresis: draining
// below the low-water mark with healthy delivery latency keeps
// playback running.
func TestLowQueueAloneDoesNotRebuffer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewJitterBuffer(clock)

	for i := 0; i < DefaultSoftThreshold; i++ {
		b.Push(freshChunk(clock, byte(i)))
	}
	for i := 0; i < DefaultSoftThreshold; i++ {
		if _, ok := b.Pop(); !ok {
			t.Fatalf("pop %d failed", i)
		}
	}
	if b.Buffering() {
		t.Fatal("rebuffered with low delivery latency")
	}

	// A late next chunk still plays immediately; rebuffering is only
	// entered on a drained queue with high latency, checked at pop.
	b.Push(freshChunk(clock, 50))
	if _, ok := b.Pop(); !ok {
		t.Fatal("chunk held back without a rebuffer condition")
	}
}

// TestFreshArrivalsPreventRebuffer verifies the rebuffer decision keys
// off the most recently delivered chunk. Draining a queue of stale
// chunks stays in playback as long as new arrivals land promptly.
func TestFreshArrivalsPreventRebuffer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewJitterBuffer(clock)

	for i := 0; i < DefaultSoftThreshold-1; i++ {
		b.Push(lateChunk(clock, byte(i)))
	}
	b.Push(freshChunk(clock, 9))

	for i := 0; i < DefaultSoftThreshold; i++ {
		if _, ok := b.Pop(); !ok {
			t.Fatalf("pop %d failed", i)
		}
		if b.Buffering() {
			t.Fatalf("rebuffered on pop %d despite a fresh last arrival", i)
		}
	}
}

// TestRebufferOnHighLatencyDrain verifies a drained queue with stale
// chunks re-enters buffering until the soft threshold fills again.
func TestRebufferOnHighLatencyDrain(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewJitterBuffer(clock)

	for i := 0; i < DefaultSoftThreshold; i++ {
		b.Push(lateChunk(clock, byte(i)))
	}

	// Pops run until the queue is below low-water; the stale delivery
	// latency then flips the state back to buffering.
	popped := 0
	for !b.Buffering() || popped == 0 {
		if _, ok := b.Pop(); !ok {
			break
		}
		popped++
	}
	if !b.Buffering() {
		t.Fatal("never re-entered buffering on stale drain")
	}
	if b.Len() >= DefaultLowWater {
		t.Fatalf("rebuffered with %d queued, low-water is %d", b.Len(), DefaultLowWater)
	}

	if _, ok := b.Pop(); ok {
		t.Fatal("released a chunk while rebuffering")
	}
	for i := 0; b.Len() < DefaultSoftThreshold; i++ {
		b.Push(freshChunk(clock, byte(100+i)))
	}
	if _, ok := b.Pop(); !ok {
		t.Fatal("no chunk released after refill")
	}
}
