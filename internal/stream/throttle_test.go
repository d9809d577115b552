package stream

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestThrottle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	th := NewThrottle(clock, 50*time.Millisecond)

	if !th.Allow() {
		t.Fatal("first chunk rejected")
	}
	if th.Allow() {
		t.Fatal("chunk inside interval allowed")
	}

	clock.Advance(49 * time.Millisecond)
	if th.Allow() {
		t.Fatal("chunk allowed 1ms early")
	}

	clock.Advance(1 * time.Millisecond)
	if !th.Allow() {
		t.Fatal("chunk rejected after interval elapsed")
	}
	if th.Allow() {
		t.Fatal("interval did not re-arm after a forwarded chunk")
	}
}
