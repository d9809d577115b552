package core

// Frame is a raw encoded payload ready for the wire.
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
//
// Two delivery classes exist on purpose: sync traffic (time updates,
// media chunks) is volatile and dropped under backpressure, while
// control and membership traffic must reach the peer as long as the
// transport lives.
type SignalConnection interface {
	// TrySend enqueues a volatile frame, failing fast when the send
	// buffer is full or the connection is gone.
	TrySend(Frame) error
	// Send enqueues a guaranteed frame, waiting up to the configured
	// write timeout for buffer space.
	Send(Frame) error
	Close()
}
