// Package follower implements the client side of the signal protocol:
// it keeps a local player locked to the host's playback clock and
// drains the relayed media stream through a jitter buffer.
package follower

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/clocksync"
	"github.com/dkeye/soundsync/internal/stream"
)

// Player extends the sync engine's player contract with the transport
// controls a relayed host command can trigger.
type Player interface {
	clocksync.Player
	Play()
	Pause()
}

const (
	defaultTick = 200 * time.Millisecond

	// After this long without a time update the correction loop hands
	// over to dead reckoning.
	predictAfter = 2 * time.Second
)

type Options struct {
	ServerURL string
	Identity  string
	RoomCode  string
	WasHost   bool
	Tick      time.Duration

	// OnChunk receives decoded media chunks as the jitter buffer
	// releases them. Nil discards them.
	OnChunk func(stream.Chunk)
}

type Client struct {
	clock  clockwork.Clock
	player Player
	opts   Options

	engine  *clocksync.Engine
	predict *clocksync.Predictive
	buffer  *stream.JitterBuffer

	mu         sync.Mutex
	conn       *websocket.Conn
	latency    float64
	isHost     bool
	lastUpdate time.Time
}

func New(clock clockwork.Clock, player Player, opts Options) *Client {
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	return &Client{
		clock:   clock,
		player:  player,
		opts:    opts,
		engine:  clocksync.NewEngine(clock, player),
		predict: clocksync.NewPredictive(clock, player),
		buffer:  stream.NewJitterBuffer(clock),
	}
}

// IsHost reports the role the server last assigned.
func (c *Client) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

// Latency returns the last one-way latency the server measured, in ms.
func (c *Client) Latency() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// Run dials the server and blocks until the connection drops or ctx is
// cancelled.
func (c *Client) Run(ctx context.Context) error {
	u, err := url.Parse(c.opts.ServerURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("identity", c.opts.Identity)
	if c.opts.RoomCode != "" {
		q.Set("roomCode", c.opts.RoomCode)
	}
	if c.opts.WasHost {
		q.Set("wasHost", "true")
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer conn.Close()

	log.Info().Str("module", "follower").Str("server", u.Host).Str("identity", c.opts.Identity).Msg("connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.tickLoop(ctx)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.handle(data)
	}
}

// tickLoop drives sync correction and jitter buffer drainage. Fresh
// time updates feed the median correction loop; once they go quiet the
// predictive loop takes over on the last known host position.
func (c *Client) tickLoop(ctx context.Context) {
	ticker := c.clock.NewTicker(c.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.mu.Lock()
			last := c.lastUpdate
			c.mu.Unlock()

			if !last.IsZero() && c.clock.Since(last) > predictAfter {
				c.predict.Tick()
			} else {
				c.engine.Tick()
			}
			c.drain()
		}
	}
}

func (c *Client) drain() {
	for {
		chunk, ok := c.buffer.Pop()
		if !ok {
			return
		}
		if c.opts.OnChunk != nil {
			c.opts.OnChunk(chunk)
		}
	}
}
