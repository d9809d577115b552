package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/dkeye/soundsync/internal/follower"
	"github.com/dkeye/soundsync/internal/stream"
)

// wallPlayer tracks playback position against the wall clock. It stands
// in for a real audio sink and answers the sync engine honestly: rate
// changes and seeks move the simulated position exactly as an audio
// element would.
type wallPlayer struct {
	mu      sync.Mutex
	pos     float64
	rate    float64
	playing bool
	last    time.Time
}

func newWallPlayer() *wallPlayer {
	return &wallPlayer{rate: 1.0, last: time.Now()}
}

func (p *wallPlayer) advance() {
	now := time.Now()
	if p.playing {
		p.pos += now.Sub(p.last).Seconds() * p.rate
	}
	p.last = now
}

func (p *wallPlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	return p.pos
}

func (p *wallPlayer) Seek(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	p.pos = pos
}

func (p *wallPlayer) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	p.rate = rate
}

func (p *wallPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *wallPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	p.playing = true
}

func (p *wallPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	p.playing = false
}

func main() {
	var (
		serverURL = flag.String("server", "ws://localhost:8080/api/ws/signal", "signal endpoint URL")
		identity  = flag.String("identity", "", "stable client identity (random when empty)")
		roomCode  = flag.String("room", "", "room code to rejoin on connect")
		wasHost   = flag.Bool("was-host", false, "claim prior host status on reconnect")
		debug     = flag.Bool("debug", false, "verbose logging")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *identity == "" {
		*identity = uuid.NewString()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := follower.New(clockwork.NewRealClock(), newWallPlayer(), follower.Options{
		ServerURL: *serverURL,
		Identity:  *identity,
		RoomCode:  *roomCode,
		WasHost:   *wasHost,
		OnChunk: func(c stream.Chunk) {
			log.Debug().Int("bytes", len(c.Payload)).Int64("origin_ms", c.OriginMillis).Msg("chunk")
		},
	})

	if err := client.Run(ctx); err != nil {
		log.Error().Err(err).Msg("follower exited")
		os.Exit(1)
	}
}
