package signal

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/proto"
)

// prober drives the latency handshake for one connection. A probe goes
// out at connect time; every answered probe re-arms the next one, so a
// peer that stops answering stops being probed.
type prober struct {
	clock    clockwork.Clock
	interval time.Duration
	conn     *WsSignalConn

	mu      sync.Mutex
	timer   clockwork.Timer
	stopped bool
}

func newProber(clock clockwork.Clock, interval time.Duration, conn *WsSignalConn) *prober {
	return &prober{clock: clock, interval: interval, conn: conn}
}

func (p *prober) probe() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	b, err := json.Marshal(proto.Ping{Type: proto.TypePing, Timestamp: p.clock.Now().UnixMilli()})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal ping")
		return
	}
	if err := p.conn.Send(b); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("probe dropped")
	}
}

func (p *prober) rearm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = p.clock.AfterFunc(p.interval, p.probe)
}

func (p *prober) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
}

func (ctl *Controller) handlePong(cc *clientConn, p *proto.Pong) {
	latency := ctl.Coord.RecordLatency(cc.id, p.Timestamp)
	log.Debug().Str("module", "signal").Str("identity", string(cc.id)).Float64("latency_ms", latency).Msg("pong")
	cc.prober.rearm()
}
