package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/core"
	"github.com/dkeye/soundsync/internal/domain"
	"github.com/dkeye/soundsync/internal/proto"
)

// hostGroup authorizes a host-only operation. Non-host attempts are
// dropped silently: a well-behaved client never offers the action to
// non-hosts, so there is nothing useful to tell it.
func (c *Coordinator) hostGroup(id domain.Identity) (*core.Group, bool) {
	sess, ok := c.Store.Get(id)
	if !ok {
		return nil, false
	}
	g := c.Groups.Resolve(sess)
	if g.Host() != id {
		log.Warn().Str("module", "app.relay").Str("identity", string(id)).Str("group", g.ID()).Msg("non-host attempted host-only action, dropped")
		return nil, false
	}
	return g, true
}

// RelayControl forwards a host playback command verbatim to the group,
// excluding the sender. Control traffic is guaranteed-class.
func (c *Coordinator) RelayControl(id domain.Identity, p *proto.AudioControl) {
	g, ok := c.hostGroup(id)
	if !ok {
		return
	}
	msg := proto.ControlBroadcast{
		Type:    proto.TypeAudioControl,
		Action:  p.Action,
		FileURL: p.FileURL,
		Time:    p.Time,
	}
	log.Info().Str("module", "app.relay").Str("host", string(id)).Str("action", p.Action).Msg("relaying audio control")
	for _, rcpt := range g.MembersExcept(id) {
		c.send(rcpt, msg)
	}
}

// RelayTimeUpdate fans out the host's authoritative position, enriched
// per recipient with that follower's measured latency and the delay the
// message accumulated before relay. Sync traffic is volatile-class:
// a dropped update is cheaper than a late one.
func (c *Coordinator) RelayTimeUpdate(id domain.Identity, p *proto.AudioTimeUpdate) {
	g, ok := c.hostGroup(id)
	if !ok {
		return
	}

	serverTimestamp := c.clock.Now().UnixMilli()
	var serverDelay int64
	if p.ClientTimestamp != 0 {
		serverDelay = serverTimestamp - p.ClientTimestamp
	}

	for _, rcpt := range g.MembersExcept(id) {
		rcptSess, ok := c.Store.Get(rcpt)
		if !ok {
			continue
		}
		c.sendVolatile(rcpt, proto.TimeBroadcast{
			Type:            proto.TypeAudioTimeUpdate,
			CurrentTime:     p.CurrentTime,
			ClientTimestamp: p.ClientTimestamp,
			ServerTimestamp: serverTimestamp,
			LatencyMs:       rcptSess.LatencyMs,
			ServerDelayMs:   serverDelay,
			Precision:       p.Precision,
		})
	}
}

// RelayChunk forwards one captured media chunk, throttled at the
// source to a fixed minimum interval regardless of capturer cadence.
func (c *Coordinator) RelayChunk(id domain.Identity, p *proto.AudioStream) {
	g, ok := c.hostGroup(id)
	if !ok {
		return
	}
	if !c.throttleFor(id).Allow() {
		return
	}

	serverTimestamp := c.clock.Now().UnixMilli()
	var serverDelay int64
	if p.Timestamp != 0 {
		serverDelay = serverTimestamp - p.Timestamp
	}
	msg := proto.StreamBroadcast{
		Type:              proto.TypeAudioStream,
		AudioChunkEncoded: p.AudioChunkEncoded,
		Timestamp:         p.Timestamp,
		ServerTimestamp:   serverTimestamp,
		ServerDelayMs:     serverDelay,
	}
	for _, rcpt := range g.MembersExcept(id) {
		c.sendVolatile(rcpt, msg)
	}
}

// RelayStreamLifecycle announces tab-stream start/stop to the group.
func (c *Coordinator) RelayStreamLifecycle(id domain.Identity, msgType string) {
	g, ok := c.hostGroup(id)
	if !ok {
		return
	}
	log.Info().Str("module", "app.relay").Str("host", string(id)).Str("event", msgType).Msg("stream lifecycle")
	for _, rcpt := range g.MembersExcept(id) {
		c.send(rcpt, proto.StreamLifecycle{Type: msgType})
	}
}

// RecordLatency stores one-way latency (RTT/2) from a completed probe
// and echoes it back for display. No smoothing here; smoothing belongs
// to the follower's sync engine.
func (c *Coordinator) RecordLatency(id domain.Identity, probeSentMillis int64) float64 {
	rtt := c.clock.Now().UnixMilli() - probeSentMillis
	latency := float64(rtt) / 2
	c.Store.SetLatency(id, latency)
	log.Debug().Str("module", "app.relay").Str("identity", string(id)).Float64("latency_ms", latency).Msg("latency measured")
	c.send(id, proto.PongResponse{Type: proto.TypePongResponse, LatencyMs: latency})
	return latency
}

// RunDiscovery periodically broadcasts the user list of every network
// bucket with more than one member, so idle peers find each other.
func (c *Coordinator) RunDiscovery(ctx context.Context) {
	ticker := c.clock.NewTicker(c.opts.DiscoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			for _, network := range c.Groups.Networks() {
				if network.Count() < 2 {
					continue
				}
				msg := proto.AutoDiscovery{
					Type:      proto.TypeAutoDiscovery,
					NetworkID: network.ID(),
					Users:     c.usersOf(network),
				}
				for _, id := range network.Members() {
					c.send(id, msg)
				}
			}
		}
	}
}
