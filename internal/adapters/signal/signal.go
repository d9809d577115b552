package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/app"
	"github.com/dkeye/soundsync/internal/config"
	"github.com/dkeye/soundsync/internal/core"
	"github.com/dkeye/soundsync/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
	ErrWriteTimeout = errors.New("write timeout")
)

type Controller struct {
	Coord *app.Coordinator
	Clock clockwork.Clock
	Cfg   *config.Config

	limiter *RoomRateLimiter
}

func NewController(coord *app.Coordinator, clock clockwork.Clock, cfg *config.Config) *Controller {
	return &Controller{
		Coord:   coord,
		Clock:   clock,
		Cfg:     cfg,
		limiter: NewRoomRateLimiter(10, time.Minute),
	}
}

type WsSignalConn struct {
	conn         *websocket.Conn
	send         chan core.Frame
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// TrySend enqueues a volatile frame. Sync traffic lands here: a slow
// reader drops frames instead of stalling the relay.
func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Send enqueues a guaranteed frame, waiting up to the write timeout
// for buffer space.
func (c *WsSignalConn) Send(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	}
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// clientConn bundles one live connection with its per-connection state.
type clientConn struct {
	id     domain.Identity
	conn   *WsSignalConn
	prober *prober
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	identity := c.Query("identity")
	if identity == "" {
		identity = c.GetString("client_token")
	}
	if identity == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if len(identity) > domain.MaxIdentityLen {
		identity = identity[:domain.MaxIdentityLen]
	}
	wasHost := c.Query("wasHost") == "true"
	roomCode := strings.ToUpper(c.Query("roomCode"))

	log.Info().Str("module", "signal").Str("identity", identity).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &WsSignalConn{
		conn:         ws,
		send:         make(chan core.Frame, ctl.Cfg.SendBuffer),
		writeTimeout: ctl.Cfg.WriteTimeout,
	}

	id := domain.Identity(identity)
	cc := &clientConn{
		id:     id,
		conn:   conn,
		prober: newProber(ctl.Clock, ctl.Cfg.ProbeInterval, conn),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Connect(id, conn, wasHost, roomCode, c.ClientIP())

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cc, cancel)

	// First latency probe right away; the rest re-arm per pong.
	cc.prober.probe()
}
