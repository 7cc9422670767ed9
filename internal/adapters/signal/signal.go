// Package signal is the websocket adapter for the room session gateway.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"watchparty/internal/app"
	"watchparty/internal/core"
	"watchparty/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Gateway    *app.Gateway
	Limiter    *ChatRateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(gw *app.Gateway, limiter *ChatRateLimiter, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{
		Gateway:    gw,
		Limiter:    limiter,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
	}
}

// WsConn wraps one websocket with a buffered outbound queue. TrySend never
// blocks: a full queue means the consumer is too slow and the event is
// dropped for that connection.
type WsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(event core.Event) error {
	b, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal event")
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and binds the connection to the gateway.
// Registered users carry a user_id in the cookie session; everyone else
// joins as a guest keyed by the client token.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	connID := uuid.NewString()
	identity := connIdentity(c)

	conn := &WsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Gateway.Connect(connID, identity, conn, cancel)
	log.Info().Str("module", "signal").Str("conn", connID).Str("identity", identity.ID).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, connID, conn)
}

func connIdentity(c *gin.Context) domain.Identity {
	session := sessions.Default(c)
	if userID, ok := session.Get("user_id").(string); ok && userID != "" {
		return domain.RegisteredIdentity(userID)
	}
	guestID := c.GetString("client_token")
	if guestID == "" {
		guestID = uuid.NewString()
	}
	return domain.GuestIdentity(guestID)
}
