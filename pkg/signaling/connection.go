package signaling

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Conn is the framed transport a Connection wraps. *websocket.Conn
// satisfies it. WriteControl and Close may be called concurrently with the
// other methods; everything else is used from one goroutine at a time.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
	RemoteAddr() net.Addr
}

// Liveness states of a connection.
const (
	stateAlive int32 = iota
	stateAwaiting
)

// Connection is the hub's handle for one client.
type Connection struct {
	id          string
	conn        Conn
	hub         *Hub
	userAgent   string
	connectedAt time.Time
	limiter     *rate.Limiter

	// roomID is guarded by hub.mu so it moves together with the registry.
	roomID string

	state atomic.Int32

	// send is closed exactly once, under sendMu, when the hub drops the
	// connection. Producers check closed under the same lock.
	send   chan []byte
	sendMu sync.Mutex
	closed bool
}

func newConnection(id string, conn Conn, hub *Hub, userAgent string) *Connection {
	c := &Connection{
		id:          id,
		conn:        conn,
		hub:         hub,
		userAgent:   userAgent,
		connectedAt: time.Now(),
		limiter:     newLimiter(hub.opts.RateLimitPerSec, hub.opts.RateLimitBurst),
		send:        make(chan []byte, hub.opts.SendBuffer),
	}
	c.state.Store(stateAlive)
	return c
}

// newLimiter returns nil when limiting is disabled.
func newLimiter(perSec float64, burst int) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

// ID returns the connection identity.
func (c *Connection) ID() string { return c.id }

func (c *Connection) UserAgent() string { return c.userAgent }

// RoomID returns the room the connection is currently in, or "".
func (c *Connection) RoomID() string {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.roomID
}

func (c *Connection) remoteAddr() string {
	if c.conn == nil || c.conn.RemoteAddr() == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// enqueue hands data to the write pump without blocking. It reports false
// when the connection is closed or its queue is full.
func (c *Connection) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend stops the write pump. Safe to call more than once.
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Connection) isClosed() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.closed
}

func (c *Connection) markAlive() {
	c.state.Store(stateAlive)
}

// beginProbe moves an alive connection to awaiting. It returns false if the
// previous probe is still unanswered.
func (c *Connection) beginProbe() bool {
	return c.state.CompareAndSwap(stateAlive, stateAwaiting)
}

func (c *Connection) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.hub.opts.WriteWait))
}

// readPump delivers inbound frames to the hub until the transport fails.
// It is the only reader of the connection.
func (c *Connection) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.markAlive()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.logger.Warn("connection read failed", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
		c.hub.HandleMessage(c, data)
	}
}

// writePump drains the send queue onto the transport. It is the only writer
// of data frames.
func (c *Connection) writePump() {
	defer func() { _ = c.conn.Close() }()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.hub.logger.Debug("connection write failed", zap.String("client_id", c.id), zap.Error(err))
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
