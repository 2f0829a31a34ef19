package signaling

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/config"
	"github.com/LingByte/LingSignal/pkg/constants"
	"github.com/LingByte/LingSignal/pkg/metrics"
	"github.com/LingByte/LingSignal/pkg/protocol"
)

// Options configures a Hub. Zero fields take the package defaults.
type Options struct {
	PingInterval    time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	SendBuffer      int
	RateLimitPerSec float64
	RateLimitBurst  int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// NewID generates connection identities; uuid.NewString by default.
	NewID func() string
}

// OptionsFromConfig copies the signaling section of cfg.
func OptionsFromConfig(cfg config.SignalingConfig) Options {
	return Options{
		PingInterval:    cfg.PingInterval,
		WriteWait:       cfg.WriteWait,
		MaxMessageSize:  cfg.MaxMessageSize,
		SendBuffer:      cfg.SendBuffer,
		RateLimitPerSec: cfg.RateLimitPerSec,
		RateLimitBurst:  cfg.RateLimitBurst,
	}
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = constants.DefaultPingInterval
	}
	if o.WriteWait <= 0 {
		o.WriteWait = constants.DefaultWriteWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = constants.DefaultMaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = constants.DefaultSendBuffer
	}
	if o.RateLimitPerSec > 0 && o.RateLimitBurst <= 0 {
		o.RateLimitBurst = int(o.RateLimitPerSec) + 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Stats is the health view of a hub.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Hub owns the live connection set and the room registry.
//
// mu serializes every change that touches more than one of: the live set,
// a connection's roomID, and the registry. Outbound messages are enqueued
// while mu is held, so each peer observes events in the order the hub
// applied them. Enqueueing never blocks.
type Hub struct {
	mu       sync.Mutex
	conns    map[string]*Connection
	closed   bool
	registry *Registry
	router   *Router
	monitor  *Monitor

	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHub creates a hub. Call Run to start liveness probing.
func NewHub(opts Options) *Hub {
	opts = opts.withDefaults()
	h := &Hub{
		conns:    make(map[string]*Connection),
		registry: NewRegistry(opts.Logger.Named("registry")),
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	h.router = newRouter(h)
	h.monitor = newMonitor(h, opts.PingInterval, opts.Logger.Named("liveness"))
	return h
}

// Registry exposes the hub's registry for read-only inspection.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run starts the liveness monitor and blocks until ctx is done, then closes
// the hub.
func (h *Hub) Run(ctx context.Context) error {
	h.monitor.Start()
	<-ctx.Done()
	h.Close()
	return ctx.Err()
}

// Serve registers conn and runs its pumps. It returns when the connection
// is gone.
func (h *Hub) Serve(conn Conn, userAgent string) error {
	c, err := h.Accept(conn, userAgent)
	if err != nil {
		_ = conn.Close()
		return err
	}
	go c.writePump()
	c.readPump()
	return nil
}

// Accept registers a new connection and greets it with its identity. The
// caller is responsible for running the pumps; Serve does both.
func (h *Hub) Accept(conn Conn, userAgent string) (*Connection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	id := h.opts.NewID()
	if _, taken := h.conns[id]; taken {
		return nil, fmt.Errorf("duplicate connection id %q", id)
	}

	c := newConnection(id, conn, h, userAgent)
	h.conns[id] = c
	h.metrics.SetConnections(len(h.conns))
	h.sendLocked(c, protocol.NewConnected(id))

	h.logger.Info("client connected",
		zap.String("client_id", id),
		zap.String("remote", c.remoteAddr()),
		zap.String("user_agent", userAgent),
		zap.Int("connections", len(h.conns)))
	return c, nil
}

// HandleMessage processes one inbound frame from c. A panic while handling
// is logged and does not affect other connections.
func (h *Hub) HandleMessage(c *Connection, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling message",
				zap.String("client_id", c.id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	if c.limiter != nil && !c.limiter.Allow() {
		h.replyError(c, ErrRateLimited)
		return
	}
	h.router.Dispatch(c, data)
}

// Disconnect removes c from its room and from the live set. Peers left in
// the room receive user-left. Calling it again for the same connection does
// nothing.
func (h *Hub) Disconnect(c *Connection) {
	h.mu.Lock()
	if current, ok := h.conns[c.id]; !ok || current != c {
		h.mu.Unlock()
		return
	}
	roomID := c.roomID
	h.leaveLocked(c, roomID)
	delete(h.conns, c.id)
	remaining := len(h.conns)
	h.metrics.SetConnections(remaining)
	h.mu.Unlock()

	c.closeSend()
	h.logger.Info("client disconnected",
		zap.String("client_id", c.id),
		zap.String("room_id", roomID),
		zap.Duration("duration", time.Since(c.connectedAt)),
		zap.Int("connections", remaining))
}

// evict force-closes an unresponsive connection and cleans it up.
func (h *Hub) evict(c *Connection) {
	h.logger.Info("evicting unresponsive client", zap.String("client_id", c.id))
	h.metrics.ObserveEviction()
	_ = c.conn.Close()
	h.Disconnect(c)
}

// Send delivers msg to the connection with the given id. Delivery to a
// connection that is gone or closing is silently skipped.
func (h *Hub) Send(id string, msg protocol.Outbound) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[id]
	if !ok {
		return false
	}
	return h.sendLocked(c, msg)
}

// Connections returns a snapshot of the live set.
func (h *Hub) Connections() []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

// Connection looks up a live connection by id.
func (h *Hub) Connection(id string) (*Connection, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[id]
	return c, ok
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Rooms: h.registry.Len(), Connections: len(h.conns)}
}

// Close stops probing, closes every transport and empties the hub.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	h.monitor.Stop()
	for _, roomID := range h.registry.Rooms() {
		if info, ok := h.registry.Get(roomID); ok {
			h.logger.Debug("closing room",
				zap.String("room_id", info.ID),
				zap.Strings("members", info.Members),
				zap.Duration("age", time.Since(info.CreatedAt)))
		}
	}
	for _, c := range h.Connections() {
		_ = c.conn.Close()
		h.Disconnect(c)
	}
	h.logger.Info("hub closed")
}

// isLiveLocked reports whether c is still registered.
func (h *Hub) isLiveLocked(c *Connection) bool {
	current, ok := h.conns[c.id]
	return ok && current == c
}

// leaveLocked takes c out of roomID, clears its room and tells the
// remaining members. It does nothing unless c is currently in roomID.
func (h *Hub) leaveLocked(c *Connection, roomID string) bool {
	if roomID == "" || c.roomID != roomID {
		return false
	}
	remaining, removed := h.registry.Leave(roomID, c.id)
	c.roomID = ""
	h.metrics.SetRooms(h.registry.Len())
	if !removed {
		return false
	}
	if len(remaining) > 0 {
		h.broadcastLocked(roomID, c.id, protocol.NewUserLeft(c.id, roomID, remaining))
	}
	return true
}

// broadcastLocked sends msg to every member of roomID except exclude.
func (h *Hub) broadcastLocked(roomID, exclude string, msg protocol.Outbound) {
	data, err := protocol.Encode(msg)
	if err != nil {
		h.logger.Error("encode broadcast failed", zap.String("type", msg.MessageType()), zap.Error(err))
		return
	}
	h.broadcastRawLocked(roomID, exclude, data)
}

func (h *Hub) broadcastRawLocked(roomID, exclude string, data []byte) int {
	delivered := 0
	for _, id := range h.registry.MembersOf(roomID) {
		if id == exclude {
			continue
		}
		peer, ok := h.conns[id]
		if !ok {
			continue
		}
		if h.sendRawLocked(peer, data) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) sendLocked(c *Connection, msg protocol.Outbound) bool {
	data, err := protocol.Encode(msg)
	if err != nil {
		h.logger.Error("encode message failed", zap.String("type", msg.MessageType()), zap.Error(err))
		return false
	}
	return h.sendRawLocked(c, data)
}

func (h *Hub) sendRawLocked(c *Connection, data []byte) bool {
	if c.enqueue(data) {
		return true
	}
	h.metrics.ObserveDroppedSend()
	h.logger.Debug("dropped outbound message", zap.String("client_id", c.id))
	return false
}

// replyError sends the client-facing form of err to c.
func (h *Hub) replyError(c *Connection, err error) {
	appErr := ToAppError(err)
	h.metrics.ObserveError(string(appErr.Code))
	h.logger.Debug("request rejected",
		zap.String("client_id", c.id),
		zap.String("code", string(appErr.Code)),
		zap.Error(err))

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isLiveLocked(c) {
		return
	}
	h.sendLocked(c, protocol.NewError(appErr.Message))
}
