package signaling

import (
	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/protocol"
)

// Router validates inbound envelopes and applies them to the hub.
type Router struct {
	hub    *Hub
	logger *zap.Logger
}

func newRouter(h *Hub) *Router {
	return &Router{hub: h, logger: h.logger.Named("router")}
}

// Dispatch handles one raw frame from c. Failures are reported to c as an
// error envelope; the connection stays open.
func (r *Router) Dispatch(c *Connection, data []byte) {
	msg, err := protocol.Parse(data)
	if err != nil {
		r.hub.metrics.ObserveMessage("invalid")
		r.hub.replyError(c, err)
		return
	}
	r.hub.metrics.ObserveMessage(msg.Type())

	switch m := msg.(type) {
	case protocol.CreateRoom:
		err = r.createRoom(c, m)
	case protocol.JoinRoom:
		err = r.joinRoom(c, m)
	case protocol.LeaveRoom:
		r.leaveRoom(c, m)
	case *protocol.Relay:
		err = r.relay(c, m)
	}
	if err != nil {
		r.hub.replyError(c, err)
	}
}

// createRoom opens a room with c as its only member. A connection already
// in another room leaves it first.
func (r *Router) createRoom(c *Connection, m protocol.CreateRoom) error {
	if m.RoomID == "" {
		return ErrMissingRoomID
	}
	h := r.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isLiveLocked(c) {
		return nil
	}
	if h.registry.Exists(m.RoomID) {
		return ErrRoomAlreadyExists
	}

	h.leaveLocked(c, c.roomID)
	members, err := h.registry.Create(m.RoomID, c.id)
	if err != nil {
		return err
	}
	c.roomID = m.RoomID
	h.metrics.SetRooms(h.registry.Len())
	h.sendLocked(c, protocol.NewRoomCreated(m.RoomID, members))
	return nil
}

// joinRoom adds c to an existing room and announces it to the others.
func (r *Router) joinRoom(c *Connection, m protocol.JoinRoom) error {
	if m.RoomID == "" {
		return ErrMissingRoomID
	}
	h := r.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isLiveLocked(c) {
		return nil
	}
	if !h.registry.Exists(m.RoomID) {
		return ErrRoomNotFound
	}

	if c.roomID == m.RoomID {
		h.sendLocked(c, protocol.NewRoomJoined(m.RoomID, h.registry.MembersOf(m.RoomID)))
		return nil
	}

	h.leaveLocked(c, c.roomID)
	members, err := h.registry.Join(m.RoomID, c.id)
	if err != nil {
		return err
	}
	c.roomID = m.RoomID
	h.sendLocked(c, protocol.NewRoomJoined(m.RoomID, members))
	h.broadcastLocked(m.RoomID, c.id, protocol.NewUserJoined(c.id, m.RoomID, members))
	r.logger.Debug("client joined room",
		zap.String("client_id", c.id),
		zap.String("room_id", m.RoomID),
		zap.Int("members", len(members)))
	return nil
}

// leaveRoom leaves the named room, or the current one when none is named.
// Leaving a room c is not in is a no-op.
func (r *Router) leaveRoom(c *Connection, m protocol.LeaveRoom) {
	h := r.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isLiveLocked(c) {
		return
	}
	roomID := m.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	h.leaveLocked(c, roomID)
}

// relay forwards an offer, answer or candidate to every other member of the
// sender's room, with "from" set to the sender.
func (r *Router) relay(c *Connection, m *protocol.Relay) error {
	h := r.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isLiveLocked(c) {
		return nil
	}
	roomID := m.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	if roomID == "" {
		return ErrNotInRoom
	}
	if !h.registry.Exists(roomID) {
		return ErrRoomNotFound
	}
	if c.roomID != roomID {
		return ErrNotInRoom
	}

	data, err := m.EncodeRelay(c.id)
	if err != nil {
		return err
	}
	delivered := h.broadcastRawLocked(roomID, c.id, data)
	r.logger.Debug("relayed signal",
		zap.String("type", m.Type()),
		zap.String("client_id", c.id),
		zap.String("room_id", roomID),
		zap.Int("recipients", delivered))
	return nil
}
