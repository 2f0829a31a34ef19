// Package client is a Go peer for the signaling relay: it keeps the
// websocket, exposes server envelopes as events and sends room requests and
// negotiation messages.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/constants"
)

const (
	handshakeTimeout = 10 * time.Second
	eventBuffer      = 64
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("client closed")

var api = sonic.ConfigStd

// Event is one envelope received from the relay. Only the fields relevant
// to its Type are set; Raw holds the frame as received.
type Event struct {
	Type         string                     `json:"type"`
	ClientID     string                     `json:"clientId,omitempty"`
	RoomID       string                     `json:"roomId,omitempty"`
	UserID       string                     `json:"userId,omitempty"`
	From         string                     `json:"from,omitempty"`
	Participants []string                   `json:"participants,omitempty"`
	Message      string                     `json:"message,omitempty"`
	Offer        *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer       *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate    *webrtc.ICECandidateInit   `json:"candidate,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// envelope is the outbound shape for every client-originated message.
type envelope struct {
	Type      string                     `json:"type"`
	RoomID    string                     `json:"roomId,omitempty"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// Client manages the websocket connection to the relay.
type Client struct {
	conn     *websocket.Conn
	id       string
	events   chan *Event
	outgoing chan []byte
	done     chan struct{}
	logger   *zap.Logger

	closeOnce sync.Once
}

// Dial connects to the relay at url and waits for the connected greeting
// that carries this peer's identity.
func Dial(ctx context.Context, url string, header http.Header, lg *zap.Logger) (*Client, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	conn.SetReadLimit(constants.DefaultMaxMessageSize)

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	var hello Event
	if err := api.Unmarshal(data, &hello); err != nil || hello.Type != constants.MessageConnected || hello.ClientID == "" {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected greeting %q", data)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &Client{
		conn:     conn,
		id:       hello.ClientID,
		events:   make(chan *Event, eventBuffer),
		outgoing: make(chan []byte, eventBuffer),
		done:     make(chan struct{}),
		logger:   lg.With(zap.String("client_id", hello.ClientID)),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// ID returns the identity the relay assigned.
func (c *Client) ID() string { return c.id }

// Events delivers server envelopes in arrival order. It is closed when the
// connection ends.
func (c *Client) Events() <-chan *Event { return c.events }

func (c *Client) CreateRoom(roomID string) error {
	return c.send(envelope{Type: constants.MessageCreateRoom, RoomID: roomID})
}

func (c *Client) JoinRoom(roomID string) error {
	return c.send(envelope{Type: constants.MessageJoinRoom, RoomID: roomID})
}

// LeaveRoom leaves roomID, or the current room when roomID is empty.
func (c *Client) LeaveRoom(roomID string) error {
	return c.send(envelope{Type: constants.MessageLeaveRoom, RoomID: roomID})
}

func (c *Client) SendOffer(roomID string, desc webrtc.SessionDescription) error {
	return c.send(envelope{Type: constants.MessageOffer, RoomID: roomID, Offer: &desc})
}

func (c *Client) SendAnswer(roomID string, desc webrtc.SessionDescription) error {
	return c.send(envelope{Type: constants.MessageAnswer, RoomID: roomID, Answer: &desc})
}

func (c *Client) SendCandidate(roomID string, candidate webrtc.ICECandidateInit) error {
	return c.send(envelope{Type: constants.MessageICECandidate, RoomID: roomID, Candidate: &candidate})
}

func (c *Client) send(msg envelope) error {
	data, err := api.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outgoing <- data:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Client) readPump() {
	defer func() {
		_ = c.conn.Close()
		c.closeOnce.Do(func() { close(c.done) })
		close(c.events)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("relay read failed", zap.Error(err))
			}
			return
		}
		ev := &Event{}
		if err := api.Unmarshal(data, ev); err != nil {
			c.logger.Warn("undecodable frame from relay", zap.Error(err))
			continue
		}
		ev.Raw = data
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case data := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.DefaultWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("relay write failed", zap.Error(err))
				c.closeOnce.Do(func() { close(c.done) })
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.DefaultWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
