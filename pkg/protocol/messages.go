// Package protocol defines the signaling envelope exchanged over the
// websocket. Inbound frames decode into exactly one of the Inbound
// variants; outbound frames are built with the New* constructors.
package protocol

import (
	"encoding/json"

	"github.com/LingByte/LingSignal/pkg/constants"
)

// Inbound is a client-originated message. The set of implementations is closed.
type Inbound interface {
	Type() string
	inbound()
}

// CreateRoom asks the server to create RoomID with the sender as sole member.
type CreateRoom struct {
	RoomID string
}

// JoinRoom asks to be added to an existing room.
type JoinRoom struct {
	RoomID string
}

// LeaveRoom leaves RoomID, or the sender's current room when RoomID is empty.
type LeaveRoom struct {
	RoomID string
}

// Relay is an offer, answer or ice-candidate. Its fields are kept as raw
// JSON so the payload is forwarded exactly as received.
type Relay struct {
	Kind   string
	RoomID string
	fields map[string]json.RawMessage
}

func (CreateRoom) Type() string { return constants.MessageCreateRoom }
func (JoinRoom) Type() string   { return constants.MessageJoinRoom }
func (LeaveRoom) Type() string  { return constants.MessageLeaveRoom }
func (r *Relay) Type() string   { return r.Kind }

func (CreateRoom) inbound() {}
func (JoinRoom) inbound()   {}
func (LeaveRoom) inbound()  {}
func (*Relay) inbound()     {}

// field returns the raw value of key as received, or nil.
func (r *Relay) field(key string) json.RawMessage {
	return r.fields[key]
}

// Outbound is a server-originated message ready for Encode.
type Outbound interface {
	MessageType() string
}

type Connected struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

// RoomState is shared by room-created and room-joined.
type RoomState struct {
	Type         string   `json:"type"`
	RoomID       string   `json:"roomId"`
	Participants []string `json:"participants"`
}

// MemberChange is shared by user-joined and user-left.
type MemberChange struct {
	Type         string   `json:"type"`
	UserID       string   `json:"userId"`
	RoomID       string   `json:"roomId"`
	Participants []string `json:"participants"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (m *Connected) MessageType() string    { return m.Type }
func (m *RoomState) MessageType() string    { return m.Type }
func (m *MemberChange) MessageType() string { return m.Type }
func (m *Error) MessageType() string        { return m.Type }

func NewConnected(clientID string) *Connected {
	return &Connected{Type: constants.MessageConnected, ClientID: clientID}
}

func NewRoomCreated(roomID string, participants []string) *RoomState {
	return &RoomState{Type: constants.MessageRoomCreated, RoomID: roomID, Participants: nonNil(participants)}
}

func NewRoomJoined(roomID string, participants []string) *RoomState {
	return &RoomState{Type: constants.MessageRoomJoined, RoomID: roomID, Participants: nonNil(participants)}
}

func NewUserJoined(userID, roomID string, participants []string) *MemberChange {
	return &MemberChange{Type: constants.MessageUserJoined, UserID: userID, RoomID: roomID, Participants: nonNil(participants)}
}

func NewUserLeft(userID, roomID string, participants []string) *MemberChange {
	return &MemberChange{Type: constants.MessageUserLeft, UserID: userID, RoomID: roomID, Participants: nonNil(participants)}
}

func NewError(message string) *Error {
	return &Error{Type: constants.MessageError, Message: message}
}

// participants always encode as a JSON array
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
