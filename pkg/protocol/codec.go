package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/LingByte/LingSignal/pkg/constants"
)

// ErrMalformed is returned for frames that are not a JSON object or carry
// no string "type".
var ErrMalformed = errors.New("malformed message")

// UnknownTypeError is returned for a well-formed envelope whose type is not
// a client-originated message.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// Keys of the envelope fields the server reads or writes.
const (
	fieldType   = "type"
	fieldRoomID = "roomId"
	fieldFrom   = "from"
)

var api = sonic.ConfigStd

// Parse decodes one inbound frame. It returns either a complete variant or
// an error wrapping ErrMalformed, or an *UnknownTypeError.
func Parse(data []byte) (Inbound, error) {
	var fields map[string]json.RawMessage
	if err := api.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	rawType, ok := fields[fieldType]
	if !ok || string(rawType) == "null" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	var typ string
	if err := api.Unmarshal(rawType, &typ); err != nil {
		return nil, fmt.Errorf("%w: type is not a string", ErrMalformed)
	}
	if typ == "" {
		return nil, fmt.Errorf("%w: empty type", ErrMalformed)
	}

	roomID, err := stringField(fields, fieldRoomID)
	if err != nil {
		return nil, err
	}

	switch typ {
	case constants.MessageCreateRoom:
		return CreateRoom{RoomID: roomID}, nil
	case constants.MessageJoinRoom:
		return JoinRoom{RoomID: roomID}, nil
	case constants.MessageLeaveRoom:
		return LeaveRoom{RoomID: roomID}, nil
	case constants.MessageOffer, constants.MessageAnswer, constants.MessageICECandidate:
		return &Relay{Kind: typ, RoomID: roomID, fields: fields}, nil
	default:
		return nil, &UnknownTypeError{Type: typ}
	}
}

// stringField reads an optional string field; absent or null yields "".
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := api.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformed, key)
	}
	return s, nil
}

// Encode serializes a server-originated message.
func Encode(m Outbound) ([]byte, error) {
	return api.Marshal(m)
}

// EncodeRelay re-emits the relay envelope with "from" set to sender. Every
// other field value is written back with the exact bytes it arrived with.
func (r *Relay) EncodeRelay(sender string) ([]byte, error) {
	from, err := api.Marshal(sender)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(r.fields)+1)
	for k := range r.fields {
		if k != fieldFrom {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, k := range keys {
		if err := writeField(&buf, k, r.fields[k]); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeField(&buf, fieldFrom, from); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, value json.RawMessage) error {
	k, err := api.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(value)
	return nil
}
