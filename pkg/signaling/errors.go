package signaling

import (
	"errors"

	errors2 "github.com/LingByte/LingSignal/pkg/errors"
	"github.com/LingByte/LingSignal/pkg/protocol"
)

var (
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotInRoom         = errors.New("not in room")
	ErrMissingRoomID     = errors.New("room id required")
	ErrRateLimited       = errors.New("rate limited")
	ErrHubClosed         = errors.New("hub closed")
)

// Client-facing forms of the errors above. The messages are part of the
// wire contract.
var (
	ErrRoomAlreadyExistsApp = errors2.NewAppError(errors2.ErrCodeRoomAlreadyExists, "Room already exists")
	ErrRoomNotFoundApp      = errors2.NewAppError(errors2.ErrCodeRoomNotFound, "Room does not exist")
	ErrNotInRoomApp         = errors2.NewAppError(errors2.ErrCodeNotInRoom, "Not in room")
	ErrMissingRoomIDApp     = errors2.NewAppError(errors2.ErrCodeInvalidInput, "Room ID is required")
	ErrRateLimitedApp       = errors2.NewAppError(errors2.ErrCodeRateLimited, "Rate limit exceeded")
	ErrMalformedMessageApp  = errors2.NewAppError(errors2.ErrCodeInvalidMessage, "Invalid message format")
)

// ToAppError maps an error from the router or registry to the AppError
// reported to the client.
func ToAppError(err error) *errors2.AppError {
	var unknown *protocol.UnknownTypeError
	switch {
	case errors.Is(err, ErrRoomAlreadyExists):
		return ErrRoomAlreadyExistsApp
	case errors.Is(err, ErrRoomNotFound):
		return ErrRoomNotFoundApp
	case errors.Is(err, ErrNotInRoom):
		return ErrNotInRoomApp
	case errors.Is(err, ErrMissingRoomID):
		return ErrMissingRoomIDApp
	case errors.Is(err, ErrRateLimited):
		return ErrRateLimitedApp
	case errors.Is(err, protocol.ErrMalformed):
		return ErrMalformedMessageApp.WithCause(err)
	case errors.As(err, &unknown):
		return errors2.NewAppErrorf(errors2.ErrCodeUnknownType, "Unknown message type: %s", unknown.Type)
	}
	if appErr, ok := errors2.AsAppError(err); ok {
		return appErr
	}
	return errors2.WrapError(errors2.ErrCodeInternal, err)
}
