package constants

import "time"

// Client to server message types
const (
	MessageCreateRoom   = "create-room"
	MessageJoinRoom     = "join-room"
	MessageLeaveRoom    = "leave-room"
	MessageOffer        = "offer"
	MessageAnswer       = "answer"
	MessageICECandidate = "ice-candidate"
)

// Server to client message types
const (
	MessageConnected   = "connected"
	MessageRoomCreated = "room-created"
	MessageRoomJoined  = "room-joined"
	MessageUserJoined  = "user-joined"
	MessageUserLeft    = "user-left"
	MessageError       = "error"
)

const (
	DefaultPingInterval    = 30 * time.Second
	DefaultWriteWait       = 10 * time.Second
	DefaultMaxMessageSize  = 64 * 1024 // SDP offers with many candidates fit comfortably
	DefaultSendBuffer      = 256
	DefaultRateLimitPerSec = 50
	DefaultRateLimitBurst  = 100
	DefaultAddr            = ":8080"
	DefaultServerName      = "LingSignal"
)

const (
	ENV_MODE             = "MODE"
	ENV_ADDR             = "ADDR"
	ENV_PING_INTERVAL    = "PING_INTERVAL"
	ENV_WRITE_WAIT       = "WRITE_WAIT"
	ENV_MAX_MESSAGE_SIZE = "MAX_MESSAGE_SIZE"
	ENV_SEND_BUFFER      = "SEND_BUFFER"
	ENV_RATE_LIMIT       = "RATE_LIMIT_PER_SEC"
	ENV_RATE_BURST       = "RATE_LIMIT_BURST"
	ENV_ALLOWED_ORIGINS  = "ALLOWED_ORIGINS"
	ENV_ICE_SERVERS      = "ICE_SERVERS"
	ENV_TURN_USERNAME    = "TURN_USERNAME"
	ENV_TURN_CREDENTIAL  = "TURN_CREDENTIAL"
	ENV_SSL_ENABLED      = "SSL_ENABLED"
	ENV_SSL_CERT_FILE    = "SSL_CERT_FILE"
	ENV_SSL_KEY_FILE     = "SSL_KEY_FILE"
)
