package config

import (
	"fmt"
	"os"
	"time"

	"github.com/LingByte/LingSignal/pkg/constants"
	"github.com/LingByte/LingSignal/pkg/logger"
	"github.com/LingByte/LingSignal/pkg/utils"
	iceconfig "github.com/LingByte/LingSignal/pkg/webrtc/config"
)

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Addr         string        `json:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// SignalingConfig tunes the connection hub.
type SignalingConfig struct {
	PingInterval    time.Duration `json:"ping_interval"`
	WriteWait       time.Duration `json:"write_wait"`
	MaxMessageSize  int64         `json:"max_message_size"`
	SendBuffer      int           `json:"send_buffer"`
	RateLimitPerSec float64       `json:"rate_limit_per_sec"` // 0 disables limiting
	RateLimitBurst  int           `json:"rate_limit_burst"`
	AllowedOrigins  []string      `json:"allowed_origins"`
}

var GlobalConfig *Config

// Config System common config
type Config struct {
	Server     ServerConfig
	Signaling  SignalingConfig
	ICE        iceconfig.ICEOption
	Log        logger.LogConfig
	Mode       string `env:"MODE"`
	ServerName string `env:"SERVER_NAME"`

	SSLEnabled  bool   `env:"SSL_ENABLED"`
	SSLCertFile string `env:"SSL_CERT_FILE"`
	SSLKeyFile  string `env:"SSL_KEY_FILE"`
}

// Default returns a configuration usable without any environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         constants.DefaultAddr,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Signaling: SignalingConfig{
			PingInterval:    constants.DefaultPingInterval,
			WriteWait:       constants.DefaultWriteWait,
			MaxMessageSize:  constants.DefaultMaxMessageSize,
			SendBuffer:      constants.DefaultSendBuffer,
			RateLimitPerSec: constants.DefaultRateLimitPerSec,
			RateLimitBurst:  constants.DefaultRateLimitBurst,
			AllowedOrigins:  []string{"*"},
		},
		ICE: *iceconfig.DefaultICEOption(),
		Log: logger.LogConfig{
			Level:      "info",
			Filename:   "./logs/signal.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 5,
			Daily:      true,
		},
		Mode:       "development",
		ServerName: constants.DefaultServerName,
	}
}

func Load() error {
	mode := utils.GetStringOrDefault(constants.ENV_MODE, "development")
	if err := utils.LoadEnv(mode); err != nil {
		logger.Info("no .env file loaded, using environment and defaults")
	}

	def := Default()
	cfg := &Config{
		Server: ServerConfig{
			Addr:         utils.GetStringOrDefault(constants.ENV_ADDR, def.Server.Addr),
			ReadTimeout:  utils.GetDurationOrDefault("READ_TIMEOUT", def.Server.ReadTimeout),
			WriteTimeout: utils.GetDurationOrDefault("WRITE_TIMEOUT", def.Server.WriteTimeout),
			IdleTimeout:  utils.GetDurationOrDefault("IDLE_TIMEOUT", def.Server.IdleTimeout),
		},
		Signaling: SignalingConfig{
			PingInterval:    utils.GetDurationOrDefault(constants.ENV_PING_INTERVAL, def.Signaling.PingInterval),
			WriteWait:       utils.GetDurationOrDefault(constants.ENV_WRITE_WAIT, def.Signaling.WriteWait),
			MaxMessageSize:  int64(utils.GetIntOrDefault(constants.ENV_MAX_MESSAGE_SIZE, int(def.Signaling.MaxMessageSize))),
			SendBuffer:      utils.GetIntOrDefault(constants.ENV_SEND_BUFFER, def.Signaling.SendBuffer),
			RateLimitPerSec: utils.GetFloatOrDefault(constants.ENV_RATE_LIMIT, def.Signaling.RateLimitPerSec),
			RateLimitBurst:  utils.GetIntOrDefault(constants.ENV_RATE_BURST, def.Signaling.RateLimitBurst),
			AllowedOrigins:  utils.GetListOrDefault(constants.ENV_ALLOWED_ORIGINS, def.Signaling.AllowedOrigins),
		},
		ICE: iceconfig.ICEOption{
			URLs:       utils.GetListOrDefault(constants.ENV_ICE_SERVERS, def.ICE.URLs),
			Username:   utils.GetEnv(constants.ENV_TURN_USERNAME),
			Credential: utils.GetEnv(constants.ENV_TURN_CREDENTIAL),
		},
		Log: logger.LogConfig{
			Level:      utils.GetStringOrDefault("LOG_LEVEL", def.Log.Level),
			Filename:   utils.GetStringOrDefault("LOG_FILENAME", def.Log.Filename),
			MaxSize:    utils.GetIntOrDefault("LOG_MAX_SIZE", def.Log.MaxSize),
			MaxAge:     utils.GetIntOrDefault("LOG_MAX_AGE", def.Log.MaxAge),
			MaxBackups: utils.GetIntOrDefault("LOG_MAX_BACKUPS", def.Log.MaxBackups),
			Daily:      utils.GetBoolOrDefault("LOG_DAILY", def.Log.Daily),
		},
		Mode:       mode,
		ServerName: utils.GetStringOrDefault("SERVER_NAME", def.ServerName),

		SSLEnabled:  utils.GetBoolOrDefault(constants.ENV_SSL_ENABLED, false),
		SSLCertFile: utils.GetEnv(constants.ENV_SSL_CERT_FILE),
		SSLKeyFile:  utils.GetEnv(constants.ENV_SSL_KEY_FILE),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	GlobalConfig = cfg
	return nil
}

// Validate rejects settings the hub cannot run with.
func (c *Config) Validate() error {
	s := c.Signaling
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("config: empty listen address")
	case s.PingInterval <= 0:
		return fmt.Errorf("config: ping interval must be positive, got %s", s.PingInterval)
	case s.WriteWait <= 0:
		return fmt.Errorf("config: write wait must be positive, got %s", s.WriteWait)
	case s.MaxMessageSize <= 0:
		return fmt.Errorf("config: max message size must be positive, got %d", s.MaxMessageSize)
	case s.SendBuffer <= 0:
		return fmt.Errorf("config: send buffer must be positive, got %d", s.SendBuffer)
	case s.RateLimitPerSec < 0:
		return fmt.Errorf("config: rate limit must not be negative, got %v", s.RateLimitPerSec)
	case s.RateLimitPerSec > 0 && s.RateLimitBurst <= 0:
		return fmt.Errorf("config: rate limit burst must be positive, got %d", s.RateLimitBurst)
	}
	if c.SSLEnabled {
		if err := c.validateTLS(); err != nil {
			return err
		}
	}
	if err := c.ICE.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// validateTLS requires a readable certificate and key when TLS is on.
func (c *Config) validateTLS() error {
	if c.SSLCertFile == "" || c.SSLKeyFile == "" {
		return fmt.Errorf("config: SSL_ENABLED requires SSL_CERT_FILE and SSL_KEY_FILE")
	}
	for _, path := range []string{c.SSLCertFile, c.SSLKeyFile} {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("config: tls file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("config: tls file %s is a directory", path)
		}
	}
	return nil
}
