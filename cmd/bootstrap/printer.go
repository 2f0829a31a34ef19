package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/config"
	"github.com/LingByte/LingSignal/pkg/logger"
)

// LogConfigInfo Print global configuration information
func LogConfigInfo(cfg *config.Config) {
	logger.Info("system config load finished")

	logger.Info("base config",
		zap.String("name", cfg.ServerName),
		zap.String("mode", cfg.Mode),
		zap.String("addr", cfg.Server.Addr),
	)

	s := cfg.Signaling
	logger.Info("signaling config",
		zap.Duration("ping_interval", s.PingInterval),
		zap.Duration("write_wait", s.WriteWait),
		zap.Int64("max_message_size", s.MaxMessageSize),
		zap.Int("send_buffer", s.SendBuffer),
		zap.Float64("rate_limit_per_sec", s.RateLimitPerSec),
		zap.Int("rate_limit_burst", s.RateLimitBurst),
		zap.Strings("allowed_origins", s.AllowedOrigins),
	)

	logger.Info("tls config",
		zap.Bool("ssl_enabled", cfg.SSLEnabled),
		zap.String("ssl_cert_file", cfg.SSLCertFile),
		zap.String("ssl_key_file", cfg.SSLKeyFile),
	)

	logger.Info("ice config",
		zap.Strings("urls", cfg.ICE.URLs),
		zap.Bool("turn_credentials", cfg.ICE.Username != ""),
	)

	logger.Info("log config",
		zap.String("log_level", cfg.Log.Level),
		zap.String("log_filename", cfg.Log.Filename),
		zap.Int("log_max_size", cfg.Log.MaxSize),
		zap.Int("log_max_age", cfg.Log.MaxAge),
		zap.Int("log_max_backups", cfg.Log.MaxBackups),
	)
}

// EnsureBannerFile writes defaultText to filename when the file is missing.
func EnsureBannerFile(filename string, defaultText string) error {
	if _, err := os.Stat(filename); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(filename, []byte(defaultText+"\n"), 0o644)
}

// PrintBannerFromFile Read file and print, auto-generate if file doesn't exist
func PrintBannerFromFile(filename string, defaultText string) error {
	if err := EnsureBannerFile(filename, defaultText); err != nil {
		return fmt.Errorf("failed to ensure banner file: %w", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")

	colors := []string{
		"\x1b[38;5;165m",
		"\x1b[38;5;189m",
		"\x1b[38;5;207m",
		"\x1b[38;5;219m",
		"\x1b[38;5;225m",
		"\x1b[38;5;231m",
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		color := colors[i%len(colors)]
		fmt.Println(color + line + "\x1b[0m")
	}
	return nil
}
