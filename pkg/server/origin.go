package server

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// OriginPolicy decides which browser origins may open a websocket.
// Configured entries are compared as lower-cased scheme://host.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	logger   *zap.Logger
}

// NewOriginPolicy builds a policy from configured origins. "*" allows any
// origin; malformed entries are logged and skipped.
func NewOriginPolicy(origins []string, lg *zap.Logger) *OriginPolicy {
	if lg == nil {
		lg = zap.NewNop()
	}
	p := &OriginPolicy{allowed: make(map[string]struct{}), logger: lg}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			lg.Warn("ignoring invalid origin in configuration", zap.String("origin", origin))
			continue
		}
		p.allowed[normalized] = struct{}{}
	}
	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// AllowAll reports whether the policy accepts every origin.
func (p *OriginPolicy) AllowAll() bool { return p.allowAll }

// Check is a websocket.Upgrader CheckOrigin func. Without "*", requests
// must carry an Origin on the allow-list.
func (p *OriginPolicy) Check(r *http.Request) bool {
	if p.allowAll {
		return true
	}
	header := r.Header.Get("Origin")
	if normalized, ok := normalizeOrigin(header); ok {
		if _, exists := p.allowed[normalized]; exists {
			return true
		}
	}
	p.logger.Warn("blocked websocket from disallowed origin",
		zap.String("origin", header),
		zap.String("remote", r.RemoteAddr))
	return false
}
