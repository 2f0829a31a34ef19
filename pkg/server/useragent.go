package server

import (
	"strings"

	"github.com/mssola/user_agent"
)

// describeUserAgent condenses a User-Agent header for connection logs,
// e.g. "Chrome 120.0.0.0 (Linux x86_64)".
func describeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := user_agent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "bot " + name
	}

	name, version := ua.Browser()
	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString(" ")
		b.WriteString(version)
	}
	if ua.Mobile() {
		b.WriteString(" mobile")
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" (")
		b.WriteString(os)
		b.WriteString(")")
	}
	return strings.TrimSpace(b.String())
}
