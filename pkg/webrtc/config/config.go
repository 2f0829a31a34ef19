package config

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v3"
)

// DefaultSTUNServers are handed to clients when no ICE servers are configured.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// ICEOption describes the STUN/TURN servers clients should use for their
// peer connections. The relay never opens a peer connection itself.
type ICEOption struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// DefaultICEOption returns the public STUN servers.
func DefaultICEOption() *ICEOption {
	urls := make([]string, len(DefaultSTUNServers))
	copy(urls, DefaultSTUNServers)
	return &ICEOption{URLs: urls}
}

// Validate checks that every URL uses a scheme clients understand and that
// TURN entries carry credentials.
func (o *ICEOption) Validate() error {
	if len(o.URLs) == 0 {
		return fmt.Errorf("ice: no server urls configured")
	}
	for _, u := range o.URLs {
		switch {
		case strings.HasPrefix(u, "stun:"), strings.HasPrefix(u, "stuns:"):
		case strings.HasPrefix(u, "turn:"), strings.HasPrefix(u, "turns:"):
			if o.Username == "" || o.Credential == "" {
				return fmt.Errorf("ice: turn server %q requires username and credential", u)
			}
		default:
			return fmt.Errorf("ice: unsupported url scheme in %q", u)
		}
	}
	return nil
}

// ICEServers splits the configured urls into STUN entries and one
// credentialed TURN entry, in the shape browsers accept for RTCConfiguration.
func (o *ICEOption) ICEServers() []webrtc.ICEServer {
	var stun, turn []string
	for _, u := range o.URLs {
		if strings.HasPrefix(u, "turn") {
			turn = append(turn, u)
		} else {
			stun = append(stun, u)
		}
	}
	servers := make([]webrtc.ICEServer, 0, 2)
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:           turn,
			Username:       o.Username,
			Credential:     o.Credential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return servers
}

// String config to string
func (o ICEOption) String() string {
	return fmt.Sprintf("ICEOption{URLs: %d, TURN: %t}", len(o.URLs), o.Username != "")
}
