package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LingByte/LingSignal/pkg/config"
	"github.com/LingByte/LingSignal/pkg/metrics"
	"github.com/LingByte/LingSignal/pkg/signaling"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *signaling.Hub) {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = "test"
	if mutate != nil {
		mutate(cfg)
	}
	m := metrics.New()
	opts := signaling.OptionsFromConfig(cfg.Signaling)
	opts.Metrics = m
	hub := signaling.NewHub(opts)

	ts := httptest.NewServer(New(cfg, hub, m, nil).Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return ts, hub
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	msg := readJSON(t, conn)
	require.Equal(t, "connected", msg["type"])
	id, ok := msg["clientId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return conn, id
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeText(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestServer_SignalingRoundTrip(t *testing.T) {
	ts, hub := newTestServer(t, nil)
	alice, aliceID := dial(t, ts)
	bob, bobID := dial(t, ts)

	writeText(t, alice, `{"type":"create-room","roomId":"lobby"}`)
	created := readJSON(t, alice)
	assert.Equal(t, "room-created", created["type"])
	assert.Equal(t, []any{aliceID}, created["participants"])

	writeText(t, bob, `{"type":"join-room","roomId":"lobby"}`)
	joined := readJSON(t, bob)
	assert.Equal(t, "room-joined", joined["type"])
	assert.Equal(t, []any{aliceID, bobID}, joined["participants"])

	userJoined := readJSON(t, alice)
	assert.Equal(t, "user-joined", userJoined["type"])
	assert.Equal(t, bobID, userJoined["userId"])

	writeText(t, alice, `{"type":"offer","roomId":"lobby","offer":{"type":"offer","sdp":"v=0"}}`)
	offer := readJSON(t, bob)
	assert.Equal(t, "offer", offer["type"])
	assert.Equal(t, aliceID, offer["from"])
	assert.Equal(t, map[string]any{"type": "offer", "sdp": "v=0"}, offer["offer"])

	_ = bob.Close()
	left := readJSON(t, alice)
	assert.Equal(t, "user-left", left["type"])
	assert.Equal(t, bobID, left["userId"])
	assert.Equal(t, []any{aliceID}, left["participants"])

	assert.Eventually(t, func() bool { return hub.Stats().Connections == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ErrorReply(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	conn, _ := dial(t, ts)

	writeText(t, conn, `{"type":"join-room","roomId":"NOPE"}`)
	assert.Equal(t, map[string]any{"type": "error", "message": "Room does not exist"}, readJSON(t, conn))

	writeText(t, conn, `{{`)
	assert.Equal(t, "Invalid message format", readJSON(t, conn)["message"])
}

func TestServer_OriginAllowList(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Signaling.AllowedOrigins = []string{"https://app.example.com"}
	})

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "HTTPS://APP.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	dial(t, ts)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "LingSignal", body.Name)
	assert.Equal(t, 1, body.Hub.Connections)
	assert.Equal(t, 0, body.Hub.Rooms)
	assert.Positive(t, body.Goroutines)
}

func TestServer_ICEServers(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.ICE.URLs = []string{"stun:stun.example.com:3478", "turn:turn.example.com:3478"}
		cfg.ICE.Username = "user"
		cfg.ICE.Credential = "secret"
	})

	resp, err := http.Get(ts.URL + "/ice-servers")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		ICEServers []struct {
			URLs       []string `json:"urls"`
			Username   string   `json:"username"`
			Credential string   `json:"credential"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.ICEServers, 2)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, body.ICEServers[0].URLs)
	assert.Empty(t, body.ICEServers[0].Username)
	assert.Equal(t, []string{"turn:turn.example.com:3478"}, body.ICEServers[1].URLs)
	assert.Equal(t, "user", body.ICEServers[1].Username)
	assert.Equal(t, "secret", body.ICEServers[1].Credential)
}

func TestServer_Metrics(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	conn, _ := dial(t, ts)
	writeText(t, conn, `{"type":"create-room","roomId":"R1"}`)
	readJSON(t, conn)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(data), "signaling_connections 1")
	assert.Contains(t, string(data), "signaling_rooms 1")
	assert.Contains(t, string(data), `signaling_messages_total{type="create-room"} 1`)
}

func TestServer_ListenAndServeShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	hub := signaling.NewHub(signaling.OptionsFromConfig(cfg.Signaling))
	srv := New(cfg, hub, nil, nil)
	httpServer := srv.HTTPServer()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(httpServer) }()
	require.NoError(t, srv.Shutdown(context.Background(), httpServer))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenAndServeTLSBadKeyPair(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.SSLEnabled = true
	cfg.SSLCertFile = filepath.Join(dir, "server.crt")
	cfg.SSLKeyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(cfg.SSLCertFile, []byte("not a cert"), 0o600))
	require.NoError(t, os.WriteFile(cfg.SSLKeyFile, []byte("not a key"), 0o600))

	hub := signaling.NewHub(signaling.OptionsFromConfig(cfg.Signaling))
	t.Cleanup(hub.Close)
	srv := New(cfg, hub, nil, nil)

	assert.Error(t, srv.ListenAndServe(srv.HTTPServer()))
}
