package signaling

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LingByte/LingSignal/pkg/metrics"
)

// fakeConn is an in-memory Conn. Frames pushed with deliver are returned by
// ReadMessage; data frames written by the hub are recorded.
type fakeConn struct {
	incoming  chan []byte
	closeOnce sync.Once

	mu      sync.Mutex
	closed  bool
	written [][]byte
	pings   int
	pingErr error
	pong    func(string) error
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 16)}
}

func (f *fakeConn) deliver(frame string) { f.incoming <- []byte(frame) }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-f.incoming
	if !ok {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
	return websocket.TextMessage, data, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write on closed conn")
	}
	if messageType == websocket.TextMessage {
		f.written = append(f.written, append([]byte(nil), data...))
	}
	return nil
}

func (f *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.PingMessage {
		f.pings++
	}
	return f.pingErr
}

func (f *fakeConn) SetReadLimit(int64)                  {}
func (f *fakeConn) SetWriteDeadline(time.Time) error    { return nil }
func (f *fakeConn) SetPongHandler(h func(string) error) { f.mu.Lock(); f.pong = h; f.mu.Unlock() }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.incoming)
	})
	return nil
}

func (f *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeConn) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

// sequentialIDs yields A, B, C, ... so scenarios read like the protocol docs.
func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string {
		i := n.Add(1) - 1
		if i < 26 {
			return string(rune('A' + i))
		}
		return "C" + string(rune('0'+i%10)) + string(rune('a'+i/10%26))
	}
}

func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	if opts.NewID == nil {
		opts.NewID = sequentialIDs()
	}
	h := NewHub(opts)
	t.Cleanup(h.Close)
	return h
}

// connect accepts a fake connection and consumes its connected greeting.
func connect(t *testing.T, h *Hub) (*Connection, *fakeConn) {
	t.Helper()
	fc := newFakeConn()
	c, err := h.Accept(fc, "test-agent")
	require.NoError(t, err)
	msg := recv(t, c)
	require.Equal(t, "connected", msg["type"])
	return c, fc
}

func send(h *Hub, c *Connection, frame string) {
	h.HandleMessage(c, []byte(frame))
}

func recvRaw(t *testing.T, c *Connection) []byte {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send queue closed")
		return data
	case <-time.After(time.Second):
		t.Fatalf("no message for %s", c.id)
		return nil
	}
}

func recv(t *testing.T, c *Connection) map[string]any {
	t.Helper()
	var msg map[string]any
	require.NoError(t, json.Unmarshal(recvRaw(t, c), &msg))
	return msg
}

func assertNoMessage(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected message for %s: %s", c.id, data)
		}
	default:
	}
}

func participants(ids ...string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// assertMembershipSymmetric checks that a connection names a room iff that
// room lists the connection.
func assertMembershipSymmetric(t *testing.T, h *Hub) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.conns {
		if c.roomID == "" {
			continue
		}
		members := h.registry.MembersOf(c.roomID)
		assert.Contains(t, members, id, "connection %s points at room %s which does not list it", id, c.roomID)
	}
	for _, roomID := range h.registry.Rooms() {
		members := h.registry.MembersOf(roomID)
		assert.NotEmpty(t, members, "empty room %s still registered", roomID)
		for _, id := range members {
			c, ok := h.conns[id]
			if assert.True(t, ok, "room %s lists dead connection %s", roomID, id) {
				assert.Equal(t, roomID, c.roomID)
			}
		}
	}
}

// metricValue reads one sample from m's registry. labels are name/value
// pairs; a missing series reads as zero.
func metricValue(t *testing.T, m *metrics.Metrics, name string, labels ...string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, metric := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if got[labels[i]] != labels[i+1] {
					continue series
				}
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
