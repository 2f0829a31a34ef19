package server

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/signaling"
)

// handleWebSocket upgrades the request and serves the connection until it
// closes. The upgrader has already replied when Upgrade fails.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	ua := describeUserAgent(c.Request.UserAgent())
	if err := s.hub.Serve(conn, ua); err != nil {
		s.logger.Warn("websocket rejected", zap.String("remote", c.Request.RemoteAddr), zap.Error(err))
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string          `json:"status"`
	Name        string          `json:"name"`
	Uptime      string          `json:"uptime"`
	Hub         signaling.Stats `json:"hub"`
	Goroutines  int             `json:"goroutines"`
	MemoryRSS   uint64          `json:"memoryRss,omitempty"`
	CPUPercent  float64         `json:"cpuPercent,omitempty"`
	CollectedAt time.Time       `json:"collectedAt"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:      "ok",
		Name:        s.cfg.ServerName,
		Uptime:      time.Since(s.startedAt).Truncate(time.Second).String(),
		Hub:         s.hub.Stats(),
		Goroutines:  runtime.NumGoroutine(),
		CollectedAt: time.Now().UTC(),
	}
	if proc, err := process.NewProcessWithContext(c.Request.Context(), int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfoWithContext(c.Request.Context()); err == nil {
			resp.MemoryRSS = mem.RSS
		}
		if cpu, err := proc.CPUPercentWithContext(c.Request.Context()); err == nil {
			resp.CPUPercent = cpu
		}
	} else {
		s.logger.Debug("process stats unavailable", zap.Error(err))
	}
	c.JSON(http.StatusOK, resp)
}

// handleICEServers returns the STUN/TURN servers clients should hand to
// RTCPeerConnection.
func (s *Server) handleICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": s.cfg.ICE.ICEServers()})
}
