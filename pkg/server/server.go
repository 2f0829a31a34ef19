// Package server exposes the signaling hub over HTTP: the websocket
// endpoint plus health, metrics and ICE configuration routes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/config"
	"github.com/LingByte/LingSignal/pkg/metrics"
	"github.com/LingByte/LingSignal/pkg/signaling"
)

// Server wires a hub to a gin engine.
type Server struct {
	cfg       *config.Config
	hub       *signaling.Hub
	metrics   *metrics.Metrics
	logger    *zap.Logger
	origins   *OriginPolicy
	upgrader  websocket.Upgrader
	engine    *gin.Engine
	startedAt time.Time
}

// New builds the server and its routes. m may be nil, in which case
// /metrics answers 500.
func New(cfg *config.Config, hub *signaling.Hub, m *metrics.Metrics, lg *zap.Logger) *Server {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		hub:       hub,
		metrics:   m,
		logger:    lg,
		origins:   NewOriginPolicy(cfg.Signaling.AllowedOrigins, lg),
		startedAt: time.Now(),
	}
	lg.Info("websocket origin policy",
		zap.Bool("allow_all", s.origins.AllowAll()),
		zap.Strings("allowed_origins", cfg.Signaling.AllowedOrigins))
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.origins.Check,
	}

	if cfg.Mode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(lg))
	// Disable automatic redirects so /ws/ is not bounced with a 307
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	s.engine = r
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ice-servers", s.handleICEServers)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer returns an http.Server for addr using the configured timeouts.
// Websocket connections are hijacked and so outlive these timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:           s.cfg.Server.Addr,
		Handler:        s.engine,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

// ListenAndServe serves srv over TLS when SSL is enabled, plain HTTP
// otherwise. A graceful shutdown returns nil.
func (s *Server) ListenAndServe(srv *http.Server) error {
	var err error
	if s.cfg.SSLEnabled {
		s.logger.Info("Starting HTTPS server", zap.String("addr", srv.Addr))
		err = srv.ListenAndServeTLS(s.cfg.SSLCertFile, s.cfg.SSLKeyFile)
	} else {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting HTTP requests, then closes every websocket.
func (s *Server) Shutdown(ctx context.Context, srv *http.Server) error {
	s.logger.Info("shutting down HTTP server")
	err := srv.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	s.hub.Close()
	s.logger.Info("HTTP server shutdown completed")
	return err
}

func requestLogger(lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		lg.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
