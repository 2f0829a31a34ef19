package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/cmd/bootstrap"
	"github.com/LingByte/LingSignal/pkg/config"
	"github.com/LingByte/LingSignal/pkg/logger"
	"github.com/LingByte/LingSignal/pkg/metrics"
	"github.com/LingByte/LingSignal/pkg/server"
	"github.com/LingByte/LingSignal/pkg/signaling"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Parse Command Line Parameters
	addr := flag.String("addr", "", "HTTP listen address, overrides ADDR")
	mode := flag.String("mode", "", "running environment (development, test, production)")
	flag.Parse()
	if *mode != "" {
		os.Setenv("MODE", *mode)
	}
	// 2. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	cfg := config.GlobalConfig
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if !strings.Contains(cfg.Server.Addr, ":") {
		cfg.Server.Addr = ":" + cfg.Server.Addr
	}
	// 3. Load Log Configuration
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()
	// 4. Print Banner
	if err := bootstrap.PrintBannerFromFile("banner.txt", cfg.ServerName); err != nil {
		log.Fatalf("unload banner: %v", err)
	}
	// 5. Print Configuration
	bootstrap.LogConfigInfo(cfg)

	// 6. Build Hub
	m := metrics.New()
	opts := signaling.OptionsFromConfig(cfg.Signaling)
	opts.Logger = logger.Named("hub")
	opts.Metrics = m
	hub := signaling.NewHub(opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() { _ = hub.Run(ctx) }()

	// 7. Start HTTP Server
	srv := server.New(cfg, hub, m, logger.Named("http"))
	httpServer := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(httpServer)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("HTTP server run failed", zap.Error(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	_ = srv.Shutdown(shutdownCtx, httpServer)
	cancel()
	if serveErr != nil {
		// deferred calls do not run past os.Exit
		stop()
		logger.Sync()
		os.Exit(1)
	}
}
