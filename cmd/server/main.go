package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/config"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/enemy"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/logging"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/realtime"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/server"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/stats"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/storage/sqlite"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/telemetry"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	// ===== Config =====
	cfg, err := config.LoadServer()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	overflow, err := enemy.ParseOverflowPolicy(cfg.SquadPolicy)
	if err != nil {
		config.Exitf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		config.Exitf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ===== Telemetry =====
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Warnf("tracing disabled: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// ===== Storage =====
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create data dir: %v", err)
		}
	}
	docs, err := sqlite.Open(cfg.DBPath, sqlite.WithLogger(logger))
	if err != nil {
		log.Fatalf("open room store: %v", err)
	}
	defer func() {
		if err := docs.Close(); err != nil {
			log.Warnf("close room store: %v", err)
		}
	}()

	// ===== Server =====
	tally := stats.New()
	srv, err := server.New(docs, realtime.NewBus(),
		server.WithLogger(logger),
		server.WithStats(tally),
		server.WithOverflow(overflow),
		server.WithWriteTimeout(cfg.WriteTimeout),
		server.WithVersion(buildVersion, buildTime),
	)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}
	defer srv.Close()

	go resetDailyAtMidnight(ctx, tally, log)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}()

	log.Infof("star-dashborg server %s listening on %s (db=%s)", buildVersion, cfg.Addr, cfg.DBPath)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("listen: %v", err)
	}
}

// resetDailyAtMidnight clears the daily records at each UTC midnight.
func resetDailyAtMidnight(ctx context.Context, tally *stats.Store, log *zap.SugaredLogger) {
	for {
		now := time.Now().UTC()
		next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			tally.ResetDaily()
			log.Infof("daily stats reset")
		}
	}
}
