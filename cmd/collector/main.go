// acem-collector serves the metrics collector HTTP API (spec.md §4.B).
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/acem/internal/collector"
	"github.com/codeready-toolchain/acem/internal/platform/config"
	"github.com/codeready-toolchain/acem/internal/platform/logging"
	storecollector "github.com/codeready-toolchain/acem/internal/store/collector"
)

func main() {
	envPath := flag.String("env-file", ".env", "Path to .env file")
	flag.Parse()

	config.LoadDotEnv(*envPath)
	logging.Init(logging.Config{Level: slog.LevelInfo})

	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	cfg, err := config.LoadCollectorConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load collector config: %v", err)
	}

	ctx := context.Background()
	store, err := storecollector.Open(ctx, storecollector.Config{
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLife,
	})
	if err != nil {
		log.Fatalf("failed to open collector store: %v", err)
	}
	defer store.Close()

	server := collector.NewServer(store)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	go func() {
		slog.Info("collector listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("collector server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	slog.Info("shutting down collector")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
