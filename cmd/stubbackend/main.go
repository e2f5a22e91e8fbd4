package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"portalcore/internal/platform/config"
	"portalcore/internal/platform/httpserver"
	"portalcore/internal/platform/logger"
	"portalcore/internal/stubbackend"
)

// main wires the stub registry backend used for development and e2e runs of
// the portal client. Business logic lives in internal/stubbackend.
func main() {
	cfg := config.ServerFromEnv()
	log := logger.New()

	users, err := stubbackend.NewUserStore()
	if err != nil {
		log.Error("failed to seed demo accounts", "error", err)
		os.Exit(1)
	}
	server := stubbackend.NewServer(users, stubbackend.NewJWTService(cfg.JWTSigningKey, "registry-stub"), log)

	srv := httpserver.New(cfg.Addr, server.Router())

	log.Info("starting stub registry backend", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
