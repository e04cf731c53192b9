package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marco/chatlink/internal/api"
	"github.com/marco/chatlink/internal/config"
	"github.com/marco/chatlink/internal/metrics"
	"github.com/marco/chatlink/internal/repository/postgres"
	"github.com/marco/chatlink/internal/service"
	"github.com/marco/chatlink/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	repos := postgres.NewRepositories(db)

	promRegistry := prometheus.NewRegistry()
	collector := metrics.NewCollector(promRegistry)

	registry := websocket.NewRegistry()
	dispatcher := websocket.NewDispatcher(registry, repos.Friendship, collector, logger)
	hub := websocket.NewHub(registry, dispatcher, collector, logger)
	go hub.Run()

	services := service.NewServices(repos, cfg, dispatcher, collector)
	router := api.NewRouter(services, hub, registry, cfg, promRegistry, logger)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()

	logger.Info("server stopped")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
