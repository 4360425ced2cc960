package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"machiavelli-server/internal/config"
	"machiavelli-server/internal/history"
	"machiavelli-server/internal/notify"
	"machiavelli-server/internal/server"
)

func gracefulShutdown(srv *server.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutdown signal received, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Enough time to flush finished rounds to the history store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var store *history.Store
	if cfg.HistoryDriver != "" {
		store, err = history.Open(cfg.HistoryDriver, cfg.HistoryDSN)
		if err != nil {
			log.Fatalf("Failed to open history: %v", err)
		}
		defer store.Close()
	}

	var publisher *notify.Publisher
	if cfg.RedisAddr != "" {
		publisher, err = notify.New(notify.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer publisher.Close()
	}

	srv, err := server.NewServer(cfg, server.Dependencies{
		History:   store,
		Publisher: publisher,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)
	go gracefulShutdown(srv, done)

	<-done
	log.Println("Graceful shutdown complete.")
}
