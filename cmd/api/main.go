// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/storefront-state/internal/config"
	"github.com/your-org/storefront-state/internal/domain/commerce"
	"github.com/your-org/storefront-state/internal/domain/device"
	"github.com/your-org/storefront-state/internal/domain/location"
	"github.com/your-org/storefront-state/internal/domain/telemetry"
	"github.com/your-org/storefront-state/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-state/internal/interfaces/http"
	"github.com/your-org/storefront-state/internal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	appLogger := logger.New(cfg)

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := redisClient.Health(); err != nil {
		log.Fatalf("Redis health check failed: %v", err)
	}

	// Telemetry producer connects lazily on the first published event
	producer := telemetry.NewKafkaProducer(cfg, appLogger)
	defer producer.Close()

	locations := location.NewCache(redisClient, cfg, appLogger)
	devices := device.NewRuntimeProvider(cfg.App.Version)
	manager := commerce.NewManager(redisClient, producer, appLogger)

	log.Println("✅ All systems operational!")

	// Create and start HTTP server
	server := http.NewServer(cfg, appLogger, redisClient.GetClient(), manager, locations, devices)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down gracefully...")

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	// Flush in-flight telemetry before the producer is closed
	manager.Drain()

	log.Println("✅ Server shutdown completed")
}
