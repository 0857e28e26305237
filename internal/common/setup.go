package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"server-market-go/internal/api"
	"server-market-go/internal/database"
	"server-market-go/internal/exchange"
	"server-market-go/internal/gateway"
	"server-market-go/internal/market"
	"server-market-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

const shutdownTimeout = 30 * time.Second

// Services is the wired engine. Gateway owns the database; everything else
// reaches the store through it.
type Services struct {
	DbService   *database.Service
	Gateway     *gateway.Gateway
	Clock       *market.SystemClock
	Coordinator *market.Coordinator
	Exchange    *exchange.Exchange
	Market      *api.MarketService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the store, starts the gateway worker and wires the
// market on top of it. dispenser and exec may be nil.
func InitializeServices(ctx context.Context, cfg *models.Config, dispenser market.Dispenser, exec gateway.Executor) (*Services, error) {
	clock, err := market.NewSystemClock(cfg.Market.Timezone)
	if err != nil {
		return nil, err
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	gw := gateway.New(dbService, cfg.Gateway)
	gw.Start(ctx)

	coordinator := market.NewCoordinator(gw, clock)
	ex := exchange.New(gw)
	marketService := api.NewMarketService(gw, coordinator, ex, dispenser, exec)

	if err := marketService.HealthCheck(ctx); err != nil {
		stopGateway(gw)
		dbService.Close()
		return nil, fmt.Errorf("market failed health check: %w", err)
	}

	zap.L().Info("Market services initialized",
		zap.String("database", cfg.Database.Path),
		zap.Int("queue_size", cfg.Gateway.QueueSize),
		zap.String("quota_day", clock.Today()))

	return &Services{
		DbService:   dbService,
		Gateway:     gw,
		Clock:       clock,
		Coordinator: coordinator,
		Exchange:    ex,
		Market:      marketService,
	}, nil
}

// Close drains the gateway before closing the database under it.
func (cs *Services) Close() {
	if cs.Gateway != nil {
		stopGateway(cs.Gateway)
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func stopGateway(gw *gateway.Gateway) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := gw.Stop(ctx); err != nil {
		zap.L().Warn("Gateway did not stop cleanly", zap.Error(err))
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
