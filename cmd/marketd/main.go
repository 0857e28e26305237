/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"server-market-go/internal/common"
	"server-market-go/internal/config"
	"server-market-go/internal/gateway"
	"server-market-go/internal/maintenance"
	"server-market-go/internal/market"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// marketd hosts the engine: it owns the gateway worker, drains completion
// callbacks on its own loop and runs quota maintenance until signalled.
func main() {
	seedOnStart := flag.Bool("seed", false, "Apply the catalog file before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting market engine")

	loop := gateway.NewLoop()
	services, err := common.InitializeServices(ctx, cfg, market.LogDispenser{}, loop)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *seedOnStart {
		if err := applyCatalog(ctx, services, cfg.Market.CatalogFile); err != nil {
			zap.L().Fatal("Failed to apply catalog", zap.Error(err))
		}
	}

	var pruner *maintenance.QuotaPruner
	if cfg.Maintenance.Enabled {
		pruner = maintenance.NewQuotaPruner(services.Gateway, services.Clock, cfg.Maintenance)
		if err := pruner.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start quota pruner", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runLoop(gctx, loop)
	})

	zap.L().Info("Market engine running", zap.Bool("maintenance", cfg.Maintenance.Enabled))
	zap.L().Info("Press Ctrl+C to stop")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Error("Engine loop stopped", zap.Error(err))
	}

	zap.L().Info("Shutdown signal received, stopping market engine...")
	if pruner != nil {
		pruner.Stop()
	}
	// Drain the gateway first so completions of the last units are queued
	// on the loop, then run them before the store closes.
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := services.Gateway.Stop(stopCtx); err != nil {
		zap.L().Warn("Gateway did not stop cleanly", zap.Error(err))
	}
	loop.RunPending()
}

// runLoop executes completion callbacks on this goroutine, the engine's
// equivalent of a main thread.
func runLoop(ctx context.Context, loop *gateway.Loop) error {
	heartbeat := time.NewTicker(time.Minute)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-loop.Wake():
			loop.RunPending()
		case <-heartbeat.C:
			zap.L().Debug("Engine loop idle")
		}
	}
}

func applyCatalog(ctx context.Context, services *common.Services, path string) error {
	seed, err := common.LoadCatalogSeed(path)
	if err != nil {
		return err
	}
	summary, err := services.Coordinator.ApplySeed(*seed).Wait(ctx)
	if err != nil {
		return err
	}
	zap.L().Info("Catalog applied",
		zap.String("file", path),
		zap.Int("currency", summary.Currency),
		zap.Int("listings", summary.Listings),
		zap.Int("orders", summary.Orders))
	return nil
}
