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

package maintenance

import (
	"context"
	"fmt"
	"time"

	"server-market-go/internal/database"
	"server-market-go/internal/gateway"
	"server-market-go/internal/models"

	"go.uber.org/zap"
)

// DayKeys produces quota day keys relative to today.
type DayKeys interface {
	DaysAgo(n int) string
}

// QuotaPruner periodically deletes quota counters older than the retention
// window. Deletion goes through the gateway like any other write.
type QuotaPruner struct {
	gw        *gateway.Gateway
	days      DayKeys
	interval  time.Duration
	retention int

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewQuotaPruner(gw *gateway.Gateway, days DayKeys, cfg models.MaintenanceConfig) *QuotaPruner {
	return &QuotaPruner{
		gw:        gw,
		days:      days,
		interval:  cfg.Interval,
		retention: cfg.QuotaRetentionDays,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start prunes once and then on every interval until Stop or ctx is done.
func (p *QuotaPruner) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("maintenance interval must be positive, got %v", p.interval)
	}
	if p.retention < 1 {
		return fmt.Errorf("quota retention must be at least one day, got %d", p.retention)
	}

	go p.pruneLoop(ctx)

	zap.L().Info("Quota pruner started",
		zap.Duration("interval", p.interval),
		zap.Int("retention_days", p.retention))
	return nil
}

// Stop ends the loop and waits for an in-flight prune to finish.
func (p *QuotaPruner) Stop() {
	zap.L().Info("Stopping quota pruner")
	close(p.stopChan)
	<-p.doneChan
	zap.L().Info("Quota pruner stopped")
}

func (p *QuotaPruner) pruneLoop(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pruneOnce(ctx)

	for {
		select {
		case <-ticker.C:
			p.pruneOnce(ctx)
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *QuotaPruner) pruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.days.DaysAgo(p.retention)
	deleted, err := gateway.Submit(p.gw, "prune quota", func(ctx context.Context, tx *database.Tx) (int64, error) {
		return tx.Quota().Prune(ctx, cutoff)
	}).Wait(ctx)
	if err != nil {
		zap.L().Error("Failed to prune quota counters", zap.String("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	return deleted, nil
}
