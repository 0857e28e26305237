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

package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"server-market-go/internal/database"
	"server-market-go/internal/models"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("gateway queue is full")
	ErrClosed    = errors.New("gateway is closed")
	ErrPanic     = errors.New("unit of work panicked")
)

const defaultQueueSize = 1024

// Store is the transactional store the worker runs units against.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *database.Tx) error) error
}

// Gateway serializes every unit of work onto one worker goroutine. Units run
// in submission order, each inside its own store transaction.
type Gateway struct {
	store Store
	queue chan *unit

	mu      sync.RWMutex
	closed  bool
	started bool

	seq      atomic.Uint64
	doneChan chan struct{}
}

type unit struct {
	id          uint64
	name        string
	submittedAt time.Time
	run         func(ctx context.Context)
	fail        func(err error)
}

func New(store Store, cfg models.GatewayConfig) *Gateway {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Gateway{
		store:    store,
		queue:    make(chan *unit, size),
		doneChan: make(chan struct{}),
	}
}

// Start launches the worker. Cancelling ctx does not abort queued work; use
// Stop to drain and shut down.
func (g *Gateway) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started || g.closed {
		return
	}
	g.started = true

	zap.L().Info("Starting execution gateway", zap.Int("queue_size", cap(g.queue)))
	go g.loop(context.WithoutCancel(ctx))
}

// Stop rejects new submissions, lets the worker finish everything already
// queued, and waits for it until ctx expires.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	close(g.queue)
	started := g.started
	g.mu.Unlock()

	zap.L().Info("Stopping execution gateway", zap.Int("pending", len(g.queue)))
	if !started {
		g.failPending()
		return nil
	}

	select {
	case <-g.doneChan:
		zap.L().Info("Execution gateway stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("gateway did not drain: %w", ctx.Err())
	}
}

// Pending reports how many units are waiting for the worker.
func (g *Gateway) Pending() int {
	return len(g.queue)
}

func (g *Gateway) enqueue(u *unit) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrClosed
	}
	select {
	case g.queue <- u:
		return nil
	default:
		return ErrQueueFull
	}
}

func (g *Gateway) loop(ctx context.Context) {
	defer close(g.doneChan)
	for u := range g.queue {
		started := time.Now()
		u.run(ctx)
		zap.L().Debug("Unit of work finished",
			zap.Uint64("unit_id", u.id),
			zap.String("unit", u.name),
			zap.Duration("queued", started.Sub(u.submittedAt)),
			zap.Duration("elapsed", time.Since(started)))
	}
}

// failPending completes units left behind by a gateway that never started.
func (g *Gateway) failPending() {
	for u := range g.queue {
		u.fail(ErrClosed)
	}
}

// Submit queues fn and returns immediately. fn runs on the worker inside one
// transaction that commits when it returns a nil error and rolls back
// otherwise. A full queue or a stopped gateway fails the future at once.
func Submit[T any](g *Gateway, name string, fn func(ctx context.Context, tx *database.Tx) (T, error)) *Future[T] {
	f := newFuture[T]()
	u := &unit{
		id:          g.seq.Add(1),
		name:        name,
		submittedAt: time.Now(),
	}
	u.fail = func(err error) {
		var zero T
		f.complete(zero, err)
	}
	u.run = func(ctx context.Context) {
		f.start()
		var result T
		err := g.store.WithTx(ctx, func(ctx context.Context, tx *database.Tx) error {
			var err error
			result, err = call(ctx, tx, fn)
			return err
		})
		if err != nil {
			zap.L().Warn("Unit of work rolled back",
				zap.Uint64("unit_id", u.id),
				zap.String("unit", name),
				zap.Error(err))
		}
		f.complete(result, err)
	}

	if err := g.enqueue(u); err != nil {
		zap.L().Warn("Rejected unit of work", zap.String("unit", name), zap.Error(err))
		u.fail(err)
	}
	return f
}

func call[T any](ctx context.Context, tx *database.Tx, fn func(ctx context.Context, tx *database.Tx) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx, tx)
}
