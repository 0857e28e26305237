package gateway

import "sync"

// Executor is the context a continuation is handed back to.
type Executor interface {
	Execute(fn func())
}

type ExecutorFunc func(fn func())

func (e ExecutorFunc) Execute(fn func()) { e(fn) }

// Background runs each continuation on a fresh goroutine.
var Background Executor = ExecutorFunc(func(fn func()) { go fn() })

// Loop collects continuations for a caller that owns its own tick, such as a
// game or UI loop. Execute never blocks; the owner calls RunPending.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

func (l *Loop) Execute(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake receives after Execute queues work, for owners that block between ticks.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// RunPending runs every queued continuation on the calling goroutine and
// returns how many ran. Continuations queued while running wait for the next call.
func (l *Loop) RunPending() int {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}
