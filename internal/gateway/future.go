package gateway

import (
	"context"
	"sync"
)

// State is the lifecycle of a submitted unit of work.
type State int

const (
	Queued State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Future is the caller's handle on a unit of work. A Future completes once,
// with a value, an error, or both (see Catch).
type Future[T any] struct {
	mu        sync.Mutex
	state     State
	value     T
	err       error
	done      chan struct{}
	callbacks []func()

	// source is set on derived futures that mirror another unit's progress.
	source interface{ State() State }
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) start() {
	f.mu.Lock()
	if f.state == Queued {
		f.state = Running
	}
	f.mu.Unlock()
}

func (f *Future[T]) complete(value T, err error) {
	f.mu.Lock()
	if f.state == Completed || f.state == Failed {
		f.mu.Unlock()
		return
	}
	f.value = value
	f.err = err
	f.state = Completed
	if err != nil {
		f.state = Failed
	}
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.source != nil && f.state == Queued {
		return f.source.State()
	}
	return f.state
}

// Done is closed once the future has completed or failed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the unit finishes or ctx is done. It must not be called
// from inside a unit of work running on the same gateway.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then runs fn on exec after the future finishes. The worker only hands fn to
// exec; it never runs caller code itself.
func (f *Future[T]) Then(exec Executor, fn func(value T, err error)) {
	f.subscribe(func() {
		value, err := f.value, f.err
		exec.Execute(func() { fn(value, err) })
	})
}

// subscribe runs cb inline on whichever goroutine completes f, or right away
// when f is already done.
func (f *Future[T]) subscribe(cb func()) {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		cb()
		return
	default:
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

// Catch derives a future whose value is always set: on failure it carries
// handler(err) as its value while still reporting the original error.
func Catch[T any](f *Future[T], handler func(err error) T) *Future[T] {
	out := newFuture[T]()
	out.source = f
	f.subscribe(func() {
		if f.err != nil {
			out.complete(handler(f.err), f.err)
			return
		}
		out.complete(f.value, nil)
	})
	return out
}

// Resolved returns an already completed future.
func Resolved[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.complete(value, err)
	return f
}
