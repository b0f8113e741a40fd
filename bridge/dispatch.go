// ABOUTME: Dispatcher that runs backend calls without blocking the caller
// ABOUTME: Offloads blocking sync calls to a bounded worker pool with timeouts
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned when a dispatched call exceeds its allotted time.
// Its message is the caller-visible envelope error text.
var ErrTimeout = errors.New("timeout")

// CallKind declares, at registration time, how a backend executes its
// calls. No per-call probing happens.
type CallKind int

const (
	// CallSync marks a backend whose methods block the calling goroutine.
	// Calls are offloaded to the worker pool.
	CallSync CallKind = iota
	// CallAsync marks a context-aware backend that suspends cooperatively.
	// Calls run inline.
	CallAsync
)

const defaultWorkers = 4

// Dispatcher executes sync and async backend calls uniformly. The worker
// pool is bounded so a stalled backend cannot pile up goroutines without
// limit.
type Dispatcher struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher builds a dispatcher with the given pool size and per-call
// timeout. Zero workers means the default pool; zero timeout disables the
// deadline.
func NewDispatcher(workers int, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
		logger:  logger,
	}
}

// Call runs fn per its declared kind and returns its result. On timeout
// the result is ErrTimeout; the abandoned call finishes on its own and
// releases its pool slot when it does.
func (d *Dispatcher) Call(ctx context.Context, kind CallKind, fn func(context.Context) (any, error)) (any, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if kind == CallAsync {
		v, err := fn(ctx)
		return v, mapTimeout(err)
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, mapTimeout(err)
	}

	type result struct {
		v   any
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer d.sem.Release(1)
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, mapTimeout(r.err)
	case <-ctx.Done():
		d.logger.Warn("dispatched call abandoned", "error", ctx.Err())
		return nil, mapTimeout(ctx.Err())
	}
}

func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
