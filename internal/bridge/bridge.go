// Package bridge runs ledger work on a dispatcher owned for the lifetime of a
// broker, and lets synchronous callers wait for it with a hard deadline.
//
// A task that outlives its caller's deadline is not cancelled right away: it
// keeps running on the bridge's own context for Config.Grace and its result is
// dropped. After that its context is cancelled so it gives back its slot.
// Close cancels every task and waits for them to return.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrTimeout = errors.New("bridge: timed out waiting for task")
	ErrClosed  = errors.New("bridge: closed")
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultCapacity = 16
)

// Outcome labels passed to Config.Observe.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeClosed  = "closed"
)

type Config struct {
	// Timeout bounds how long Do waits, queueing included. Zero means DefaultTimeout.
	Timeout time.Duration
	// Capacity is the maximum number of tasks running at once.
	Capacity int
	// Grace is how long a task may run past its caller's timeout before its
	// context is cancelled. Zero means Timeout/2.
	Grace time.Duration
	// Observe, when set, is called once per Do with its outcome and wall time.
	Observe func(outcome string, elapsed time.Duration)
}

type task struct {
	deadline time.Time
	run      func(ctx context.Context)
}

type Bridge struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	tasks chan task
	sem   chan struct{}

	wg         sync.WaitGroup
	dispatcher chan struct{}
	closeOnce  sync.Once
}

func New(cfg Config) *Bridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Grace <= 0 {
		cfg.Grace = cfg.Timeout / 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		tasks:      make(chan task),
		sem:        make(chan struct{}, cfg.Capacity),
		dispatcher: make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bridge) Timeout() time.Duration { return b.cfg.Timeout }

func (b *Bridge) dispatch() {
	defer close(b.dispatcher)
	for {
		select {
		case <-b.ctx.Done():
			return
		case t := <-b.tasks:
			select {
			case b.sem <- struct{}{}:
			case <-b.ctx.Done():
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				defer func() { <-b.sem }()
				ctx, cancel := context.WithDeadline(b.ctx, t.deadline)
				defer cancel()
				t.run(ctx)
			}()
		}
	}
}

// Close stops the dispatcher, cancels running tasks and waits for them.
// It is safe to call more than once.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		<-b.dispatcher
		b.wg.Wait()
	})
}

type result[T any] struct {
	val T
	err error
}

// Do runs fn on the bridge and waits for its result, the bridge timeout, or
// ctx, whichever comes first. fn's own error is returned unchanged.
func Do[T any](ctx context.Context, b *Bridge, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	observe := func(outcome string) {
		if b.cfg.Observe != nil {
			b.cfg.Observe(outcome, time.Since(start))
		}
	}

	if b.ctx.Err() != nil {
		observe(OutcomeClosed)
		return zero, ErrClosed
	}

	timer := time.NewTimer(b.cfg.Timeout)
	defer timer.Stop()

	done := make(chan result[T], 1)
	t := task{deadline: start.Add(b.cfg.Timeout + b.cfg.Grace), run: func(runCtx context.Context) {
		var r result[T]
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.err = fmt.Errorf("bridge: task panic: %v", p)
				}
			}()
			r.val, r.err = fn(runCtx)
		}()
		done <- r
	}}

	select {
	case b.tasks <- t:
	case <-timer.C:
		observe(OutcomeTimeout)
		return zero, ErrTimeout
	case <-ctx.Done():
		observe(OutcomeTimeout)
		return zero, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	case <-b.ctx.Done():
		observe(OutcomeClosed)
		return zero, ErrClosed
	}

	select {
	case r := <-done:
		if r.err != nil {
			observe(OutcomeError)
		} else {
			observe(OutcomeOK)
		}
		return r.val, r.err
	case <-timer.C:
		observe(OutcomeTimeout)
		return zero, ErrTimeout
	case <-ctx.Done():
		observe(OutcomeTimeout)
		return zero, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	case <-b.ctx.Done():
		observe(OutcomeClosed)
		return zero, ErrClosed
	}
}
