// Package loop provides the single cooperative event loop the caption engine
// runs on. Every engine callback (mutation delivery, timers, translation
// results) executes on the loop goroutine, so engine state needs no locks.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a cancellable delayed callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented it
	// from running.
	Stop() bool
}

// Scheduler is the engine's view of the event loop.
type Scheduler interface {
	// Post queues fn to run on the loop after the current task. Safe to call
	// from any goroutine.
	Post(fn func())
	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Now returns the loop clock.
	Now() time.Time
}

// Loop is the production Scheduler backed by one goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	running atomic.Bool
}

// New creates a loop. Call Run to start draining it.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &realTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.fired.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

func (l *Loop) Now() time.Time {
	return time.Now()
}

// Run drains queued tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	defer l.running.Store(false)

	for {
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()
			fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

type realTimer struct {
	timer *time.Timer
	fired atomic.Bool
}

// Stop marks the timer fired so a callback already queued on the loop is
// skipped as well.
func (t *realTimer) Stop() bool {
	t.timer.Stop()
	return t.fired.CompareAndSwap(false, true)
}
