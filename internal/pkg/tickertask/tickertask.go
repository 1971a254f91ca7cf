// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package tickertask runs a function periodically until stopped.
package tickertask

import (
	"context"
	"sync"
	"time"
)

// Options configures a Task.
type Options struct {
	// Interval is the time between runs. Must be positive for the task to tick.
	Interval time.Duration
	// Run is called on every tick with a context that is canceled when the task stops.
	Run func(ctx context.Context)
	// RunImmediately calls Run once synchronously from Start before the first tick.
	RunImmediately bool
}

// Task is a cancellable periodic task.
type Task struct {
	options  Options
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// New returns a new Task that has not been started.
func New(options Options) *Task {
	return &Task{
		options: options,
		done:    make(chan struct{}),
		cancel:  func() {},
	}
}

// Start runs the task in the background until Stop is called or ctx is canceled.
//
// If the interval is not positive, only the optional immediate run happens.
// Start must be called at most once.
func (t *Task) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	if t.options.RunImmediately {
		t.options.Run(ctx)
	}
	if t.options.Interval <= 0 {
		return
	}
	t.wg.Add(1)
	go t.runRecurring(ctx)
}

// Stop stops the task and waits for an in-progress run to return.
//
// Stop is idempotent and safe to call on a task that was never started.
func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		t.cancel()
	})
	t.wg.Wait()
}

// Done returns a channel that is closed when Stop is called.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// *** PRIVATE ***

// runRecurring calls Run on every tick until the task is stopped or ctx is done.
func (t *Task) runRecurring(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.options.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.options.Run(ctx)
		case <-t.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
