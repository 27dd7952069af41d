// Package driver runs a scheduler's work loop on one goroutine.
//
// The reconciler never decides when it runs. A Loop grants it time slices
// of a fixed budget while work is pending, runs submitted tasks (client
// events, renders, reads of the host tree) between slices, and blocks when
// there is nothing to do. Every call into the scheduler and its host happens
// on the loop goroutine, so neither needs locking.
package driver

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/vango-dev/loom/pkg/reconciler"
)

// DefaultSliceBudget is the time granted to each work slice.
const DefaultSliceBudget = 16 * time.Millisecond

// ErrStopped is returned when submitting to a loop that is not running.
var ErrStopped = errors.New("driver: loop stopped")

// Worker is the part of reconciler.Scheduler the loop drives.
type Worker interface {
	WorkLoop(d reconciler.Deadline) (bool, error)
	Pending() bool
}

var _ Worker = (*reconciler.Scheduler)(nil)

// Option configures a Loop.
type Option func(*Loop)

// WithSliceBudget sets the time granted to each slice.
func WithSliceBudget(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.budget = d
		}
	}
}

// WithQueueSize sets how many tasks may wait before Submit blocks.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.queue = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithErrorHandler sets the function called with every abandoned cycle's
// error.
func WithErrorHandler(fn func(error)) Option {
	return func(l *Loop) {
		l.onError = fn
	}
}

// Loop grants work slices to a Worker and serializes tasks with them.
type Loop struct {
	w       Worker
	tasks   chan func()
	done    chan struct{}
	budget  time.Duration
	queue   int
	logger  *slog.Logger
	onError func(error)
	slices  uint64
}

// New creates a loop for w. It does nothing until Run.
func New(w Worker, opts ...Option) *Loop {
	l := &Loop{
		w:      w,
		done:   make(chan struct{}),
		budget: DefaultSliceBudget,
		queue:  64,
		logger: slog.Default().With("component", "driver"),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.tasks = make(chan func(), l.queue)
	return l
}

// Submit queues task to run on the loop goroutine. It blocks while the queue
// is full and returns ErrStopped once the loop has exited.
func (l *Loop) Submit(task func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- task:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Call runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Submit(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run drives the worker until ctx is cancelled. While work is pending it
// grants a slice, then runs at most one queued task before the next slice;
// when idle it blocks on the task queue.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	for {
		if !l.w.Pending() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case task := <-l.tasks:
				l.run(task)
			}
			continue
		}

		l.slice()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-l.tasks:
			l.run(task)
		default:
		}
	}
}

func (l *Loop) slice() {
	l.slices++
	if _, err := l.w.WorkLoop(Budget(l.budget)); err != nil {
		l.logger.Error("work slice failed", "slice", l.slices, "error", err)
		if l.onError != nil {
			l.onError(err)
		}
	}
}

// run executes a task, recovering panics so one bad handler does not stop
// the loop.
func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
